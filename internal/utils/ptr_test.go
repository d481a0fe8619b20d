package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	p := Ptr(2)
	q := Ptr(2)
	assert.Equal(t, 2, *p)
	assert.NotSame(t, p, q)
}

func TestOrZero(t *testing.T) {
	assert.Equal(t, 0, OrZero[int](nil))
	assert.Equal(t, 7, OrZero(Ptr(7)))
	assert.Equal(t, "", OrZero[string](nil))
}
