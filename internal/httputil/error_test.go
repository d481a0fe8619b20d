package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		kind   bracket.Kind
	}{
		{"invalid score", bracket.Errorf(bracket.KindInvalidScore, "3-0 in a best of 3"), http.StatusBadRequest, bracket.KindInvalidScore},
		{"ambiguous", bracket.ErrAmbiguousResult, http.StatusUnprocessableEntity, bracket.KindAmbiguousResult},
		{"wrapped conflict", fmt.Errorf("report: %w", bracket.ErrMatchNotReady), http.StatusConflict, bracket.KindMatchNotReady},
		{"downstream", bracket.ErrDownstreamInProgress, http.StatusConflict, bracket.KindDownstreamInProgress},
		{"busy", bracket.ErrConcurrentModification, http.StatusServiceUnavailable, bracket.KindConcurrentModification},
		{"missing", bracket.ErrNotFound, http.StatusNotFound, bracket.KindNotFound},
		{"infrastructure", errors.New("disk full"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, "command failed", tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body bracket.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.kind, body.Kind)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Message, "disk full")
			}
			if tc.status == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			} else {
				assert.Empty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}
