package utils

// Ptr returns a pointer to a copy of v, for optional columns and slot numbers.
func Ptr[T any](v T) *T {
	return &v
}

// OrZero reads an optional counter; absent values count as zero.
func OrZero[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
