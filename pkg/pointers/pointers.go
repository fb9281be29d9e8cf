package pointers

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Value returns the value p points to, or the zero value when p is nil.
func Value[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}

	return *p
}

// ValueOrDefault returns the value p points to, or def when p is nil.
func ValueOrDefault[T any](p *T, def T) T {
	if p == nil {
		return def
	}

	return *p
}
