package status

// StatusOr is a fused value-or-status result. Go already has a native
// (value, error) idiom for this; StatusOr exists because the spec's fused
// type additionally forbids constructing an OK result with no value, a
// distinction (value, error) alone does not express. Callers that only need
// ordinary multi-value returns should prefer (T, Status) directly; StatusOr
// is for values threaded through channels or struct fields where a single
// carrier is more convenient.
type StatusOr[T any] struct {
	value T
	s     Status
	valid bool
}

// Of constructs a successful StatusOr.
func Of[T any](value T) StatusOr[T] {
	return StatusOr[T]{value: value, s: OK(), valid: true}
}

// Err constructs a failed StatusOr; status must not be OK.
func Err[T any](s Status) StatusOr[T] {
	if s.IsOK() {
		panic("status: StatusOr.Err called with an OK status")
	}
	return StatusOr[T]{s: s}
}

// Ok reports whether the StatusOr carries a value.
func (r StatusOr[T]) Ok() bool { return r.valid }

// Status returns the carried status, OK iff a value is present.
func (r StatusOr[T]) Status() Status { return r.s }

// Value returns the carried value and panics if none is present; callers
// must check Ok (or Status().IsOK()) first.
func (r StatusOr[T]) Value() T {
	if !r.valid {
		panic("status: StatusOr.Value called on a non-OK result: " + r.s.Error())
	}
	return r.value
}

// ValueOrZero returns the carried value, or the zero value of T when the
// result is not OK.
func (r StatusOr[T]) ValueOrZero() T {
	if !r.valid {
		var zero T
		return zero
	}
	return r.value
}
