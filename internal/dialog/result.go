package dialog

// Result is the value handed to a resuming step: the reply to a prompt,
// the value passed to Next, or whatever a child dialog ended with.
// A Result may be absent; callers must check Present before using Value.
type Result struct {
	value     any
	present   bool
	cancelled bool
}

// NoResult is the absent result.
func NoResult() Result { return Result{} }

// ValueResult wraps v. A nil v yields an absent result.
func ValueResult(v any) Result {
	if v == nil {
		return Result{}
	}
	return Result{value: v, present: true}
}

// CancelledResult marks a frame that was ended by a cancel interception.
func CancelledResult() Result { return Result{cancelled: true} }

// Present reports whether a value was produced.
func (r Result) Present() bool { return r.present }

// Cancelled reports whether the producing frame was cancelled.
func (r Result) Cancelled() bool { return r.cancelled }

// Value returns the raw value, nil when absent.
func (r Result) Value() any { return r.value }

// String returns the value when it is a string, otherwise "".
func (r Result) String() string {
	if s, ok := r.value.(string); ok {
		return s
	}
	return ""
}

// ResultAs extracts a typed value. It accepts both T and *T payloads.
func ResultAs[T any](r Result) (T, bool) {
	var zero T
	if !r.present {
		return zero, false
	}
	switch v := r.value.(type) {
	case T:
		return v, true
	case *T:
		if v == nil {
			return zero, false
		}
		return *v, true
	}
	return zero, false
}
