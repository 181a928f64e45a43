package domain

// Result is the outcome of one step (or of validation): either success,
// optionally carrying a data value, or failure carrying a classified error.
// The zero value is an empty success. Constructors keep the two arms
// mutually exclusive.
type Result struct {
	data    any
	hasData bool
	err     *Error
}

// Success creates a successful result carrying v.
func Success(v any) Result {
	return Result{data: v, hasData: true}
}

// Empty creates a successful result with no data.
func Empty() Result {
	return Result{}
}

// Failure creates a failed result. Failures without an explicit
// classification default to business with a generic code.
func Failure(message string) Result {
	return Result{err: ErrBusiness(message)}
}

// ClassifiedFailure creates a failed result with an explicit code and
// classification.
func ClassifiedFailure(message, code string, class Classification) Result {
	return Result{err: NewError(class, code, message)}
}

// ValidationFailure creates a failed result classified as validation.
func ValidationFailure(message string) Result {
	return Result{err: ErrValidation(message)}
}

// SystemFailure creates a failed result classified as system.
func SystemFailure(message string) Result {
	return Result{err: ErrSystem(message)}
}

// FailureErr wraps an existing classified error into a failed result.
// A nil err yields an empty success.
func FailureErr(err *Error) Result {
	if err == nil {
		return Empty()
	}
	return Result{err: err}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.err == nil
}

// Failed reports whether the result is a failure.
func (r Result) Failed() bool {
	return r.err != nil
}

// Data returns the carried value and whether one is present. Failures and
// empty successes report false.
func (r Result) Data() (any, bool) {
	if r.err != nil || !r.hasData {
		return nil, false
	}
	return r.data, true
}

// Err returns the classified error of a failed result, nil otherwise.
func (r Result) Err() *Error {
	return r.err
}

// DataAs returns the carried value as T. The second return is false when the
// result failed, carries no data, or the value is not a T.
func DataAs[T any](r Result) (T, bool) {
	var zero T
	v, ok := r.Data()
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
