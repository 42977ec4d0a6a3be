// Package coreerr defines the error-kind taxonomy shared by every core
// component. It generalizes the {Code, Message, Err} error shape used
// throughout the authorization engine's cache and storage layers into a
// fixed set of kinds that callers can switch on.
package coreerr

import "fmt"

// Kind identifies one of the ten error categories a core component may
// return.
type Kind string

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindNotFound     Kind = "NOT_FOUND"
	KindShape        Kind = "SHAPE"
	KindOverloaded   Kind = "OVERLOADED"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindCircuitOpen  Kind = "CIRCUIT_OPEN"
	KindUpstream     Kind = "UPSTREAM"
	KindTransient    Kind = "TRANSIENT"
	KindModelInit    Kind = "MODEL_INIT"
	KindInternal     Kind = "INTERNAL"
)

// Error is the single error type returned across component boundaries.
type Error struct {
	Kind    Kind
	Message string
	Step    string // optional: which pipeline step raised it (C4)
	Err     error

	// RetryAfterSeconds is populated for RateLimited and CircuitOpen.
	RetryAfterSeconds int
}

func (e *Error) Error() string {
	if e.Step != "" && e.Err != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Step, e.Message, e.Err)
	}
	if e.Step != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Step, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &coreerr.Error{Kind: coreerr.KindNotFound})
// work by comparing kinds when the target is itself a *Error carrying
// only a Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func InvalidInput(msg string) *Error { return &Error{Kind: KindInvalidInput, Message: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Shape(msg string) *Error { return &Error{Kind: KindShape, Message: msg} }

func Overloaded(msg string) *Error { return &Error{Kind: KindOverloaded, Message: msg} }

func RateLimited(msg string, retryAfterSeconds int) *Error {
	return &Error{Kind: KindRateLimited, Message: msg, RetryAfterSeconds: retryAfterSeconds}
}

func CircuitOpen(msg string, retryAfterSeconds int) *Error {
	return &Error{Kind: KindCircuitOpen, Message: msg, RetryAfterSeconds: retryAfterSeconds}
}

func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

func ModelInit(msg string, err error) *Error {
	return &Error{Kind: KindModelInit, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// WithStep returns a copy of e tagged with the pipeline step that raised
// it, used by C4 so job records can report the offending step.
func WithStep(err *Error, step string) *Error {
	cp := *err
	cp.Step = step
	return &cp
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
