package apperr

import "errors"

// Sentinel errors for the failure kinds the application distinguishes
var (
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrUnauthenticated     = errors.New("not signed in")
	ErrSubscription        = errors.New("subscription failed")
	ErrWrite               = errors.New("write failed")
	ErrUpload              = errors.New("upload failed")
	ErrAIRequest           = errors.New("ai request failed")
	ErrAIParse             = errors.New("could not parse AI response")
	ErrBusy                = errors.New("a request is already in flight")
	ErrNotFound            = errors.New("not found")
	ErrInvalidArgument     = errors.New("invalid argument")
)

// Error attaches a failure kind and the failing operation to a cause.
// errors.Is matches both the kind sentinel and anything in the cause chain.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// Wrap returns nil when err is nil
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New builds an error of the given kind with a plain message as its cause
func New(kind error, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Error keeps the cause message verbatim, the way it is shown to the user
func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Message returns the innermost cause text without the operation prefix
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return Message(e.Err)
	}
	return err.Error()
}
