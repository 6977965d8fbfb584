package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrConflict       = errors.New("conflict")
	ErrUnavailable    = errors.New("unavailable")

	ErrInsufficientStock    = fmt.Errorf("%w: insufficient stock", ErrInvalidRequest)
	ErrInvalidConfiguration = fmt.Errorf("%w: invalid set configuration", ErrInvalidRequest)
	ErrInvalidReference     = fmt.Errorf("%w: invalid item reference", ErrInvalidRequest)
)

// Error carries a client-facing message together with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func invalid(format string, args ...interface{}) error {
	return newError(ErrInvalidRequest, format, args...)
}

// notFoundOr converts gorm.ErrRecordNotFound into a NotFound error with msg and
// passes every other error through.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("%s", msg)
	}
	return err
}
