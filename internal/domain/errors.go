package domain

import (
	"errors"
	"fmt"
)

// Store-level sentinels. Repositories return these; services translate them
// into typed errors that name the entity involved.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrInUse     = errors.New("record still referenced")
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
)

// ErrorKind is the category of a domain error. The HTTP layer maps each kind
// to a status code.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindState         ErrorKind = "state"
)

// Error is the typed error returned by every engine operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return newError(KindValidation, nil, format, args...)
}

// NotFound reports that the named entity does not exist.
func NotFound(entity string) error {
	return newError(KindNotFound, ErrNotFound, "%s not found", entity)
}

// Forbidden reports that the actor lacks rights on the entity.
func Forbidden(format string, args ...any) error {
	return newError(KindAuthorization, nil, format, args...)
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) error {
	return newError(KindConflict, nil, format, args...)
}

// InvalidState reports an operation that the entity's current state forbids.
func InvalidState(format string, args ...any) error {
	return newError(KindState, nil, format, args...)
}

// KindOf returns the kind of the first domain error in err's chain, or ""
// when err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// notFoundAs converts the store's not-found sentinel into a typed error for
// entity, and passes every other error through unchanged.
func notFoundAs(err error, entity string) error {
	if errors.Is(err, ErrNotFound) {
		return NotFound(entity)
	}
	return err
}
