package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Datastore error kinds. Repositories return (wrapped) one of these so callers never see driver codes.
var (
	ErrNotFound            = errors.New("record not found")
	ErrUniqueViolation     = errors.New("unique constraint violated")
	ErrForeignKeyViolation = errors.New("foreign key constraint violated")
	ErrTimeout             = errors.New("operation timed out")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ErrorKind classifies a user-facing action failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindInvariant
	KindTimeout
	KindExternal
)

var errorKindNames = [...]string{"unknown", "validation", "not_found", "conflict", "forbidden", "invariant", "timeout", "external"}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(errorKindNames) {
		return errorKindNames[KindUnknown]
	}
	return errorKindNames[k]
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ActionError is a failure whose Message can be shown to the caller as-is.
type ActionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (err *ActionError) Error() string {
	return err.Message
}

func (err *ActionError) Unwrap() error {
	return err.Err
}

// Reject returns an ActionError of the given kind.
func Reject(kind ErrorKind, msg string) error {
	return &ActionError{Kind: kind, Message: msg}
}

// Rejectf is Reject with formatting.
func Rejectf(kind ErrorKind, format string, args ...interface{}) error {
	return &ActionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsActionError returns the ActionError wrapped (via errors.Wrap) in err, if any.
func AsActionError(err error) (*ActionError, bool) {
	aErr, ok := errors.Cause(err).(*ActionError)
	return aErr, ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
