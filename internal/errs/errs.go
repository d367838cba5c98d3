package errs

import (
	"errors"

	cr "github.com/cockroachdb/errors"
)

type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindProvider      Kind = "PROVIDER"
	KindConfiguration Kind = "CONFIGURATION"
	KindPersistence   Kind = "PERSISTENCE"
)

// Error carries a Kind and a client-safe message. The wrapped error keeps
// the low-level cause and its stack for logs only.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return string(e.Kind) + ": " + e.msg + ": " + e.err.Error()
	}
	return string(e.Kind) + ": " + e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// Message is what the caller of the HTTP surface gets to see.
func (e *Error) Message() string {
	return e.msg
}

func newKind(kind Kind, msg string, err error) error {
	if err != nil {
		err = cr.WithStack(err)
	}
	return &Error{Kind: kind, msg: msg, err: err}
}

func Validation(msg string) error {
	return newKind(KindValidation, msg, nil)
}

func Provider(msg string, err error) error {
	return newKind(KindProvider, msg, err)
}

func Configuration(msg string) error {
	return newKind(KindConfiguration, msg, nil)
}

func Persistence(msg string, err error) error {
	return newKind(KindPersistence, msg, err)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func New(msg string) error {
	return cr.New(msg)
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Message returns the client-facing message for err, falling back to the
// error text for errors that were never kinded.
func Message(err error) string {
	if e, ok := As(err); ok {
		return e.msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// KindOf is the kind of the outermost kinded error in err's chain, or "".
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}
