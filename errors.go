package manila

import (
	"errors"
	"fmt"
)

// Sentinel roots for the error kinds the module produces. The typed errors
// below unwrap to these, so callers can branch with errors.Is or the IsErr
// helpers without matching message text.
var (
	ErrUnboundKind       = errors.New("kind is not hooked up")
	ErrNotSupported      = errors.New("operation not supported")
	ErrMissingID         = errors.New("document id required")
	ErrReservedAttribute = errors.New("attribute is reserved")
	ErrIDMismatch        = errors.New("stored id does not match document id")
)

// UnboundKindError reports a bound operation attempted before the kind had
// both a server and a bucket. Missing names the part that was absent.
type UnboundKindError struct {
	Kind    string
	Missing string
}

func (e *UnboundKindError) Error() string {
	if e.Kind == "" {
		return "document has no kind, bound operations need one"
	}
	return fmt.Sprintf("kind %q has no %s yet, call Hookup first", e.Kind, e.Missing)
}

func (e *UnboundKindError) Unwrap() error { return ErrUnboundKind }

// NotSupportedError is the answer of a server that cannot serve an operation.
type NotSupportedError struct {
	Op string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by this server", e.Op)
}

func (e *NotSupportedError) Unwrap() error { return ErrNotSupported }

// MissingIDError reports an operation that needs a document id and got none.
type MissingIDError struct {
	Op string
}

func (e *MissingIDError) Error() string {
	return fmt.Sprintf("cannot %s without a document id", e.Op)
}

func (e *MissingIDError) Unwrap() error { return ErrMissingID }

// ReservedAttributeError reports an attempt to set a computed attribute.
type ReservedAttributeError struct {
	Key string
}

func (e *ReservedAttributeError) Error() string {
	return fmt.Sprintf("failed to set attribute %q: reserved", e.Key)
}

func (e *ReservedAttributeError) Unwrap() error { return ErrReservedAttribute }

// IDMismatchError reports a backend answering a store with a different id
// than the document already carries.
type IDMismatchError struct {
	ID       string
	Returned string
}

func (e *IDMismatchError) Error() string {
	return fmt.Sprintf("failed to store document, id doesn't match, is %q, should be %q", e.Returned, e.ID)
}

func (e *IDMismatchError) Unwrap() error { return ErrIDMismatch }

func IsErrUnboundKind(err error) bool { return errors.Is(err, ErrUnboundKind) }

func IsErrNotSupported(err error) bool { return errors.Is(err, ErrNotSupported) }

func IsErrMissingID(err error) bool { return errors.Is(err, ErrMissingID) }

func IsErrReservedAttribute(err error) bool { return errors.Is(err, ErrReservedAttribute) }

func IsErrIDMismatch(err error) bool { return errors.Is(err, ErrIDMismatch) }
