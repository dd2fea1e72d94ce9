package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidArgument = "identity_invalid_argument"
	TextCodeNotFound        = "identity_not_found"
	TextCodeIntegrity       = "identity_integrity_violation"
	TextCodeSchemaSync      = "identity_schema_sync_failed"
	TextCodeStoreDisposed   = "identity_store_disposed"
	TextCodeStorage         = "identity_storage_failure"
)

// ErrInvalidArgument is returned when a required input is nil, empty, or the
// zero value for the configured key type.
var ErrInvalidArgument = goerrors.New("required argument is missing or zero valued", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidArgument).
	WithCode(goerrors.CodeBadRequest)

// ErrNotFound is returned when a lookup yields no row. Callers are expected
// to branch on it rather than treat it as fatal.
var ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrIntegrity is returned when a uniqueness invariant is violated, e.g. two
// rows match a lookup that expects at most one. This signals a schema bug,
// not a user error.
var ErrIntegrity = goerrors.New("uniqueness invariant violated", goerrors.CategoryConflict).
	WithTextCode(TextCodeIntegrity).
	WithCode(goerrors.CodeConflict)

// ErrStoreDisposed is returned by every store operation after Close. It is
// raised before any I/O is attempted.
var ErrStoreDisposed = goerrors.New("store has been disposed", goerrors.CategoryOperation).
	WithTextCode(TextCodeStoreDisposed)

// wrapSchema marks a table creation or alteration failure. Schema errors are
// fatal to startup and never retried.
func wrapSchema(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(TextCodeSchemaSync)
}

// wrapInvalid turns a validation failure into an invalid-argument error.
func wrapInvalid(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, msg).
		WithTextCode(TextCodeInvalidArgument).
		WithCode(goerrors.CodeBadRequest)
}

// wrapStorage surfaces an opaque failure from the underlying connection,
// e.g. connectivity loss. The cause propagates unchanged.
func wrapStorage(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(TextCodeStorage)
}

// IsNotFound reports whether err represents a missing record.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsInvalidArgument reports whether err was caused by a nil or zero-valued
// required input.
func IsInvalidArgument(err error) bool {
	return hasTextCode(err, TextCodeInvalidArgument)
}

// IsIntegrity reports whether err represents a violated uniqueness invariant.
func IsIntegrity(err error) bool {
	return hasTextCode(err, TextCodeIntegrity)
}

// IsDisposed reports whether err was raised because the store was closed.
func IsDisposed(err error) bool {
	return hasTextCode(err, TextCodeStoreDisposed)
}

// IsSchemaError reports whether err came from schema synchronization.
func IsSchemaError(err error) bool {
	return hasTextCode(err, TextCodeSchemaSync)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
