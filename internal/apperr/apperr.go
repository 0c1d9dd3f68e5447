// internal/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrUnauthenticated means no usable identity could be resolved from the
// request. Absence of credentials is not this error; a broken token is.
var ErrUnauthenticated = errors.New("unauthenticated")

// ValidationError is a structural or business-rule violation that holds no
// matter who the caller is: missing tenant owner, tenant reassignment,
// self role change, unknown creator record.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AuthorizationError means the request is well-formed but the acting user
// lacks the privilege: wrong role, or actor from another tenant.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

func Authorizationf(format string, args ...interface{}) error {
	return &AuthorizationError{Msg: fmt.Sprintf(format, args...)}
}

func IsAuthorization(err error) bool {
	var a *AuthorizationError
	return errors.As(err, &a)
}

// sqlstate 42501 is insufficient_privilege, which Postgres raises when a row
// violates a row-level security policy.
const pqInsufficientPrivilege = "42501"

// IsRLSViolation reports whether err is the database rejecting a row under a
// row-security policy. This fires only when application-level checks were
// bypassed or raced; it is a defense-in-depth signal, never retried.
func IsRLSViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pqInsufficientPrivilege
}
