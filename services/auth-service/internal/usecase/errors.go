package usecase

import (
	"errors"
	"fmt"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/identity-gateway/shared/provider"
)

var (
	// ErrAuthenticationFailed is the uniform credential failure. It never says
	// which check failed.
	ErrAuthenticationFailed    = errors.New("authentication failed")
	ErrAccountCreationDisabled = errors.New("account creation is currently disabled")
	ErrIdentityUnlinkable      = errors.New("the external login cannot be removed because the account would have no way to sign in")
	ErrProviderNotFound        = provider.ErrProviderNotFound
)

// ValidationError reports malformed or missing input. Its message is safe to
// show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ExternalIdentityError wraps a failed exchange with an identity provider.
type ExternalIdentityError struct {
	Provider string
	Err      error
}

func (e *ExternalIdentityError) Error() string {
	return fmt.Sprintf("external identity %s: %v", e.Provider, e.Err)
}

func (e *ExternalIdentityError) Unwrap() error { return e.Err }

// PersistenceError wraps an unexpected store failure. It is logged, never shown.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// storeError classifies a repository write failure.
func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return newValidationError("The request could not be completed.")
	}
	return &PersistenceError{Op: op, Err: err}
}
