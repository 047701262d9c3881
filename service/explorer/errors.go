package explorer

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. TransportError and ValidationError
// are recovered inside the fallback loop and only ever reach a caller
// wrapped under ErrNoProviderAvailable.
var (
	ErrNoProviderAvailable  = errors.New("no provider available")
	ErrUnknownNetwork       = errors.New("unknown network")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// TransportError reports that a provider could not be reached, timed out,
// or returned a non-success transport status. The fallback loop advances
// to the next candidate on this error.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure from %s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a transport-level failure of the named
// provider.
func NewTransportError(provider string, err error) *TransportError {
	return &TransportError{Provider: provider, Err: err}
}

// ValidationError reports that a provider responded but the payload failed
// structural or policy validation. Treated identically to TransportError
// by the fallback loop.
type ValidationError struct {
	Provider string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid response from %s: %s", e.Provider, e.Reason)
}

// NewValidationError reports a rejected payload from the named provider.
func NewValidationError(provider, reason string) *ValidationError {
	return &ValidationError{Provider: provider, Reason: reason}
}

// IsRecoverable reports whether the fallback loop may advance to the next
// provider after err. Anything else (InvalidAmount, context cancellation,
// programming errors) is surfaced immediately.
func IsRecoverable(err error) bool {
	var te *TransportError
	var ve *ValidationError
	return errors.As(err, &te) || errors.As(err, &ve)
}
