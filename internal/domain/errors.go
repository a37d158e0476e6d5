package domain

import (
	"encoding/json"
	"fmt"
)

// Error types for consistent error handling across the relay.

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConfiguration indicates missing server-side credentials for a provider.
// Only boolean flags are carried, never the credential values.
type ErrConfiguration struct {
	Provider   string
	Configured CredentialFlags
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("provider %s is not configured", e.Provider)
}

// ErrProvider indicates a non-2xx answer, a transport failure or an
// unrecognized response from a provider.
type ErrProvider struct {
	Provider   string
	StatusCode int
	// Details is the provider error body when there was one.
	Details    json.RawMessage
	Configured CredentialFlags
	Err        error
}

func (e *ErrProvider) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("provider %s returned status %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("provider %s failed", e.Provider)
	}
}

func (e *ErrProvider) Unwrap() error {
	return e.Err
}

// Rejected reports whether the provider answered with a client error.
func (e *ErrProvider) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// DetailValue returns what the caller should see as "details": the provider
// body when present, the error message otherwise.
func (e *ErrProvider) DetailValue() any {
	if len(e.Details) > 0 {
		return e.Details
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return nil
}

// ErrAuthentication indicates the card provider refused the token exchange.
type ErrAuthentication struct {
	Provider string
	Details  json.RawMessage
	Err      error
}

func (e *ErrAuthentication) Error() string {
	return fmt.Sprintf("authentication with %s failed: %v", e.Provider, e.Err)
}

func (e *ErrAuthentication) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
