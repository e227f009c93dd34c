package types

import "fmt"

// RetryableError represents an error that indicates the operation can be retried.
// This is typically used for transient errors like network timeouts, rate limits, or temporary server unavailability.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps an existing error as a RetryableError.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// CredentialError marks an upstream failure that looks like a bad or missing
// API key. Classification is best effort (substring match on the provider's
// error text), so callers should treat it as a hint for wording, not a contract.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential error: %v", e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// NewCredentialError wraps an existing error as a CredentialError.
func NewCredentialError(err error) error {
	return &CredentialError{Err: err}
}
