package openai

import (
	"errors"
	"fmt"
)

// ErrCredentialMissing is reported when the client has no API key.
var ErrCredentialMissing = errors.New("credential missing")

// RateLimitedError means every attempt was answered with HTTP 429.
type RateLimitedError struct {
	Attempts int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("openai rate limited after %d attempts", e.Attempts)
}

// UpstreamError covers exhausted 5xx/timeout retries, non-retryable statuses,
// malformed responses, transport failures and a missing credential.
type UpstreamError struct {
	Status   int
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("openai upstream error status=%d attempts=%d: %v", e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("openai upstream error attempts=%d: %v", e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
