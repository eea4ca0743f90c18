package llm

import "fmt"

// ProviderError wraps any generation failure (network, quota, timeout).
// Callers treat every ProviderError as retryable exactly once.
type ProviderError struct {
	Provider Provider
	Op       string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s failed: %v", e.Provider, e.Op, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
