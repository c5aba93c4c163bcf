package aisearch

import (
	"errors"
	"fmt"
)

// ErrSchemaMissing is returned when the embeddings table does not exist.
var ErrSchemaMissing = errors.New("document_embeddings table missing; ensure migrations and the pgvector extension are applied")

// ErrServiceFailure is the generic error surfaced to callers when generation fails.
var ErrServiceFailure = errors.New("ai service request failed")

// ConfigurationError reports a missing or invalid setting. It is never retried.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// ProviderConfigError reports a provider that cannot be called because a
// credential or endpoint is missing. It matches *ConfigurationError with errors.As.
type ProviderConfigError struct {
	Provider string
	Setting  string
}

func (e *ProviderConfigError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Provider, e.Setting)
}

func (e *ProviderConfigError) Unwrap() error {
	return &ConfigurationError{Setting: e.Setting, Reason: "required by " + e.Provider}
}

// ProviderCallError reports a failed call to an embedding or completion provider.
type ProviderCallError struct {
	Provider   string
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ProviderCallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (status %d): %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderCallError) Unwrap() error {
	return e.Err
}

// ValidationError reports a malformed request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsFatal reports errors that retrying cannot fix: configuration problems and
// a missing schema.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSchemaMissing) {
		return true
	}
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
