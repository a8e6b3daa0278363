// Package embedding turns text into vectors. Providers are remote
// (OpenAI-compatible HTTP) or local (feature hashing).
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Provider embeds text. Implementations must be safe for concurrent use.
type Provider interface {
	// EmbedBatch returns one vector per input text, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single search query
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Model names the embedding model; vectors from different models are
	// not comparable
	Model() string
}

var (
	// ErrCredential matches every credential problem
	ErrCredential = errors.New("embedding: credential error")

	// ErrMissingCredential is returned when no API key is configured
	ErrMissingCredential = fmt.Errorf("%w: missing API key", ErrCredential)

	// ErrInvalidCredential is returned when the provider rejects the key
	ErrInvalidCredential = fmt.Errorf("%w: invalid API key", ErrCredential)

	// ErrQuotaExceeded is returned when the provider keeps rate limiting or
	// the account has no quota left. Retry later.
	ErrQuotaExceeded = errors.New("embedding: quota exceeded or rate limited")
)

// ProviderError describes any other provider failure
type ProviderError struct {
	Provider string
	Status   int // HTTP status, 0 if the request never completed
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("embedding: %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("embedding: %s: status %d: %v", e.Provider, e.Status, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
