package config

import (
	"fmt"
	"time"

	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/embedding"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
)

// NewEmbedder builds the configured embedding provider. The OpenAI
// provider fails with embedding.ErrMissingCredential when its key variable
// is unset.
func (c *AppConfig) NewEmbedder(logger logging.Logger) (embedding.Provider, error) {
	switch c.Embedder.Type {
	case EmbedderHashing:
		return embedding.NewHashing(c.Embedder.HashSize), nil
	case EmbedderOpenAI:
		o := c.Embedder.OpenAI
		return embedding.NewOpenAI(embedding.OpenAIConfig{
			BaseURL:    o.BaseURL,
			APIKey:     c.APIKey(),
			Model:      o.Model,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			BatchSize:  o.BatchSize,
			MaxRetries: o.MaxRetries,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedder type %q", c.Embedder.Type)
	}
}
