package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "text-embedding-3-small"
	defaultBatchSize     = 64
	maxRetryDelay        = 5 * time.Second
)

// OpenAIConfig configures an OpenAI-compatible embeddings client
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	BatchSize  int // inputs per request
	MaxRetries int // retries after the first attempt on 429/5xx/transport errors
	HTTPClient *http.Client
	Logger     logging.Logger
}

// OpenAI calls the /embeddings endpoint of an OpenAI-compatible API
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	maxRetries int
	retryBase  time.Duration
	client     *http.Client
	logger     logging.Logger
}

// NewOpenAI returns a client; an empty API key fails with
// ErrMissingCredential
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingCredential
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAI{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		retryBase:  200 * time.Millisecond,
		client:     client,
		logger:     logging.OrNop(cfg.Logger).With("component", "embedding", "provider", "openai"),
	}, nil
}

// Model implements Provider
func (c *OpenAI) Model() string { return c.model }

// EmbedQuery implements Provider
func (c *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Provider. Inputs are sent in chunks of BatchSize
// and the response is reassembled by index.
func (c *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *OpenAI) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Err: err}
	}

	for attempt := 0; ; attempt++ {
		payload, status, retryAfter, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.maxRetries {
				c.logger.Warn("embeddings request failed, retrying", "attempt", attempt+1, "error", err)
				if err := c.sleep(ctx, c.retryDelay(attempt, "")); err != nil {
					return nil, err
				}
				continue
			}
			return nil, &ProviderError{Provider: "openai", Err: err}
		}

		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, ErrInvalidCredential
		case status == http.StatusTooManyRequests && apiErrorCode(payload) == "insufficient_quota":
			return nil, ErrQuotaExceeded
		case status == http.StatusTooManyRequests || status >= 500:
			if attempt < c.maxRetries {
				c.logger.Warn("embeddings request throttled, retrying", "attempt", attempt+1, "status", status)
				if err := c.sleep(ctx, c.retryDelay(attempt, retryAfter)); err != nil {
					return nil, err
				}
				continue
			}
			if status == http.StatusTooManyRequests {
				return nil, ErrQuotaExceeded
			}
			return nil, &ProviderError{Provider: "openai", Status: status, Err: errors.New(apiErrorMessage(payload))}
		case status >= 300:
			return nil, &ProviderError{Provider: "openai", Status: status, Err: errors.New(apiErrorMessage(payload))}
		}

		return decodeEmbeddings(payload, len(texts))
	}
}

func (c *OpenAI) post(ctx context.Context, body []byte) ([]byte, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", err
	}
	return payload, resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

func decodeEmbeddings(payload []byte, want int) ([][]float32, error) {
	var resp embeddingsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, &ProviderError{Provider: "openai", Status: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}

	out := make([][]float32, want)
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= want {
			return nil, &ProviderError{Provider: "openai", Status: http.StatusOK,
				Err: fmt.Errorf("response index %d out of range", d.Index)}
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, &ProviderError{Provider: "openai", Status: http.StatusOK,
				Err: fmt.Errorf("no embedding returned for input %d", i)}
		}
	}
	return out, nil
}

// retryDelay honours a Retry-After header in seconds, otherwise backs off
// exponentially
func (c *OpenAI) retryDelay(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, maxRetryDelay)
	}
	return min(c.retryBase<<attempt, maxRetryDelay)
}

func (c *OpenAI) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func apiErrorCode(payload []byte) string {
	var body apiErrorBody
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return body.Error.Code
}

func apiErrorMessage(payload []byte) string {
	var body apiErrorBody
	if json.Unmarshal(payload, &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	msg := strings.TrimSpace(string(payload))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}
