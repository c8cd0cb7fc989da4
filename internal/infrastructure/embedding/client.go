// Package embedding wraps the text-embedding inference service and an
// optional Redis cache in front of it.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"JobMatcher/internal/config"
	"JobMatcher/internal/domain"
	"JobMatcher/internal/ports"
	"JobMatcher/internal/retry"
)

const defaultBatchSize = 100

// Client talks to an embedding inference service over HTTP. For a fixed
// model version the service is deterministic, so batching is purely a
// throughput concern and never changes the returned vectors.
type Client struct {
	endpoint  string
	model     string
	apiKey    string
	dim       int
	batchSize int
	http      *http.Client
	policy    retry.Policy
}

var _ ports.Embedder = (*Client)(nil)

// NewClient creates a reusable HTTP client from configuration.
func NewClient(cfg config.EmbeddingConfig) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Client{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		dim:       cfg.Dimension,
		batchSize: batchSize,
		http:      &http.Client{Timeout: 60 * time.Second},
		policy:    retry.DefaultPolicy(),
	}
}

// ModelVersion tags the vectors this client produces.
func (c *Client) ModelVersion() string {
	return c.model
}

// EmbedBatch converts texts to vectors, preserving input order. The input
// is split into service-sized chunks transparently; empty strings are
// encoded as-is so callers never special-case empty descriptions.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		chunk, err := c.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, chunk...)
	}

	return vectors, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

func (c *Client) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embedResponse

	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		return c.post(ctx, embedRequest{Model: c.model, Texts: texts}, &resp)
	})
	if err != nil {
		return nil, &domain.RemoteServiceError{Service: "embedding", Err: err}
	}

	if len(resp.Vectors) != len(texts) {
		return nil, &domain.RemoteServiceError{
			Service: "embedding",
			Err:     fmt.Errorf("service returned %d vectors for %d texts", len(resp.Vectors), len(texts)),
		}
	}

	if c.dim > 0 {
		for _, vec := range resp.Vectors {
			if len(vec) != c.dim {
				return nil, &domain.DimensionMismatchError{Want: c.dim, Got: len(vec)}
			}
		}
	}

	return resp.Vectors, nil
}

func (c *Client) post(ctx context.Context, payload embedRequest, v *embedResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
