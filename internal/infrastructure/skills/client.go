// Package skills wraps the hosted model that extracts a skill set from CV
// text.
package skills

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

// Client implements ports.SkillExtractor over an HTTP skill-extraction
// service. Failures come back as RemoteServiceError so the caller can show
// a "try again" instead of retry-storming a quota-limited backend.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	policy   retry.Policy
}

var _ ports.SkillExtractor = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.SkillsConfig) *Client {
	policy := retry.DefaultPolicy()
	// One retry only: the backend is quota-limited.
	policy.MaxAttempts = 2
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		policy:   policy,
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Skills []string `json:"skills"`
}

// ExtractSkills sends the CV text for skill extraction.
func (c *Client) ExtractSkills(ctx context.Context, text string) ([]string, error) {
	var resp extractResponse

	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		return c.post(ctx, extractRequest{Text: text}, &resp)
	})
	if err != nil {
		return nil, &domain.RemoteServiceError{Service: "skill-extraction", Err: err}
	}

	return resp.Skills, nil
}

func (c *Client) post(ctx context.Context, payload extractRequest, v *extractResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/extract", bytes.NewReader(body))
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
