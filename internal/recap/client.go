package recap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reverie/internal/config"
	"reverie/internal/model"
)

// Request is the payload sent to the external recap generation server.
type Request struct {
	AudioURL string   `json:"audioUrl"`
	Scenario Scenario `json:"scenario"`
}

// Response is the recap server's answer: one summary per scene.
type Response struct {
	RecapContent []model.AnswerSummary `json:"recapContent"`
}

// Client calls the external recap server. The call is fire-and-forget from
// the saga's point of view: a single attempt, bounded by the configured
// timeout, no retries.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.RecapConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SendRequest posts the recap request and decodes the response. Returns
// (nil, nil) when no server is configured so callers need not special-case
// a disabled integration.
func (c *Client) SendRequest(ctx context.Context, req *Request) (*Response, error) {
	if c.baseURL == "" {
		return nil, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal recap request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/recap", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build recap request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call recap server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the log line, then give up.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("recap server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode recap response: %w", err)
	}
	return &out, nil
}
