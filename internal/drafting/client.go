package drafting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps interactions with the drafting gateway API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client. The timeout bounds each drafting call;
// the reminder engine never imposes its own.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks if the remote drafting gateway is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("drafting gateway returned status %d", resp.StatusCode)
	}
	return nil
}

type draftRequest struct {
	Kind    string  `json:"kind"`
	Context Context `json:"context"`
}

type draftResponse struct {
	Text string `json:"text"`
}

func (c *Client) draft(ctx context.Context, kind string, dc Context) (string, error) {
	payload, err := json.Marshal(draftRequest{Kind: kind, Context: dc})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/draft", c.baseURL), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("draft %s failed with status %d", kind, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var out draftResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("draft %s: decode response: %w", kind, err)
	}
	if out.Text == "" {
		return "", fmt.Errorf("draft %s: empty response", kind)
	}
	return out.Text, nil
}

// SubjectLine asks the gateway for a subject line.
func (c *Client) SubjectLine(ctx context.Context, dc Context) (string, error) {
	return c.draft(ctx, "subject", dc)
}

// EmailMessage asks the gateway for an email body.
func (c *Client) EmailMessage(ctx context.Context, dc Context) (string, error) {
	return c.draft(ctx, "message", dc)
}
