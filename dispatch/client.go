package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.aimuz.me/labvoz/internal/types"
)

// StatusError reports a non-2xx reply from the interpretation endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("interpreter returned %d: %s", e.StatusCode, e.Body)
}

// Client calls the remote command-interpretation endpoint.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a Client posting to url. A nil httpClient gets a 30s
// timeout default.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: url, http: httpClient}
}

// Interpret sends command with bearer token and decodes the reply.
func (c *Client) Interpret(ctx context.Context, token, command string) (types.CommandResult, error) {
	body, err := json.Marshal(types.CommandRequest{Command: command})
	if err != nil {
		return types.CommandResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return types.CommandResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return types.CommandResult{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.CommandResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.CommandResult{}, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var result types.CommandResult
	if err := json.Unmarshal(data, &result); err != nil {
		return types.CommandResult{}, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}
