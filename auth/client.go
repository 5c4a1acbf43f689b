package auth

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

// StatusError reports a non-2xx reply from the authorization endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Client exchanges an identifier for a bearer credential.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a Client posting to url.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: url, http: httpClient}
}

// Exchange posts identifier and returns the decoded reply.
func (c *Client) Exchange(ctx context.Context, identifier string) (types.AuthResponse, error) {
	body, err := json.Marshal(types.AuthRequest{Identifier: identifier})
	if err != nil {
		return types.AuthResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return types.AuthResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.AuthResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.AuthResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.AuthResponse{}, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out types.AuthResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return types.AuthResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
