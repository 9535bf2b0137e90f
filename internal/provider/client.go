package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aicat-dev/aicat/internal/chat"
	"github.com/aicat-dev/aicat/internal/config"
)

// StatusError is returned for non-2xx provider responses. It carries
// the raw body so quota, auth and model-name issues stay diagnosable.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client performs one synchronous chat exchange against a single
// provider endpoint. No retries: a transport failure is fatal to the
// invocation.
type Client struct {
	api chat.API
	cfg config.APIConfig
	hc  *http.Client
}

func NewClient(api chat.API, cfg config.APIConfig) *Client {
	return &Client{
		api: api,
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout()},
	}
}

// Complete posts the prompt and returns the provider's reply as an
// assistant message.
func (c *Client) Complete(ctx context.Context, p chat.Prompt) (chat.Message, error) {
	body, err := BuildRequestBody(p)
	if err != nil {
		return chat.Message{}, err
	}

	slog.Debug("sending request", "api", c.api, "url", c.cfg.URL, "model", p.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return chat.Message{}, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.setAuthHeaders(req); err != nil {
		return chat.Message{}, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return chat.Message{}, fmt.Errorf("reaching %s: %w", c.cfg.URL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return chat.Message{}, fmt.Errorf("reading %s response: %w", c.api, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return chat.Message{}, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return ParseResponse(c.api, respBody)
}

// setAuthHeaders applies the provider's auth scheme: bearer token for
// the OpenAI family, the x-api-key/anthropic-version pair for
// Anthropic, nothing for ollama.
func (c *Client) setAuthHeaders(req *http.Request) error {
	switch c.api {
	case chat.APIOllama:
		return nil
	case chat.APIAnthropic:
		key, err := c.cfg.ResolveKey()
		if err != nil {
			return err
		}
		if c.cfg.Version == "" {
			return fmt.Errorf("anthropic requires a version, add a version key to its api config")
		}
		req.Header.Set("x-api-key", key)
		req.Header.Set("anthropic-version", c.cfg.Version)
		return nil
	default:
		key, err := c.cfg.ResolveKey()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+key)
		return nil
	}
}
