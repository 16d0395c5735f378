// Package llm is a small client for an Ollama compatible /api/generate
// endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultHTTPTimeout = 3 * time.Minute

var errUpstream = errors.New("llm unavailable")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

type OllamaClient struct {
	host    string
	model   string
	client  *http.Client
	retries uint64
	backoff time.Duration
}

func NewOllamaClient(host, model string, client *http.Client) *OllamaClient {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &OllamaClient{
		host:    strings.TrimRight(host, "/"),
		model:   model,
		client:  client,
		retries: 2,
		backoff: 500 * time.Millisecond,
	}
}

func (c *OllamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

// Generate sends a non-streaming completion request. Connection failures and
// 5xx responses are retried with exponential backoff.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var out string
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		out, err = c.generate(ctx, buf)
		if errors.Is(err, errUpstream) {
			return retry.RetryableError(err)
		}
		return err
	})
	return out, err
}

func (c *OllamaClient) generate(ctx context.Context, buf []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", errUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: %s (%s)", errUpstream, resp.Status, string(body))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("ollama API error: %s (%s)", resp.Status, string(body))
	}

	var parsed struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", fmt.Errorf("ollama returned an empty response")
	}
	return strings.TrimSpace(parsed.Response), nil
}
