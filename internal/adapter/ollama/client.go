// Package ollama implements the text-generation gateway against a local
// Ollama server's native API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"colloquy/internal/domain"
	"colloquy/internal/infra/config"
)

var _ domain.TextGenerator = (*Client)(nil)

// Default Ollama timeouts: short connect (local), long response (model loading).
const (
	defaultConnTimeout = 5 * time.Second
	defaultRespTimeout = 300 * time.Second
)

// maxResponseBody is the maximum response body size read from the API.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// maxStreamLine bounds a single NDJSON line in a streaming response.
const maxStreamLine = 1024 * 1024

// Client talks to the native Ollama API.
type Client struct {
	baseURL  string
	fallback []string
	client   *http.Client
	logger   *slog.Logger
}

// New creates an Ollama client from config. The fallback model list is
// returned by ListModels when the tags query fails.
func New(cfg config.GenerationConfig, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{
		baseURL:  baseURL,
		fallback: cfg.FallbackModels,
		client:   newHTTPClient(cfg.ConnTimeout, cfg.RespTimeout),
		logger:   logger,
	}
}

// newHTTPClient builds an HTTP client with separate connect and overall
// timeouts.
func newHTTPClient(connTimeout, respTimeout time.Duration) *http.Client {
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}
	if respTimeout == 0 {
		respTimeout = defaultRespTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connTimeout}).DialContext,
		},
		Timeout: connTimeout + respTimeout,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate implements domain.TextGenerator using the /api/generate endpoint
// with streaming disabled.
func (c *Client) Generate(ctx context.Context, prompt, model string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.doJSONRequest(ctx, c.baseURL+"/api/generate", body)
	if err != nil {
		return "", err
	}

	var chunk generateChunk
	if err := json.Unmarshal(respBody, &chunk); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return chunk.Response, nil
}

// Stream implements domain.TextGenerator. The native API streams NDJSON
// lines; each line's response fragment is fed to onToken and appended to the
// returned concatenation. onToken may be nil.
func (c *Client) Stream(ctx context.Context, prompt, model string, onToken domain.TokenFunc) (string, error) {
	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: true})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpResp, err := c.doStreamRequest(ctx, c.baseURL+"/api/generate", body)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Skip unparseable lines.
			continue
		}
		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if onToken != nil {
				onToken(chunk.Response)
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream: %w", err)
	}
	return full.String(), nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the locally available model names from /api/tags.
// When the query fails, the configured fallback list is returned instead of
// an error so model selection always has something to offer.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("model listing failed, using fallback list", "error", err)
		return c.fallback, nil
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil || httpResp.StatusCode != http.StatusOK {
		c.logger.Warn("model listing failed, using fallback list",
			"status", httpResp.StatusCode, "error", err)
		return c.fallback, nil
	}

	var tags tagsResponse
	if err := json.Unmarshal(respBody, &tags); err != nil {
		c.logger.Warn("model listing unmarshal failed, using fallback list", "error", err)
		return c.fallback, nil
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	if len(names) == 0 {
		return c.fallback, nil
	}
	return names, nil
}

// Healthy checks if the Ollama server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return false
	}
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return false
	}
	httpResp.Body.Close()
	return httpResp.StatusCode == http.StatusOK
}

// doJSONRequest performs a JSON POST and returns the response body.
func (c *Client) doJSONRequest(ctx context.Context, url string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", httpResp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// doStreamRequest performs a JSON POST for a streaming response.
// The caller must close the returned body.
func (c *Client) doStreamRequest(ctx context.Context, url string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("API error %d: %s", httpResp.StatusCode, string(respBody))
	}
	return httpResp, nil
}
