// Package oai is a wire-level client for OpenAI-style HTTP APIs. It covers
// request dispatch with retry, server-sent event streaming, and error
// mapping; it deliberately does not mirror the full request/response schema
// surface of the API.
package oai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fenlight/go-oai/retry"
	"github.com/fenlight/go-oai/sse"
)

// sentinel payload that cleanly terminates every SSE stream
const streamSentinel = "[DONE]"

// Debugger receives raw wire traffic for inspection. All methods may be
// called from the goroutine driving the request or stream.
type Debugger interface {
	RawRequest(url string, body []byte)
	RawEvent(data []byte)
}

// Client dispatches API calls through a Config. Non-streaming calls run
// under the retry policy; streaming calls retry connection establishment
// only, never mid-stream.
type Client struct {
	config     Config
	httpClient *http.Client
	policy     retry.Policy
	debugger   Debugger
}

// NewClient creates a client with the default HTTP client and retry policy.
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		policy: retry.DefaultPolicy,
	}
}

// WithHTTPClient sets the HTTP client used for all requests.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// WithRetryPolicy sets the backoff policy for non-streaming calls and for
// stream connection establishment.
func (c *Client) WithRetryPolicy(policy retry.Policy) *Client {
	c.policy = policy
	return c
}

func (c *Client) SetDebugger(d Debugger) {
	c.debugger = d
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeBody(body, out)
}

// Post marshals in, issues a POST request, and decodes the JSON response
// into out. The request body is replayed byte-identical across retry
// attempts.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	return decodeBody(body, out)
}

// Delete issues a DELETE request and decodes the JSON response into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return decodeBody(body, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	return retry.Do(ctx, c.policy, func() ([]byte, error) {
		resp, err := c.attempt(ctx, method, path, payload, false)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading response body: %w", err)
		}
		return body, nil
	})
}

// attempt performs one fresh network call. Each attempt gets its own
// request object and request ID.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, streaming bool) (*http.Response, error) {
	headers, err := c.config.Headers()
	if err != nil {
		return nil, retry.Permanent(err)
	}

	url := c.config.ResolveURL(path)
	if c.debugger != nil {
		c.debugger.RawRequest(url, payload)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("error creating request: %w", err))
	}
	for key, values := range headers {
		req.Header[key] = values
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	}

	client := c.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}
	return resp, nil
}

// responseError maps a non-2xx response to an HTTPError, parsing the API's
// error envelope when the body carries one.
func responseError(resp *http.Response) error {
	httpErr := &HTTPError{
		StatusCode:      resp.StatusCode,
		Status:          resp.Status,
		RetryAfterDelay: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil || len(body) == 0 {
		return httpErr
	}

	var wrapped struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Param   string `json:"param"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		httpErr.ErrorType = wrapped.Error.Type
		httpErr.Message = wrapped.Error.Message
		httpErr.Param = wrapped.Error.Param
		httpErr.Code = wrapped.Error.Code
		return httpErr
	}

	// Body read okay, but it wasn't the error envelope. Just repeat the
	// body up to a limit.
	text := string(body)
	if len(text) > 1024 {
		text = text[:1024]
	}
	httpErr.Message = text
	return httpErr
}

// parseRetryAfter handles both forms of the header: delay in seconds and an
// HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func decodeBody(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Data: body, Err: err}
	}
	return nil
}

// postStream establishes a streaming POST call. Only the connection attempt
// is retried: once the server starts sending events, partial delivery can't
// be replayed safely.
func (c *Client) postStream(ctx context.Context, path string, in any) (io.ReadCloser, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("error encoding JSON: %w", err)
	}
	resp, err := retry.Do(ctx, c.policy, func() (*http.Response, error) {
		return c.attempt(ctx, http.MethodPost, path, payload, true)
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// newEventDecoder wraps a live response body in the frame decoder every
// stream shares.
func newEventDecoder(body io.Reader) *sse.Decoder {
	dec := sse.NewDecoder(body)
	dec.Sentinel = streamSentinel
	return dec
}
