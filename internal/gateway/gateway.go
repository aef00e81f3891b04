// Package gateway issues JSON requests against the reading server and
// hands back raw responses. Interpreting status codes is the caller's job.
//
// # Usage
//
//	gw := gateway.New("http://localhost:8080")
//	resp, err := gw.Do(ctx, http.MethodGet, "/history/get/abc", nil)
//	if err != nil {
//	    // transport failure: no response at all
//	}
//	if resp.StatusCode != http.StatusOK {
//	    // application failure, resp.Text() holds the reason
//	}
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Response is the raw outcome of a request that reached the server.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Result is either a Response or a transport error, never both.
type Result struct {
	Response *Response
	Err      error
}

// OK reports whether the request reached the server.
func (r Result) OK() bool {
	return r.Err == nil && r.Response != nil
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// WithTimeout bounds each request. Zero means no timeout. The client passed
// to WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = &d
	}
}

// Gateway issues requests relative to a base URL. It never retries.
type Gateway struct {
	httpClient *http.Client
	baseURL    string
	timeout    *time.Duration
}

// New creates a Gateway for baseURL.
func New(baseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.timeout != nil {
		c := *g.httpClient
		c.Timeout = *g.timeout
		g.httpClient = &c
	}
	return g
}

// BaseURL returns the URL requests are issued against.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// Do performs the request synchronously. The returned error is non-nil only
// when no response was received; any HTTP status yields a Response.
func (g *Gateway) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       respBody,
	}, nil
}

// Go performs the request in the background. The channel receives exactly
// one Result and is then closed.
func (g *Gateway) Go(ctx context.Context, method, path string, body any) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		resp, err := g.Do(ctx, method, path, body)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

// Request performs the request in the background and reports through
// callbacks. onResult runs once for any HTTP response. On transport failure
// onFailure runs if provided; otherwise the failure is only logged.
func (g *Gateway) Request(
	ctx context.Context,
	method, path string,
	onResult func(*Response),
	onFailure func(error),
	body any,
) {
	go func() {
		resp, err := g.Do(ctx, method, path, body)
		if err != nil {
			if onFailure != nil {
				onFailure(err)
				return
			}
			log.Printf("[GATEWAY] %s %s failed: %v", method, path, err)
			return
		}
		if onResult != nil {
			onResult(resp)
		}
	}()
}
