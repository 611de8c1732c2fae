package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors for request failures.
var (
	// ErrTransport is returned when the request could not be sent or the
	// response could not be read.
	ErrTransport = errors.New("graphql transport failure")

	// ErrHTTPStatus is returned for non-2xx responses.
	ErrHTTPStatus = errors.New("graphql unexpected HTTP status")

	// ErrGraphQL is returned when the response carries a non-empty errors array.
	ErrGraphQL = errors.New("graphql query failed")

	// ErrDecode is returned when the response body is not valid JSON.
	ErrDecode = errors.New("graphql response decode failed")

	// ErrEndpoint is returned when no endpoint can be derived.
	ErrEndpoint = errors.New("invalid graphql endpoint")
)

// DefaultPath is the endpoint path relative to the page origin.
const DefaultPath = "/graphql"

// maxResponseSize caps the response body read from the endpoint.
const maxResponseSize = 16 * 1024 * 1024

// Client posts GraphQL queries to a single endpoint.
type Client struct {
	endpoint  string
	client    *http.Client
	userAgent string
	cookie    string
	headers   map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithCookie sets the Cookie header sent with every request.
func WithCookie(cookie string) Option {
	return func(cl *Client) {
		cl.cookie = cookie
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) Option {
	return func(cl *Client) {
		for k, v := range headers {
			cl.headers[k] = v
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		headers:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL queries are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// EndpointFor derives the endpoint from the origin of pageURL and path.
// An absolute path overrides the page origin entirely.
func EndpointFor(pageURL, path string) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	if p, err := url.Parse(path); err == nil && p.IsAbs() {
		return p.String(), nil
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: page URL %q has no http origin", ErrEndpoint, pageURL)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	origin := &url.URL{Scheme: u.Scheme, Host: u.Host}
	return origin.String() + path, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Do posts query with variables and decodes the data member into out.
// out may be nil when the caller only cares about success.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	var payload response
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(payload.Errors) > 0 {
		messages := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(messages, "; "))
	}

	if out == nil || len(payload.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload.Data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}
