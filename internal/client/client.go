// Package client talks GraphQL over HTTP to the gateway. Generated documents
// bind result and variable types to operations so callers get typed data.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Document marks a GraphQL operation literal for codegen and returns it unchanged.
// Codegen scans calls to it and generates a typed document per operation.
func Document(source string) string {
	return source
}

// TypedDocument is an operation whose data decodes into T and whose variables are V
type TypedDocument[T, V any] struct {
	Source        string
	OperationName string
}

// Request is one GraphQL-over-HTTP request body
type Request struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName,omitempty"`
	Variables     any    `json:"variables,omitempty"`
}

// Response is one GraphQL response body
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors Errors          `json:"errors,omitempty"`
}

// Location points into the operation source
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is a GraphQL error object
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e Error) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ".") + ": " + e.Message
}

// Errors is the error list of a response
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Client sends requests to one endpoint
type Client struct {
	endpoint string
	http     *http.Client
	header   http.Header
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header to every request
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Add(key, value) }
}

// New creates a client for endpoint
func New(endpoint string, opts ...Option) *Client {
	c := &Client{endpoint: endpoint, http: http.DefaultClient, header: http.Header{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends one request. GraphQL errors are returned in the response, not as err.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var resp Response
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Batch sends reqs as one array request and returns the responses in the same order
func (c *Client) Batch(ctx context.Context, reqs []Request) ([]*Response, error) {
	var resps []*Response
	if err := c.post(ctx, reqs, &resps); err != nil {
		return nil, err
	}
	if len(resps) != len(reqs) {
		return nil, errors.Errorf("batch of %d requests returned %d responses", len(reqs), len(resps))
	}
	return resps, nil
}

func (c *Client) post(ctx context.Context, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrapf(err, "failed to reach %s", c.endpoint)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	// error statuses still carry a GraphQL body when the gateway produced them
	if err := json.Unmarshal(raw, out); err != nil {
		if httpResp.StatusCode >= http.StatusBadRequest {
			return errors.Errorf("%s returned %s", c.endpoint, httpResp.Status)
		}
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// Execute runs doc and decodes its data. On GraphQL errors the decoded
// partial data is returned together with an Errors value.
func Execute[T, V any](ctx context.Context, c *Client, doc TypedDocument[T, V], vars V) (T, error) {
	var data T
	resp, err := c.Do(ctx, Request{Query: doc.Source, OperationName: doc.OperationName, Variables: vars})
	if err != nil {
		return data, err
	}
	if len(resp.Data) > 0 && !bytes.Equal(resp.Data, []byte("null")) {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return data, errors.Wrapf(err, "failed to decode %s data", doc.OperationName)
		}
	}
	if len(resp.Errors) > 0 {
		return data, resp.Errors
	}
	return data, nil
}
