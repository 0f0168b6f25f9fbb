package client

import (
	"context"
	"encoding/json"
	"sync"
)

// Result is the state of a query at a call site: fetching, data or error
type Result[T any] struct {
	Fetching bool
	Data     *T
	Error    error
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		Fetching bool   `json:"fetching"`
		Data     *T     `json:"data"`
		Error    any    `json:"error"`
		Errors   Errors `json:"errors,omitempty"`
	}{Fetching: r.Fetching, Data: r.Data}
	if r.Error != nil {
		out.Error = r.Error.Error()
		if gqlErrs, ok := r.Error.(Errors); ok {
			out.Errors = gqlErrs
		}
	}
	return json.Marshal(out)
}

// Query is a call-site handle for one document. Every Run supersedes the
// runs before it: a superseded run is cancelled and never published.
type Query[T, V any] struct {
	client *Client
	doc    TypedDocument[T, V]

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	result Result[T]
}

// NewQuery creates a handle; nothing is fetched until Run
func NewQuery[T, V any](c *Client, doc TypedDocument[T, V]) *Query[T, V] {
	return &Query[T, V]{client: c, doc: doc}
}

// Run starts fetching with vars. The returned channel yields this run's
// result if it is still the latest when it settles, and is closed either way.
func (q *Query[T, V]) Run(ctx context.Context, vars V) <-chan Result[T] {
	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
	}
	q.seq++
	seq := q.seq
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.result = Result[T]{Fetching: true, Data: q.result.Data}
	q.mu.Unlock()

	out := make(chan Result[T], 1)
	go func() {
		defer close(out)
		defer cancel()

		data, err := Execute(runCtx, q.client, q.doc, vars)

		q.mu.Lock()
		defer q.mu.Unlock()
		if seq != q.seq {
			return
		}
		q.cancel = nil

		res := Result[T]{Error: err}
		if err == nil {
			res.Data = &data
		}
		q.result = res
		out <- res
	}()
	return out
}

// Result returns the latest published state
func (q *Query[T, V]) Result() Result[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.result
}
