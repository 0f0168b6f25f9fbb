package gateway

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/99designs/gqlgen/graphql/playground"
	graphqlws "github.com/graph-gophers/graphql-transport-ws/graphqlws"
	"github.com/graphql-go/handler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxRequestBody = 8 << 20

// Handler serves the GraphQL endpoint: queries and mutations over GET and
// POST, batches as JSON arrays, graphql-ws upgrades and the exploration UI.
func (g *Gateway) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(g.serveGraphQL)
	if g.opts.Subscriptions {
		h = graphqlws.NewHandlerFunc(g, h)
	}
	if g.opts.GraphiQL {
		h = g.exploreHandler(h)
	}
	return g.recoveryHandler(h)
}

func (g *Gateway) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		g.write(w, r, http.StatusMethodNotAllowed, g.errorResponse(
			errors.New("unrecognised request method, please use GET or POST for GraphQL requests")))
		return
	}

	batch, single, err := g.readRequest(r)
	if err != nil {
		g.write(w, r, http.StatusBadRequest, g.errorResponse(err))
		return
	}

	if batch == nil {
		g.write(w, r, http.StatusOK, g.Execute(r.Context(), single))
		return
	}

	results := make([]*Response, len(batch))
	for i := range batch {
		results[i] = g.Execute(r.Context(), &batch[i])
	}
	g.write(w, r, http.StatusOK, results)
}

// readRequest returns either a batch (a POSTed JSON array) or a single request
func (g *Gateway) readRequest(r *http.Request) ([]handler.RequestOptions, *handler.RequestOptions, error) {
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to parse gzip")
		}
		defer func() { _ = zr.Close() }()
		r.Body = io.NopCloser(zr)
	}

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to read request body")
		}
		if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
			if !g.opts.EnableQueryBatching {
				return nil, nil, errors.New("query batching is disabled")
			}
			var batch []handler.RequestOptions
			if err := json.Unmarshal(trimmed, &batch); err != nil {
				return nil, nil, errors.Wrap(err, "not a valid GraphQL batch body")
			}
			if len(batch) == 0 {
				return nil, nil, errors.New("received an empty batch")
			}
			return batch, nil, nil
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	opts := handler.NewRequestOptions(r)
	if strings.TrimSpace(opts.Query) == "" {
		return nil, nil, errors.New("must provide a query string")
	}
	return nil, opts, nil
}

// exploreHandler serves the UI to browsers and passes everything else through
func (g *Gateway) exploreHandler(next http.Handler) http.Handler {
	var ui http.Handler = playground.Handler("autogql GraphiQL", g.opts.MountPath)
	if g.opts.EnhanceGraphiQL {
		ui = playground.ApolloSandboxHandler("autogql", g.opts.MountPath)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Query().Get("query") == "" &&
			strings.Contains(r.Header.Get("Accept"), "text/html") {
			ui.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// write sends body as JSON, gzipped when the client accepts it
func (g *Gateway) write(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	var out io.Writer = w
	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		gzw := gzip.NewWriter(w)
		defer func() { _ = gzw.Close() }()
		out = gzw
	}

	w.WriteHeader(status)
	if err := json.NewEncoder(out).Encode(body); err != nil {
		g.logger.Error("failed to write response", zap.Error(err))
	}
}

// recoveryHandler converts a panic into a GraphQL error response
func (g *Gateway) recoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				g.logger.Error("panic while serving graphql",
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()))
				err := errors.Errorf("Internal Server Error - a panic was trapped: %v", p)
				w.Header().Set("Content-Type", "application/json")
				g.write(w, r, http.StatusInternalServerError, g.errorResponse(err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
