// Package gateway serves a GraphQL API derived from a relational store. The
// compiled schema is swapped atomically whenever the store structure changes.
package gateway

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	farm "github.com/dgryski/go-farm"
	"github.com/graphql-go/graphql"
	gast "github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/handler"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/derive"
	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/formatter"
	"github.com/tordrt/autogql/internal/schema"
)

// Gateway owns the current derived schema and executes operations against it
type Gateway struct {
	conn       db.Conn
	schemaName string
	opts       Options
	logger     *zap.Logger
	metrics    *Metrics
	hub        *hub

	// rebuildMu serializes derivations; readers only touch current
	rebuildMu sync.Mutex
	current   atomic.Pointer[state]
}

type state struct {
	source      *schema.Schema
	result      *derive.Result
	schema      *graphql.Schema
	fingerprint uint64
	derivedAt   time.Time
}

// New derives the initial schema. It fails when the store cannot be
// introspected or the derived schema does not compile.
func New(ctx context.Context, conn db.Conn, schemaName string, opts Options, logger *zap.Logger, metrics *Metrics) (*Gateway, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		conn:       conn,
		schemaName: schemaName,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
		hub:        newHub(metrics),
	}
	if _, err := g.Rebuild(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Options returns the normalized options the gateway runs with
func (g *Gateway) Options() Options {
	return g.opts
}

// SDL returns the current schema document
func (g *Gateway) SDL() string {
	return g.current.Load().result.SDL
}

// Source returns the relational model the current schema was derived from
func (g *Gateway) Source() *schema.Schema {
	return g.current.Load().source
}

// Fingerprint identifies the store structure behind the current schema
func (g *Gateway) Fingerprint() uint64 {
	return g.current.Load().fingerprint
}

// Rebuild re-introspects the store and swaps in a new schema when its
// structure changed. It reports whether a swap happened. On failure the
// previous schema stays in service.
func (g *Gateway) Rebuild(ctx context.Context) (bool, error) {
	g.rebuildMu.Lock()
	defer g.rebuildMu.Unlock()

	start := time.Now()
	next, err := g.derive(ctx)
	if err != nil {
		g.metrics.recordDerivation(err, time.Since(start))
		return false, err
	}
	if next == nil {
		return false, nil
	}
	g.metrics.recordDerivation(nil, time.Since(start))

	if g.opts.ExportSchemaPath != "" {
		if err := formatter.WriteSDL(g.opts.ExportSchemaPath, next.result.SDL); err != nil {
			return false, err
		}
	}

	previous := g.current.Swap(next)
	g.logger.Info("schema derived",
		zap.Int("tables", len(next.source.Tables)),
		zap.Int("functions", len(next.source.Functions)),
		zap.String("fingerprint", strconv.FormatUint(next.fingerprint, 16)),
		zap.Duration("took", time.Since(start)))

	if previous != nil {
		g.hub.publish(schemaChange{
			Fingerprint: strconv.FormatUint(next.fingerprint, 16),
			Tables:      len(next.source.Tables),
			DerivedAt:   next.derivedAt,
		})
	}
	return true, nil
}

// derive returns nil when the store structure is unchanged
func (g *Gateway) derive(ctx context.Context) (*state, error) {
	extractor, err := db.NewSchemaExtractor(g.conn, g.schemaName)
	if err != nil {
		return nil, err
	}
	source, err := extractor.ExtractSchema(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to introspect store")
	}

	encoded, err := json.Marshal(source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fingerprint store structure")
	}
	fingerprint := farm.Fingerprint64(encoded)
	if cur := g.current.Load(); cur != nil && cur.fingerprint == fingerprint {
		return nil, nil
	}

	opts := g.opts.deriveOptions()
	if g.opts.Subscriptions {
		opts.Plugins = append(opts.Plugins, subscriptionPlugin{hub: g.hub})
	}
	result, err := derive.Derive(source, g.conn, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive schema")
	}
	compiled, err := exec.Compile(result.Schema, result.Bindings, exec.Options{DynamicJSON: g.opts.DynamicJSON})
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile schema")
	}

	return &state{
		source:      source,
		result:      result,
		schema:      compiled,
		fingerprint: fingerprint,
		derivedAt:   time.Now().UTC(),
	}, nil
}

// Execute runs one operation against the current schema
func (g *Gateway) Execute(ctx context.Context, req *handler.RequestOptions) *Response {
	start := time.Now()
	st := g.current.Load()

	res := graphql.Do(graphql.Params{
		Schema:         *st.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	out := g.shape(res)
	g.metrics.recordRequest(operationType(req.Query, req.OperationName), len(out.Errors) > 0, time.Since(start))
	return out
}

// Subscribe starts a subscription operation. Every event is shaped like a
// query response. The stream ends when ctx is cancelled.
func (g *Gateway) Subscribe(ctx context.Context, document, operationName string, variables map[string]interface{}) (<-chan interface{}, error) {
	if !g.opts.Subscriptions {
		return nil, errors.New("subscriptions are disabled")
	}
	if op := operationType(document, operationName); op != gast.OperationTypeSubscription {
		return nil, errors.Errorf("expected a subscription operation, got %s", op)
	}

	st := g.current.Load()
	results := graphql.Subscribe(graphql.Params{
		Schema:         *st.schema,
		RequestString:  document,
		VariableValues: variables,
		OperationName:  operationName,
		Context:        ctx,
	})

	out := make(chan interface{})
	go func() {
		defer close(out)
		for res := range results {
			select {
			case out <- g.shape(res):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// operationType names the operation req selects, or "invalid" when it cannot be parsed
func operationType(query, operationName string) string {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return "invalid"
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*gast.OperationDefinition)
		if !ok {
			continue
		}
		if operationName == "" || (op.Name != nil && op.Name.Value == operationName) {
			return op.Operation
		}
	}
	return "invalid"
}
