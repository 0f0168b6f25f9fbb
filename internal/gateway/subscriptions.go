package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tordrt/autogql/internal/derive"
	"github.com/tordrt/autogql/internal/exec"
)

// hub fans schema change events out to open subscriptions.
// Publishing never blocks: a subscriber that has not drained its buffer misses the event.
type hub struct {
	mu      sync.Mutex
	next    uint64
	subs    map[uint64]chan interface{}
	metrics *Metrics
}

func newHub(metrics *Metrics) *hub {
	return &hub{subs: map[uint64]chan interface{}{}, metrics: metrics}
}

// subscribe returns a channel that is closed once ctx is done
func (h *hub) subscribe(ctx context.Context) chan interface{} {
	ch := make(chan interface{}, 1)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()
	h.metrics.subscriptionOpened()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
		h.metrics.subscriptionClosed()
	}()
	return ch
}

func (h *hub) publish(event interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// schemaChange is the payload of Subscription.schemaChanged
type schemaChange struct {
	Fingerprint string
	Tables      int
	DerivedAt   time.Time
}

// subscriptionPlugin adds the Subscription root with a schemaChanged stream
type subscriptionPlugin struct {
	hub *hub
}

func (subscriptionPlugin) Name() string { return "subscriptions" }

func (p subscriptionPlugin) Apply(b *derive.Builder) error {
	if err := b.Define(&ast.Definition{
		Kind:        ast.Object,
		Name:        "SchemaChange",
		Description: "Emitted when the store structure changed and the schema was re-derived.",
		Fields: ast.FieldList{
			{Name: "fingerprint", Type: ast.NonNullNamedType("String", nil), Description: "Fingerprint of the introspected store structure."},
			{Name: "tables", Type: ast.NonNullNamedType("Int", nil), Description: "Number of exposed tables."},
			{Name: "derivedAt", Type: ast.NonNullNamedType(exec.Datetime, nil)},
		},
	}); err != nil {
		return err
	}
	b.EnsureObject("Subscription", "The root subscription type: contains events you can subscribe to.")

	return b.AddField("Subscription", &ast.FieldDefinition{
		Name:        "schemaChanged",
		Type:        ast.NonNullNamedType("SchemaChange", nil),
		Description: "Fires after every re-derivation of the schema.",
	}, exec.FieldResolver{
		Subscribe: func(rp graphql.ResolveParams) (interface{}, error) {
			return p.hub.subscribe(rp.Context), nil
		},
		Resolve: func(rp graphql.ResolveParams) (interface{}, error) {
			change, ok := rp.Source.(schemaChange)
			if !ok {
				return nil, nil
			}
			return map[string]interface{}{
				"fingerprint": change.Fingerprint,
				"tables":      change.Tables,
				"derivedAt":   change.DerivedAt,
			}, nil
		},
	})
}
