// Package server composes controllers into the HTTP surface of the api and
// web apps. The gateway controller is always registered first so it owns its path.
package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tordrt/autogql/internal/gateway"
)

// Route binds a handler to a ServeMux pattern
type Route struct {
	Pattern string
	Handler http.Handler
}

// Controller contributes routes to the server
type Controller interface {
	Routes() []Route
}

// Provider is a background dependency that runs for the lifetime of the server
type Provider interface {
	Run(ctx context.Context)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context)

func (f ProviderFunc) Run(ctx context.Context) { f(ctx) }

// Module declares what the server is made of
type Module struct {
	Gateway     *GatewayController
	Controllers []Controller
	Providers   []Provider
}

// GatewayController mounts the GraphQL endpoint
type GatewayController struct {
	Gateway *gateway.Gateway
}

func (c *GatewayController) Routes() []Route {
	return []Route{{Pattern: c.Gateway.Options().MountPath, Handler: c.Gateway.Handler()}}
}

// AppService backs AppController
type AppService struct{}

// Hello is the greeting served at the root path
func (AppService) Hello() string {
	return "Hello World!"
}

// AppController serves the root greeting and the health check
type AppController struct {
	Service AppService
	// Ping reports store reachability; nil skips the check
	Ping func(ctx context.Context) error
}

func (c *AppController) Routes() []Route {
	return []Route{
		{Pattern: "GET /{$}", Handler: http.HandlerFunc(c.hello)},
		{Pattern: "GET /health", Handler: http.HandlerFunc(c.health)},
	}
}

func (c *AppController) hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(c.Service.Hello()))
}

func (c *AppController) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if c.Ping != nil {
		if err := c.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// MetricsController exposes a Prometheus registry
type MetricsController struct {
	Gatherer prometheus.Gatherer
}

func (c *MetricsController) Routes() []Route {
	return []Route{{
		Pattern: "GET /metrics",
		Handler: promhttp.HandlerFor(c.Gatherer, promhttp.HandlerOpts{}),
	}}
}
