package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config controls the listener
type Config struct {
	Listen          string
	ShutdownTimeout time.Duration
}

// Server runs the module's controllers and providers
type Server struct {
	config    Config
	logger    *zap.Logger
	handler   http.Handler
	providers []Provider

	mu         sync.Mutex
	running    bool
	httpServer *http.Server
	listener   net.Listener
	cancel     context.CancelFunc
	providerWG sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// New registers the gateway controller, if any, then the remaining
// controllers in order. A pattern that is already taken is an error.
func New(module Module, config Config, logger *zap.Logger) (*Server, error) {
	if module.Gateway == nil && len(module.Controllers) == 0 {
		return nil, errors.New("module has no controllers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	mux := http.NewServeMux()
	seen := map[string]string{}
	var controllers []Controller
	if module.Gateway != nil {
		controllers = append(controllers, module.Gateway)
	}
	controllers = append(controllers, module.Controllers...)
	for _, c := range controllers {
		name := fmt.Sprintf("%T", c)
		for _, route := range c.Routes() {
			if owner, ok := seen[route.Pattern]; ok {
				return nil, errors.Errorf("%s: route %q is already registered by %s", name, route.Pattern, owner)
			}
			if err := register(mux, route); err != nil {
				return nil, errors.Wrapf(err, "%s: route %q", name, route.Pattern)
			}
			seen[route.Pattern] = name
			logger.Debug("route registered", zap.String("controller", name), zap.String("pattern", route.Pattern))
		}
	}

	return &Server{
		config:    config,
		logger:    logger,
		handler:   requestID(accessLog(logger, recovery(logger, mux))),
		providers: module.Providers,
		stopChan:  make(chan struct{}),
	}, nil
}

// register turns ServeMux conflict panics into errors
func register(mux *http.ServeMux, route Route) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("%v", p)
		}
	}()
	mux.Handle(route.Pattern, route.Handler)
	return nil
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound address once Start has signalled ready
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener, starts the providers and serves until ctx is
// cancelled or Stop is called. ready is closed once the port is bound.
func (s *Server) Start(ctx context.Context, ready chan<- struct{}) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		s.mu.Unlock()
		return errors.Wrapf(err, "failed to listen on %s", s.config.Listen)
	}
	providerCtx, cancel := context.WithCancel(context.Background())
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.running = true
	s.listener = listener
	s.httpServer = server
	s.cancel = cancel
	s.mu.Unlock()

	for _, p := range s.providers {
		s.providerWG.Add(1)
		go func(p Provider) {
			defer s.providerWG.Done()
			p.Run(providerCtx)
		}(p)
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		s.logger.Info("server starting", zap.String("address", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	if ready != nil {
		close(ready)
	}

	select {
	case <-ctx.Done():
		s.logger.Info("server context cancelled, shutting down")
		return s.Stop(s.config.ShutdownTimeout)
	case <-s.stopChan:
		return nil
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		_ = s.Stop(s.config.ShutdownTimeout)
		return errors.Wrap(err, "HTTP server failed")
	}
}

// Stop gracefully shuts down the server and waits for the providers to exit
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	server := s.httpServer
	cancel := s.cancel
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopChan) })
	cancel()

	ctx, done := context.WithTimeout(context.Background(), timeout)
	defer done()
	err := server.Shutdown(ctx)
	s.providerWG.Wait()
	if err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	s.logger.Info("server stopped")
	return nil
}
