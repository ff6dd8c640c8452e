package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readHeaderTimeout = 10 * time.Second

// Server is the single HTTP listener of the serve command. Besides /metrics
// it answers /health (liveness) and /ready (readiness), and hosts whatever
// handlers are mounted through WithHandler.
type Server struct {
	httpServer *http.Server
}

type serverOptions struct {
	ready    func() error
	handlers map[string]http.Handler
}

// ServerOption customises NewServer.
type ServerOption func(*serverOptions)

// WithHandler mounts h under pattern.
func WithHandler(pattern string, h http.Handler) ServerOption {
	return func(o *serverOptions) {
		o.handlers[pattern] = h
	}
}

// WithReadiness makes /ready answer 503 with the error text while check
// fails. Without it /ready mirrors /health.
func WithReadiness(check func() error) ServerOption {
	return func(o *serverOptions) {
		o.ready = check
	}
}

// NewServer builds the listener for addr (e.g. ":8080"). It does not bind
// until Start.
func NewServer(addr string, gatherer prometheus.Gatherer, opts ...ServerOption) *Server {
	o := serverOptions{handlers: make(map[string]http.Handler)}
	for _, opt := range opts {
		opt(&o)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", probe(nil))
	mux.HandleFunc("/ready", probe(o.ready))
	for pattern, h := range o.handlers {
		mux.Handle(pattern, h)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

func probe(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if check != nil {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(err.Error())) //nolint:errcheck // probe body is informational
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck // probe body is informational
	}
}

// Start serves in the background. The returned channel yields at most one
// error and is closed once the listener stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server on %s: %w", s.httpServer.Addr, err)
		}
	}()
	return errCh
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
