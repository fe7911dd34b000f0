// Package httpserver provides the small /healthz, /readyz, /metrics HTTP
// surface every daemon exposes for operators, independent of the §4
// protocols each daemon implements on its own socket/TCP listener.
package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
)

// Status is the JSON body returned by /healthz.
type Status struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Server is the operator-facing HTTP surface for one daemon.
type Server struct {
	service   string
	startTime time.Time
	logger    *obslog.Logger

	mu     sync.RWMutex
	ready  bool
	checks map[string]func() error

	httpServer *http.Server
}

// New builds a Server bound to addr (recommended: loopback-only, e.g.
// "127.0.0.1:0" with an ephemeral port per daemon in production configs).
func New(service, addr string, logger *obslog.Logger) *Server {
	s := &Server{
		service:   service,
		startTime: time.Now(),
		logger:    logger,
		checks:    make(map[string]func() error),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// RegisterCheck adds a named health check; /healthz reports unhealthy (503)
// if any check errors. /readyz does not consult these checks.
func (s *Server) RegisterCheck(name string, check func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// SetReady flips the top-level readiness flag (e.g. false until the
// aggregator socket is accepting connections).
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// ListenAndServe runs until ctx is done, then shuts down within a 5s grace
// period per spec §5's cancellation rule.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checks := make(map[string]string, len(s.checks))
	healthy := true
	for name, check := range s.checks {
		if err := check(); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}
	s.mu.RUnlock()

	status := Status{
		Status:  "healthy",
		Service: s.service,
		Uptime:  time.Since(s.startTime).String(),
		Checks:  checks,
	}
	if !healthy {
		status.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.WithError(err).Warn("health handler encode failed")
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
