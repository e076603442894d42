package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	rerrors "github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/reactobj"
)

// defaultTracerName names the tracer used when Config.Tracer is nil.
const defaultTracerName = "github.com/vango-dev/reactobj/pkg/inspect"

// Server serves a Hub over HTTP and WebSocket.
type Server struct {
	config   *Config
	hub      *Hub
	router   chi.Router
	upgrader websocket.Upgrader
	metrics  *serverMetrics
	gatherer prometheus.Gatherer
	tracer   trace.Tracer
	logger   *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	watches    map[*watchConn]struct{}
}

// New creates a Server around a new hub holding initial.
func New(cfg *Config, initial any) *Server {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("component", "inspect")

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(defaultTracerName)
	}

	storeOpts := []reactobj.Option{reactobj.WithTracer(tracer)}
	s := &Server{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		tracer:  tracer,
		logger:  logger,
		watches: make(map[*watchConn]struct{}),
	}
	if cfg.Metrics {
		s.metrics = newServerMetrics(cfg)
		s.gatherer = cfg.gatherer()
		storeOpts = append(storeOpts, reactobj.WithMetrics(reactobj.NewMetrics(
			reactobj.WithRegistry(cfg.registerer()),
			reactobj.WithNamespace(cfg.Namespace),
			reactobj.WithSubsystem(cfg.Subsystem),
		)))
	}
	s.hub = NewHub(initial, cfg.MaxCycles, logger, storeOpts...)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/value", s.handleGetValue)
		r.Put("/value", s.handleSetValue)
		r.Post("/invalidate", s.handleInvalidate)
		r.Get("/stats", s.handleStats)
		r.Get("/dependencies", s.handleDependencies)
		r.Get("/watch", s.handleWatch)

		if s.config.Snapshots != nil {
			r.Route("/snapshots", func(r chi.Router) {
				r.Get("/", s.handleListSnapshots)
				r.Put("/{name}", s.handleSaveSnapshot)
				r.Delete("/{name}", s.handleDeleteSnapshot)
				r.Post("/{name}/restore", s.handleRestoreSnapshot)
			})
		}
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the server's http.Handler for mounting elsewhere.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the hub owning the store.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe listens on Config.Address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return rerrors.New("R040").Wrap(err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return rerrors.New("R040").Wrap(err)

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops the HTTP server and the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.httpServer
	for wc := range s.watches {
		wc.close()
	}
	s.mu.Unlock()

	// http.Server.Shutdown does not wait for hijacked connections.
	s.hub.Close()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

type valueResponse struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
	Value any    `json:"value,omitempty"`
}

func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	path, ok := s.pathParam(w, r)
	if !ok {
		return
	}
	value, found, err := s.hub.Get(r.Context(), path)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Path: path.String(), Found: found, Value: value})
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	path, ok := s.pathParam(w, r)
	if !ok {
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)
	var value any
	if err := json.NewDecoder(body).Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, rerrors.New("R002"))
			return
		}
		writeError(w, http.StatusBadRequest, rerrors.New("R002").
			WithDetail("The request body must be a single JSON value.").
			Wrap(err))
		return
	}

	changed, err := s.hub.Set(r.Context(), path, value)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	s.logger.Info("value set", "path", path.String(), "changed", changed)
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	path, ok := s.pathParam(w, r)
	if !ok {
		return
	}
	if err := s.hub.Invalidate(r.Context(), path); err != nil {
		s.writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.hub.Stats(r.Context())
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"nodes":                 stats.Nodes,
		"records":               stats.Records,
		"pending_invalidations": stats.PendingInvalidations,
		"pending_removals":      stats.PendingRemovals,
	})
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	deps, err := s.hub.Dependencies(r.Context())
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	if deps == nil {
		deps = []Dependency{}
	}
	writeJSON(w, http.StatusOK, deps)
}

// pathParam parses the path query parameter, writing a 400 on failure.
func (s *Server) pathParam(w http.ResponseWriter, r *http.Request) (keypath.Path, bool) {
	path, err := keypath.Parse(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, rerrors.New("R001").Wrap(err))
		return keypath.Root, false
	}
	return path, true
}

func (s *Server) writeHubError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		// The client went away.
		return
	}
	s.logger.Error("hub request failed", "error", err)
	status := http.StatusInternalServerError
	if errors.Is(err, ErrClosed) {
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, rerrors.New("R040").Wrap(err))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err *rerrors.Error) {
	writeJSON(w, status, errorResponse{
		Code:    err.Code,
		Message: err.Message,
		Error:   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("response write failed", "error", err)
	}
}
