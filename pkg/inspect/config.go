package inspect

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactobj/pkg/snapshot"
)

// Config configures a Server.
type Config struct {
	// Address is the address to listen on (e.g., "localhost:7070").
	Address string

	// ReadBufferSize is the WebSocket read buffer size.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	WriteBufferSize int

	// CheckOrigin validates the Origin of WebSocket upgrades.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// SendQueueSize is the number of updates buffered per watch. A watch
	// whose queue overflows is closed.
	SendQueueSize int

	// PingInterval is the interval between WebSocket pings.
	PingInterval time.Duration

	// WriteTimeout bounds each WebSocket write.
	WriteTimeout time.Duration

	// ReadHeaderTimeout is passed to http.Server.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds a graceful shutdown.
	ShutdownTimeout time.Duration

	// MaxCycles bounds each flush of the hub's tracker.
	MaxCycles int

	// MaxBodySize limits PUT request bodies in bytes.
	MaxBodySize int64

	// Metrics enables Prometheus metrics for the store and the server, and
	// the /metrics endpoint.
	Metrics bool

	// Namespace and Subsystem prefix metric names.
	Namespace string
	Subsystem string

	// Registry receives the metrics and backs /metrics.
	// Default: the Prometheus default registerer and gatherer.
	Registry *prometheus.Registry

	// Tracer creates spans for HTTP requests and store passes.
	// Default: the global tracer provider.
	Tracer trace.Tracer

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger

	// Snapshots enables the /v1/snapshots routes when set.
	Snapshots snapshot.Store
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           "localhost:7070",
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       SameOriginCheck,
		SendQueueSize:     64,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxCycles:         100,
		MaxBodySize:       1 << 20,
		Namespace:         "reactobj",
	}
}

// withDefaults returns a copy of c with unset fields filled in.
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	cfg := *c
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = defaults.ReadBufferSize
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = defaults.WriteBufferSize
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = defaults.CheckOrigin
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaults.SendQueueSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = defaults.MaxCycles
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}
	if cfg.Namespace == "" {
		cfg.Namespace = defaults.Namespace
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &cfg
}

// registerer returns where metrics are registered.
func (c *Config) registerer() prometheus.Registerer {
	if c.Registry != nil {
		return c.Registry
	}
	return prometheus.DefaultRegisterer
}

// gatherer returns what /metrics serves.
func (c *Config) gatherer() prometheus.Gatherer {
	if c.Registry != nil {
		return c.Registry
	}
	return prometheus.DefaultGatherer
}

// SameOriginCheck accepts WebSocket upgrades whose Origin host matches the
// request host, and requests without an Origin header.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return originURL.Host == r.Host
}

// AllowOrigins returns a CheckOrigin function accepting same-origin requests
// and the listed origins. "*" accepts any origin.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	if slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		if SameOriginCheck(r) {
			return true
		}
		return slices.Contains(origins, r.Header.Get("Origin"))
	}
}
