package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-dev/reactobj/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reactobj.json"

	// DefaultAddress is the default inspection server address.
	DefaultAddress = "localhost:7070"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "reactobj"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/reactobj"

	// DefaultBufferSize is the default WebSocket buffer size in bytes.
	DefaultBufferSize = 1024

	// DefaultMaxCycles bounds a single tracker flush.
	DefaultMaxCycles = 100
)

// Config represents the complete reactobj.json configuration.
type Config struct {
	// Log configures structured logging.
	Log LogConfig `json:"log"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing configures OpenTelemetry spans.
	Tracing TracingConfig `json:"tracing"`

	// Serve configures the inspection server.
	Serve ServeConfig `json:"serve"`

	// Store configures the store and its scheduler.
	Store StoreConfig `json:"store"`

	// Snapshots configures where named snapshots are kept.
	Snapshots SnapshotConfig `json:"snapshots"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers store metrics and serves /metrics.
	Enabled bool `json:"enabled"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty"`

	// Subsystem is the metrics subsystem.
	Subsystem string `json:"subsystem,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled turns on flush and prune spans.
	Enabled bool `json:"enabled"`

	// TracerName is the name passed to the tracer provider.
	TracerName string `json:"tracerName,omitempty"`
}

// ServeConfig contains inspection server settings.
type ServeConfig struct {
	// Address is the host:port to listen on.
	Address string `json:"address,omitempty"`

	// ReadBufferSize is the WebSocket read buffer size in bytes.
	ReadBufferSize int `json:"readBufferSize,omitempty"`

	// WriteBufferSize is the WebSocket write buffer size in bytes.
	WriteBufferSize int `json:"writeBufferSize,omitempty"`

	// AllowedOrigins lists origins accepted for WebSocket upgrades.
	// Empty means same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// StoreConfig contains store settings.
type StoreConfig struct {
	// InitialDocument is a JSON or YAML file loaded as the initial value.
	// Relative paths are resolved against the config file's directory.
	InitialDocument string `json:"initialDocument,omitempty"`

	// MaxFlushCycles bounds the cycles of a single tracker flush.
	MaxFlushCycles int `json:"maxFlushCycles,omitempty"`
}

// SnapshotConfig contains snapshot storage settings. At most one of Dir
// and S3 may be set; with neither, snapshots are disabled.
type SnapshotConfig struct {
	// Dir is a local directory. Relative paths are resolved against the
	// config file's directory.
	Dir string `json:"dir,omitempty"`

	// S3 stores snapshots in a bucket.
	S3 *S3Config `json:"s3,omitempty"`

	// MaxSize limits the encoded size of a snapshot in bytes (0 = no limit).
	MaxSize int64 `json:"maxSize,omitempty"`
}

// S3Config contains S3 snapshot settings. Credentials and, when Region is
// empty, the region come from the default AWS configuration chain.
type S3Config struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty"`

	// PathStyle addresses the bucket in the path instead of the host.
	PathStyle bool `json:"pathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Serve: ServeConfig{
			Address:         DefaultAddress,
			ReadBufferSize:  DefaultBufferSize,
			WriteBufferSize: DefaultBufferSize,
		},
		Store: StoreConfig{
			MaxFlushCycles: DefaultMaxCycles,
		},
	}
}

// Load reads reactobj.json from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadOrDefault is Load, returning defaults when the directory has no
// reactobj.json.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if stderrors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	return cfg, err
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R010").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'reactobj config init' or pass settings as flags").
				Wrap(err)
		}
		return nil, errors.New("R010").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("R010").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("R010").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("R010").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Serve.Address == "" {
		c.Serve.Address = DefaultAddress
	}
	if c.Serve.ReadBufferSize == 0 {
		c.Serve.ReadBufferSize = DefaultBufferSize
	}
	if c.Serve.WriteBufferSize == 0 {
		c.Serve.WriteBufferSize = DefaultBufferSize
	}
	if c.Store.MaxFlushCycles == 0 {
		c.Store.MaxFlushCycles = DefaultMaxCycles
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return errors.New("R010").WithDetail(err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("R010").
			WithDetail(fmt.Sprintf("Unknown log format %q", c.Log.Format)).
			WithSuggestion(`Use "text" or "json"`)
	}
	if _, _, err := net.SplitHostPort(c.Serve.Address); err != nil {
		return errors.New("R010").
			WithDetail(fmt.Sprintf("Invalid serve address %q", c.Serve.Address)).
			WithSuggestion(`Use host:port, e.g. "localhost:7070"`).
			Wrap(err)
	}
	if c.Serve.ReadBufferSize < 0 || c.Serve.WriteBufferSize < 0 {
		return errors.New("R010").WithDetail("WebSocket buffer sizes must not be negative")
	}
	if c.Store.MaxFlushCycles < 1 {
		return errors.New("R010").WithDetail("maxFlushCycles must be at least 1")
	}
	if c.Snapshots.Dir != "" && c.Snapshots.S3 != nil {
		return errors.New("R010").
			WithDetail("snapshots.dir and snapshots.s3 are mutually exclusive").
			WithSuggestion("Remove one of them")
	}
	if c.Snapshots.S3 != nil && c.Snapshots.S3.Bucket == "" {
		return errors.New("R010").WithDetail("snapshots.s3.bucket is required")
	}
	if c.Snapshots.MaxSize < 0 {
		return errors.New("R010").WithDetail("snapshots.maxSize must not be negative")
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return level, nil
}

// NewLogger builds the logger described by Log, writing to w.
// An invalid level falls back to info.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// InitialDocumentPath returns the initial document path resolved against
// the config directory, or "" if none is configured.
func (c *Config) InitialDocumentPath() string {
	path := c.Store.InitialDocument
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// SnapshotDir returns the snapshot directory resolved against the config
// directory, or "" if none is configured.
func (c *Config) SnapshotDir() string {
	dir := c.Snapshots.Dir
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Dir(), dir)
}
