package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactobj/internal/config"
	"github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/internal/scenario"
	"github.com/vango-dev/reactobj/pkg/inspect"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr     string
		document string
		restore  string
		origins  []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a store over HTTP",
		Long: `Serve a store over HTTP with live WebSocket watches.

The store starts from --restore, --document, the store.initialDocument
config entry, or an empty map.

Routes:
  GET  /v1/value?path=a.b       read a value
  PUT  /v1/value?path=a.b       write the JSON request body
  POST /v1/invalidate?path=a.b  invalidate a path
  GET  /v1/stats                trie and record counts
  GET  /v1/dependencies         dependency records
  GET  /v1/watch?path=a.b       WebSocket stream of a watch
  GET  /v1/snapshots            list snapshots (when configured)
  GET  /metrics                 Prometheus metrics

Examples:
  reactobj serve
  reactobj serve --addr :8080 --document state.json
  reactobj serve --restore nightly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Address = addr
			}
			if len(origins) > 0 {
				cfg.Serve.AllowedOrigins = origins
			}

			snapshots, err := openSnapshots(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			var initial any
			if restore != "" {
				if snapshots == nil {
					return errors.New("R010").
						WithDetail("--restore needs a snapshot store").
						WithSuggestion(`Set "snapshots" in ` + config.ConfigFileName)
				}
				if initial, err = snapshots.Load(cmd.Context(), restore); err != nil {
					return snapshotError(err)
				}
			} else if initial, err = initialDocument(cfg, document); err != nil {
				return err
			}

			logger := cfg.NewLogger(cmd.ErrOrStderr())
			tracer, shutdown := newTracer(cfg, logger)
			defer shutdown()

			icfg := inspect.DefaultConfig()
			icfg.Address = cfg.Serve.Address
			icfg.ReadBufferSize = cfg.Serve.ReadBufferSize
			icfg.WriteBufferSize = cfg.Serve.WriteBufferSize
			if len(cfg.Serve.AllowedOrigins) > 0 {
				icfg.CheckOrigin = inspect.AllowOrigins(cfg.Serve.AllowedOrigins...)
			}
			icfg.MaxCycles = cfg.Store.MaxFlushCycles
			icfg.Metrics = cfg.Metrics.Enabled
			icfg.Namespace = cfg.Metrics.Namespace
			icfg.Subsystem = cfg.Metrics.Subsystem
			icfg.Tracer = tracer
			icfg.Logger = logger
			icfg.Snapshots = snapshots

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			success(out, "Serving on http://%s", cfg.Serve.Address)
			info(out, "Press Ctrl+C to stop")

			return inspect.New(icfg, initial).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().StringVarP(&document, "document", "d", "", "Initial document (JSON or YAML)")
	cmd.Flags().StringVar(&restore, "restore", "", "Start from the named snapshot")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "Origins allowed to open watches (\"*\" for any)")

	return cmd
}

// initialDocument loads the document named by path, falling back to the
// configured initial document and then to an empty map.
func initialDocument(cfg *config.Config, path string) (any, error) {
	if path == "" {
		path = cfg.InitialDocumentPath()
	}
	if path == "" {
		return map[string]any{}, nil
	}
	return scenario.LoadDocument(path)
}
