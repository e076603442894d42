package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/internal/scenario"
	"github.com/vango-dev/reactobj/pkg/reactobj"
)

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		quiet       bool
		showMetrics bool
		traceSpans  bool
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenario files",
		Long: `Run scripted scenarios against a fresh store each.

A scenario declares an initial document, watchers reading key paths, writes,
flushes and expectations about which watchers re-ran. The trace of every
scenario is printed unless --quiet is given.

Examples:
  reactobj run scenarios/basic.yaml
  reactobj run --quiet scenarios/*.yaml
  reactobj run --metrics --trace --log-level=debug scenarios/basic.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if traceSpans {
				cfg.Tracing.Enabled = true
			}

			logger := cfg.NewLogger(cmd.ErrOrStderr())
			tracer, shutdown := newTracer(cfg, logger)
			defer shutdown()

			reg := prometheus.NewRegistry()
			var metrics *reactobj.Metrics
			if cfg.Metrics.Enabled {
				metrics = reactobj.NewMetrics(
					reactobj.WithRegistry(reg),
					reactobj.WithNamespace(cfg.Metrics.Namespace),
					reactobj.WithSubsystem(cfg.Metrics.Subsystem),
				)
			}

			runner := scenario.NewRunner(
				scenario.WithLogger(logger),
				scenario.WithMetrics(metrics),
				scenario.WithTracer(tracer),
				scenario.WithMaxCycles(cfg.Store.MaxFlushCycles),
			)

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				result, err := runner.RunFile(path)
				if result != nil && !quiet {
					fmt.Fprint(out, result.String())
				}
				if err != nil {
					failed++
					errorMsg(out, "%s", path)
					errors.Print(cmd.ErrOrStderr(), err)
					continue
				}
				success(out, "%s (%d events)", path, len(result.Trace))
			}

			if showMetrics && metrics != nil {
				fmt.Fprintln(out)
				if err := printMetrics(out, reg); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print traces")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print store metrics after the run")
	cmd.Flags().BoolVar(&traceSpans, "trace", false, "Record flush and prune spans (logged at debug level)")

	return cmd
}
