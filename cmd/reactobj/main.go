package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactobj/internal/config"
	"github.com/vango-dev/reactobj/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configDir string
	logLevel  string
	logFormat string
	noColor   bool
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err, errorFormat(rootCmd))
		os.Exit(1)
	}
}

// errorFormat returns the log format a failed command reports its error
// in: --log-format if given, else the configured format.
func errorFormat(rootCmd *cobra.Command) string {
	pf := rootCmd.PersistentFlags()
	if format, _ := pf.GetString("log-format"); format != "" {
		return format
	}
	dir, _ := pf.GetString("config")
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		return "text"
	}
	return cfg.Log.Format
}

// printError writes err to w as one JSON line when format is json, and as
// a terminal report otherwise.
func printError(w io.Writer, err error, format string) {
	if format == "json" {
		errors.PrintJSON(w, err)
		return
	}
	errors.Print(w, err)
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "reactobj",
		Short: "Fine-grained reactive value store",
		Long: `reactobj runs and inspects reactive value stores.

A store holds a tree of maps, sequences and leaves. Computations that read
a key path re-run only when the value at that path actually changes.

  • run scripted scenarios and compare their traces
  • serve a store over HTTP with live WebSocket watches
  • read values from documents or a running server`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				errors.DisableColors()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configDir, "config", "c", ".", "Directory containing "+config.ConfigFileName)
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (default from config)")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		runCmd(flags),
		serveCmd(flags),
		getCmd(flags),
		configCmd(flags),
		snapshotCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig reads the configuration and applies the global flags.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.configDir)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
