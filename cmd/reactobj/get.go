package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/internal/scenario"
	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/reactobj"
	"github.com/vango-dev/reactobj/pkg/tracker"
)

// getResult mirrors the server's value response.
type getResult struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
	Value any    `json:"value,omitempty"`
}

// serverError mirrors the server's error response.
type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func getCmd(flags *globalFlags) *cobra.Command {
	var (
		document string
		addr     string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "get [path]",
		Short: "Read a value",
		Long: `Read the value at a key path.

With --document the value is read from a local JSON or YAML document,
otherwise from a running 'reactobj serve'. An empty path reads the root.

Examples:
  reactobj get --document state.json user.name
  reactobj get users.0.email
  reactobj get --addr localhost:8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 1 {
				raw = args[0]
			}
			path, err := keypath.Parse(raw)
			if err != nil {
				return errors.New("R001").Wrap(err)
			}

			var result getResult
			if document != "" {
				result, err = getLocal(document, path)
			} else {
				if addr == "" {
					cfg, err := flags.loadConfig()
					if err != nil {
						return err
					}
					addr = cfg.Serve.Address
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				result, err = getRemote(ctx, addr, path)
			}
			if err != nil {
				return err
			}

			if !result.Found {
				return fmt.Errorf("no value at %q", result.Path)
			}
			data, err := json.MarshalIndent(result.Value, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&document, "document", "d", "", "Read from a local document instead of a server")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Server address (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")

	return cmd
}

// getLocal reads path from a store holding the document.
func getLocal(document string, path keypath.Path) (getResult, error) {
	initial, err := scenario.LoadDocument(document)
	if err != nil {
		return getResult{}, err
	}
	store := reactobj.New(tracker.New(), initial)
	value, found := store.Lookup(path)
	return getResult{Path: path.String(), Found: found, Value: value}, nil
}

// getRemote reads path from the inspection server at addr.
func getRemote(ctx context.Context, addr string, path keypath.Path) (getResult, error) {
	u := url.URL{
		Scheme:   "http",
		Host:     addr,
		Path:     "/v1/value",
		RawQuery: url.Values{"path": []string{path.String()}}.Encode(),
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return getResult{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return getResult{}, errors.New("R040").
			WithSuggestion("Start a server with 'reactobj serve'").
			Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var se serverError
		if err := json.NewDecoder(resp.Body).Decode(&se); err != nil || se.Error == "" {
			return getResult{}, fmt.Errorf("server returned %s", resp.Status)
		}
		return getResult{}, fmt.Errorf("server: %s", se.Error)
	}

	var result getResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return getResult{}, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}
