package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"text/tabwriter"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactobj/internal/config"
	"github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/internal/scenario"
	"github.com/vango-dev/reactobj/pkg/snapshot"
)

// openSnapshots returns the snapshot store configured in cfg, or nil if
// snapshots are disabled.
func openSnapshots(ctx context.Context, cfg *config.Config) (snapshot.Store, error) {
	sc := cfg.Snapshots
	switch {
	case sc.S3 != nil:
		client, err := newS3Client(ctx, sc.S3)
		if err != nil {
			return nil, err
		}
		return snapshot.NewS3Store(client, sc.S3.Bucket, sc.S3.Prefix, sc.MaxSize), nil

	case sc.Dir != "":
		store, err := snapshot.NewDiskStore(cfg.SnapshotDir(), sc.MaxSize)
		if err != nil {
			return nil, errors.New("R050").Wrap(err)
		}
		return store, nil
	}
	return nil, nil
}

// newS3Client builds an S3 client from the default AWS configuration chain
// (environment, shared config and credentials files, SSO, instance roles).
// Settings in sc override the chain.
func newS3Client(ctx context.Context, sc *config.S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if sc.Region != "" {
		opts = append(opts, awsconfig.WithRegion(sc.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New("R050").
			WithDetail("The AWS configuration could not be loaded").
			Wrap(err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = sc.PathStyle
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
		}
	}), nil
}

// requireSnapshots opens the configured snapshot store and fails if none is
// configured.
func requireSnapshots(ctx context.Context, flags *globalFlags) (snapshot.Store, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := openSnapshots(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("R010").
			WithDetail("No snapshot store is configured").
			WithSuggestion(`Set "snapshots": {"dir": "snapshots"} in ` + config.ConfigFileName)
	}
	return store, nil
}

func snapshotError(err error) error {
	if stderrors.Is(err, snapshot.ErrNotFound) {
		return errors.New("R051").Wrap(err)
	}
	return errors.New("R050").Wrap(err)
}

func snapshotCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage named snapshots",
		Long: `Manage the named snapshots kept in the configured snapshot store.

A running server saves and restores snapshots over HTTP:
  PUT  /v1/snapshots/<name>          save the current root
  POST /v1/snapshots/<name>/restore  replace the root`,
	}
	cmd.AddCommand(
		snapshotListCmd(flags),
		snapshotShowCmd(flags),
		snapshotSaveCmd(flags),
		snapshotDeleteCmd(flags),
	)
	return cmd
}

func snapshotListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireSnapshots(cmd.Context(), flags)
			if err != nil {
				return err
			}
			infos, err := store.List(cmd.Context())
			if err != nil {
				return snapshotError(err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tCREATED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Name, info.Size, info.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}

func snapshotShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireSnapshots(cmd.Context(), flags)
			if err != nil {
				return err
			}
			doc, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return snapshotError(err)
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func snapshotSaveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> <document>",
		Short: "Save a JSON or YAML document as a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireSnapshots(cmd.Context(), flags)
			if err != nil {
				return err
			}
			doc, err := scenario.LoadDocument(args[1])
			if err != nil {
				return err
			}
			info, err := store.Save(cmd.Context(), args[0], doc)
			if err != nil {
				return snapshotError(err)
			}
			success(cmd.OutOrStdout(), "Saved %s (%d bytes)", info.Name, info.Size)
			return nil
		},
	}
}

func snapshotDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireSnapshots(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return snapshotError(err)
			}
			success(cmd.OutOrStdout(), "Deleted %s", args[0])
			return nil
		},
	}
}
