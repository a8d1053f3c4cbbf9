package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dsphere-labs/dsptool/internal/cache"
	"github.com/dsphere-labs/dsptool/internal/state"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage catalog snapshots",
		Long: `Load the space and object catalog from the tenant and persist it as a
snapshot. Snapshots back the UI and avoid repeated catalog fetches.`,
	}

	cmd.AddCommand(
		newCacheLoadCommand(),
		newCacheListCommand(),
		newCacheShowCommand(),
		newCacheDeleteCommand(),
	)
	return cmd
}

func newCacheLoadCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch the catalog and save a snapshot",
		Example: `  dsptool cache load
  dsptool cache load --label "before migration"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheLoad(cmd, label)
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "label for the snapshot")
	return cmd
}

func runCacheLoad(cmd *cobra.Command, label string) error {
	cfg := getConfig()
	ctx := cmd.Context()

	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}

	catalog := cache.New(getLogger(cmd))
	progress := func(percent int, message string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "  [%3d%%] %s\n", percent, message)
	}
	if err := catalog.Load(ctx, client, progress); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	for _, stat := range catalog.Stats() {
		if stat.Err != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  warning: space %s skipped: %s\n", stat.SpaceID, stat.Err)
		}
	}

	data, ok := catalog.Snapshot()
	if !ok {
		return fmt.Errorf("catalog load finished but no data is available")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Save(data, label, catalog.LoadedAt())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot %s: %d spaces, %d objects\n",
		snap.ID, snap.Spaces, snap.Objects)
	return nil
}

func newCacheListCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(getConfig())
			if err != nil {
				return err
			}
			defer store.Close()

			snapshots, err := store.List()
			if err != nil {
				return err
			}

			if outputFormat(output, getConfig()) == "json" {
				return renderJSON(cmd.OutOrStdout(), snapshots)
			}

			tr := make([]table.Row, 0, len(snapshots))
			for _, s := range snapshots {
				tr = append(tr, table.Row{
					s.ID, s.Label, s.TakenAt.Format(time.RFC3339), s.Spaces, s.Objects,
				})
			}
			renderRows(cmd.OutOrStdout(), table.Row{"ID", "Label", "Taken At", "Spaces", "Objects"}, tr)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: table|json")
	return cmd
}

func newCacheShowCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show the contents of a snapshot",
		Long:  "Show the spaces and object counts of a snapshot. Without an ID the latest snapshot is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(getConfig())
			if err != nil {
				return err
			}
			defer store.Close()

			var (
				data cache.Data
				snap *state.Snapshot
			)
			if len(args) == 1 {
				data, snap, err = store.Load(args[0])
			} else {
				data, snap, err = store.LoadLatest()
			}
			if err != nil {
				return err
			}
			if snap == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots saved yet. Run: dsptool cache load")
				return nil
			}

			if outputFormat(output, getConfig()) == "json" {
				return renderJSON(cmd.OutOrStdout(), struct {
					Snapshot *state.Snapshot `json:"snapshot"`
					Data     cache.Data      `json:"data"`
				}{snap, data})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Snapshot %s", snap.ID)
			if snap.Label != "" {
				fmt.Fprintf(out, " (%s)", snap.Label)
			}
			fmt.Fprintf(out, ", taken %s\n", snap.TakenAt.Format(time.RFC3339))

			tr := make([]table.Row, 0, len(data.Spaces))
			for _, s := range data.Spaces {
				bn := data.BusinessNames[s.ID]
				tr = append(tr, table.Row{s.ID, bn, len(data.Objects[s.ID])})
			}
			renderRows(out, table.Row{"Space", "Business Name", "Objects"}, tr)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: table|json")
	return cmd
}

func newCacheDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(getConfig())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", args[0])
			return nil
		},
	}
}
