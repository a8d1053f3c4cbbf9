package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dsphere-labs/dsptool/internal/cache"
	"github.com/dsphere-labs/dsptool/internal/ui"
)

// UIOptions holds flags for the ui command.
type UIOptions struct {
	Port    int
	NoCache bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Serve the lineage browser UI",
		Long: `Start a local web server exposing the space browser and lineage views.
The latest saved snapshot seeds the catalog so the UI starts warm; pass
--no-cache to skip it.`,
		Example: `  dsptool ui
  dsptool ui --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "port to listen on (default from config)")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "start without restoring the latest snapshot")
	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cfg := getConfig()
	logger := getLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}

	catalog := cache.New(logger)
	if !opts.NoCache {
		store, err := openStore(cfg)
		if err == nil {
			data, snap, loadErr := store.LoadLatest()
			store.Close()
			if loadErr == nil && snap != nil {
				catalog.Restore(data, snap.TakenAt)
				logger.Info("restored catalog snapshot",
					"id", snap.ID, "spaces", snap.Spaces, "objects", snap.Objects)
			}
		} else {
			logger.Warn("snapshot store unavailable", "error", err)
		}
	}

	uiCfg := cfg.GetUIConfig()
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	server := ui.NewServer(ui.Config{
		Service:       client,
		Catalog:       catalog,
		Port:          port,
		SessionSecret: uiCfg.SessionSecret,
		Logger:        logger,
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://localhost:%d (Ctrl+C to stop)\n", port)
	return server.Serve(ctx)
}
