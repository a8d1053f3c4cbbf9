// Package commands implements the dsptool subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/cli/config"
	"github.com/dsphere-labs/dsptool/internal/db"
	"github.com/dsphere-labs/dsptool/internal/state"
)

// getLogger pulls the logger the root command stored on the context.
func getLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}

// getConfig returns the loaded configuration, or an empty one before any
// load happened (help paths).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
	}
}

// newAPIClient builds the REST client from the tenant configuration and
// refreshes the access token when only a refresh token is available.
func newAPIClient(ctx context.Context, cfg *config.Config) (*api.Client, error) {
	if err := cfg.ValidateTenant(); err != nil {
		return nil, err
	}

	t := cfg.Tenant
	creds := &api.Credentials{
		Host:         t.Host,
		ClientID:     t.ClientID,
		ClientSecret: t.ClientSecret,
		TokenURL:     t.TokenURL,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if creds.AccessToken != "" {
		// Configured tokens carry no expiry; assume a standard hour.
		creds.TokenExpiry = time.Now().Add(time.Hour)
	}

	client := api.NewClient(creds, config.GetLogger(ctx))
	if !creds.TokenValid() && creds.RefreshToken != "" {
		if err := client.RefreshAccessToken(ctx); err != nil {
			return nil, fmt.Errorf("failed to refresh access token: %w", err)
		}
	}
	return client, nil
}

// newDBClient builds the SQL metadata client from the database configuration.
func newDBClient(ctx context.Context, cfg *config.Config) (*db.Client, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	d := cfg.Database
	return db.Open(db.Config{
		Address:  d.Address,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
	}, config.GetLogger(ctx))
}

// openStore opens the snapshot store, creating its directory and schema.
func openStore(cfg *config.Config) (*state.SQLiteStore, error) {
	path := cfg.StatePath
	if path == "" {
		path = config.DefaultStateFile
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// selectedSpace resolves the space from the configuration, which layers the
// persistent --space flag over env and file values. Errors when required and
// nothing is set.
func selectedSpace(cfg *config.Config, required bool) (string, error) {
	if cfg.Space != "" {
		return cfg.Space, nil
	}
	if required {
		return "", fmt.Errorf("a space is required: pass --space or set space in dsptool.yaml")
	}
	return "", nil
}

// outputFormat resolves the per-command output flag against the global one.
func outputFormat(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.OutputFormat != "" {
		return cfg.OutputFormat
	}
	return config.DefaultOutput
}

// renderRows writes a styled table.
func renderRows(w io.Writer, header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

// renderJSON writes v as indented JSON.
func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
