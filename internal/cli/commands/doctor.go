package commands

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dsphere-labs/dsptool/internal/cli/config"
)

// DoctorOptions holds flags for the doctor command.
type DoctorOptions struct {
	Output string
}

// CheckResult is the outcome of one doctor check.
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "failed", or "skipped"
	Detail string `json:"detail,omitempty"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity to the tenant",
		Long: `Verify the configuration and test the REST, database, and snapshot
store connections. Checks without the required configuration are
reported as skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format: table|json")
	return cmd
}

type connectionTester interface {
	TestConnection(ctx context.Context) error
}

// checkConnection turns a validation result and a connection probe into a
// CheckResult. A validation error means the check is skipped, not failed.
func checkConnection(ctx context.Context, name string, validateErr error, dial func() (connectionTester, func(), error)) CheckResult {
	if validateErr != nil {
		return CheckResult{Name: name, Status: "skipped", Detail: validateErr.Error()}
	}
	tester, cleanup, err := dial()
	if err != nil {
		return CheckResult{Name: name, Status: "failed", Detail: err.Error()}
	}
	if cleanup != nil {
		defer cleanup()
	}
	if err := tester.TestConnection(ctx); err != nil {
		return CheckResult{Name: name, Status: "failed", Detail: err.Error()}
	}
	return CheckResult{Name: name, Status: "ok"}
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	var results []CheckResult

	results = append(results, checkConnection(ctx, "REST API", cfg.ValidateTenant(),
		func() (connectionTester, func(), error) {
			client, err := newAPIClient(ctx, cfg)
			return client, nil, err
		}))

	results = append(results, checkConnection(ctx, "Database", cfg.ValidateDatabase(),
		func() (connectionTester, func(), error) {
			client, err := newDBClient(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			return client, func() { client.Close() }, nil
		}))

	results = append(results, checkStore(cfg))

	if outputFormat(opts.Output, cfg) == "json" {
		return renderJSON(cmd.OutOrStdout(), results)
	}

	tr := make([]table.Row, 0, len(results))
	failed := 0
	for _, r := range results {
		tr = append(tr, table.Row{r.Name, r.Status, r.Detail})
		if r.Status == "failed" {
			failed++
		}
	}
	renderRows(cmd.OutOrStdout(), table.Row{"Check", "Status", "Detail"}, tr)

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}

func checkStore(cfg *config.Config) CheckResult {
	store, err := openStore(cfg)
	if err != nil {
		return CheckResult{Name: "Snapshot store", Status: "failed", Detail: err.Error()}
	}
	defer store.Close()

	snapshots, err := store.List()
	if err != nil {
		return CheckResult{Name: "Snapshot store", Status: "failed", Detail: err.Error()}
	}
	return CheckResult{
		Name:   "Snapshot store",
		Status: "ok",
		Detail: fmt.Sprintf("%d snapshots", len(snapshots)),
	}
}
