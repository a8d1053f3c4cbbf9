package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// DependenciesOptions holds flags for the dependencies command.
type DependenciesOptions struct {
	Output string
}

// NewDependenciesCommand creates the dependencies command.
func NewDependenciesCommand() *cobra.Command {
	opts := &DependenciesOptions{}

	cmd := &cobra.Command{
		Use:   "dependencies <object>",
		Short: "List catalog dependencies of an object",
		Long: `List the objects depending on the given one, as recorded in the
database catalog. Unlike the lineage command this reads the SQL-level
dependency view, not the repository API. Needs database access.`,
		Example: `  dsptool dependencies SALES_ORDERS --space SALES`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDependencies(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format: table|json")
	return cmd
}

func runDependencies(cmd *cobra.Command, objectName string, opts *DependenciesOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	spaceID, err := selectedSpace(cfg, true)
	if err != nil {
		return err
	}

	client, err := newDBClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	deps, err := client.ObjectDependencies(ctx, spaceID, objectName)
	if err != nil {
		return fmt.Errorf("failed to list dependencies of %s: %w", objectName, err)
	}

	if outputFormat(opts.Output, cfg) == "json" {
		return renderJSON(cmd.OutOrStdout(), deps)
	}

	tr := make([]table.Row, 0, len(deps))
	for _, d := range deps {
		tr = append(tr, table.Row{d.DependentSchema, d.DependentObject, d.Type})
	}
	renderRows(cmd.OutOrStdout(), table.Row{"Dependent Schema", "Dependent Object", "Type"}, tr)
	fmt.Fprintf(cmd.OutOrStdout(), "%d dependents of %s\n", len(deps), objectName)
	return nil
}
