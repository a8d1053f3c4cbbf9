package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/docs"
)

// DocsOptions holds flags for the docs command.
type DocsOptions struct {
	Out               string
	Fields            bool
	TransactionalOnly bool
}

// NewDocsCommand creates the docs command.
func NewDocsCommand() *cobra.Command {
	opts := &DocsOptions{}

	cmd := &cobra.Command{
		Use:   "docs <object>",
		Short: "Generate markdown documentation for an object's lineage",
		Long: `Build a markdown document describing an object and its full dependency
tree. With --fields and a configured database connection, each object
gets a field table resolved from the deployed CSN definitions.`,
		Example: `  # Document a view to stdout
  dsptool docs V_SALES --space SALES

  # Write to a file, with field tables
  dsptool docs V_SALES -s SALES --fields --out V_SALES.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocs(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "write the document to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.Fields, "fields", false, "include per-object field tables (needs database access)")
	cmd.Flags().BoolVar(&opts.TransactionalOnly, "transactional-only", false, "document only the transactional lineage")
	return cmd
}

func runDocs(cmd *cobra.Command, object string, opts *DocsOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}

	spaceID, err := selectedSpace(cfg, true)
	if err != nil {
		return err
	}
	objectID := resolveObjectID(ctx, client, object, spaceID)

	tree, err := client.Lineage(ctx, objectID, api.DefaultLineageOptions())
	if err != nil {
		return fmt.Errorf("failed to fetch lineage for %s: %w", object, err)
	}

	var fields docs.FieldSource
	if opts.Fields {
		dbc, err := newDBClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("field tables need database access: %w", err)
		}
		defer dbc.Close()
		fields = dbc
	}

	builder := docs.NewBuilder(fields, getLogger(cmd))
	buildOpts := docs.Options{
		IncludeFields:     opts.Fields,
		TransactionalOnly: opts.TransactionalOnly,
	}

	if opts.Out != "" {
		if err := builder.WriteFile(ctx, tree, object, spaceID, opts.Out, buildOpts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote documentation to %s\n", opts.Out)
		return nil
	}

	doc, err := builder.Build(ctx, tree, object, spaceID, buildOpts)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), doc)
	return nil
}
