package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/export"
	"github.com/dsphere-labs/dsptool/internal/lineage"
)

// LineageOptions holds flags for the lineage command. The space comes from
// the persistent --space flag.
type LineageOptions struct {
	TransactionalOnly bool
	Output            string
	Find              string
	MaxDepth          int
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <object>",
		Short: "Show the dependency tree of an object",
		Long: `Fetch the recursive dependency tree of an object and render it as a
table, JSON, or CSV. The object is resolved by technical name within the
given space; a repository object ID is accepted directly.`,
		Example: `  # Full lineage of a view
  dsptool lineage V_SALES --space SALES

  # Only the transactional data flow
  dsptool lineage V_SALES -s SALES --transactional-only

  # Path from the root to a specific source table
  dsptool lineage V_SALES -s SALES --find SALES_ORDERS

  # Export the flat table as CSV
  dsptool lineage V_SALES -s SALES -o csv > lineage.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.TransactionalOnly, "transactional-only", false, "restrict the tree to transactional objects")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format: table|json|csv")
	cmd.Flags().StringVar(&opts.Find, "find", "", "print the path from the root to the named object")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "hide rows deeper than this level (0 = no limit)")
	return cmd
}

// resolveObjectID maps a technical name to a repository object ID when a
// space is known. Unresolved names are passed through as-is so a raw ID
// still works.
func resolveObjectID(ctx context.Context, client *api.Client, name, spaceID string) string {
	if spaceID == "" {
		return name
	}
	id, found, err := client.FindObjectID(ctx, name, spaceID)
	if err != nil || !found {
		return name
	}
	return id
}

func runLineage(cmd *cobra.Command, object string, opts *LineageOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}

	spaceID, _ := selectedSpace(cfg, false)
	objectID := resolveObjectID(ctx, client, object, spaceID)

	tree, err := client.Lineage(ctx, objectID, api.DefaultLineageOptions())
	if err != nil {
		return fmt.Errorf("failed to fetch lineage for %s: %w", object, err)
	}

	if opts.TransactionalOnly {
		filtered, ok := lineage.TransactionalLineage(tree)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "No transactional objects in the lineage of %s.\n", object)
			return nil
		}
		tree = filtered
	}

	if opts.Find != "" {
		path, found := lineage.FindPath(tree, opts.Find)
		if !found {
			return fmt.Errorf("object %q not found in the lineage of %s", opts.Find, object)
		}
		names := make([]string, 0, len(path))
		for _, n := range path {
			names = append(names, n.QualifiedName)
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, " -> "))
		return nil
	}

	rows := lineage.FlatRows(tree)
	if opts.MaxDepth > 0 {
		kept := rows[:0]
		for _, r := range rows {
			if r.Level <= opts.MaxDepth {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	switch outputFormat(opts.Output, cfg) {
	case "json":
		return renderJSON(cmd.OutOrStdout(), lineage.Export(tree))
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), rows)
	default:
		tr := make([]table.Row, 0, len(rows))
		for _, r := range rows {
			tr = append(tr, table.Row{r.Level, r.Name, r.Kind, yesNo(r.Transactional), r.DependencyType})
		}
		renderRows(cmd.OutOrStdout(), table.Row{"Level", "Name", "Kind", "Transactional", "Dependency Type"}, tr)
		fmt.Fprintf(cmd.OutOrStdout(), "%d objects, max depth %d\n", tree.CountObjects(), tree.MaxDepth())
		return nil
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
