package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/lineage"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	Output string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <object>",
		Short: "Summarize the dependency tree of an object",
		Long: `Fetch an object's lineage and report aggregate statistics: object and
source counts, transactional split, depth, and a breakdown by kind.`,
		Example: `  dsptool analyze V_SALES --space SALES
  dsptool analyze V_SALES -s SALES -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format: table|json")
	return cmd
}

func runAnalyze(cmd *cobra.Command, object string, opts *AnalyzeOptions) error {
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

	report := lineage.Analyze(tree)
	categories := lineage.Categorize(tree)

	if outputFormat(opts.Output, cfg) == "json" {
		return renderJSON(cmd.OutOrStdout(), struct {
			Report     lineage.Report     `json:"report"`
			Categories lineage.Categories `json:"categories"`
		}{report, categories})
	}

	out := cmd.OutOrStdout()
	renderRows(out, table.Row{"Metric", "Value"}, []table.Row{
		{"Total objects", report.TotalObjects},
		{"Transactional objects", report.TransactionalObjects},
		{"Dimensional objects", report.NonTransactionalObjects},
		{"Max depth", report.MaxDepth},
		{"Source objects", report.SourceObjectCount},
	})

	kinds := make([]string, 0, len(report.CountByKind))
	for k := range report.CountByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	kindRows := make([]table.Row, 0, len(kinds))
	for _, k := range kinds {
		kindRows = append(kindRows, table.Row{k, report.CountByKind[k]})
	}
	renderRows(out, table.Row{"Kind", "Count"}, kindRows)

	printCategory := func(label string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(out, "\n%s (%d):\n", label, len(names))
		for _, n := range names {
			fmt.Fprintf(out, "  %s\n", n)
		}
	}
	printCategory("Replication flows", categories.ReplicationFlows)
	printCategory("Transformation flows", categories.TransformationFlows)
	printCategory("Views", categories.Views)
	printCategory("Tables", categories.Tables)
	printCategory("Other", categories.Other)
	return nil
}
