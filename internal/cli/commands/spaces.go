package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// SpacesOptions holds flags for the spaces command.
type SpacesOptions struct {
	Output string
	SQL    bool
}

// NewSpacesCommand creates the spaces command.
func NewSpacesCommand() *cobra.Command {
	opts := &SpacesOptions{}

	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "List spaces in the tenant",
		Long:  "List all spaces visible to the configured tenant user, with their business names.",
		Example: `  # List spaces as a table
  dsptool spaces

  # List spaces as JSON
  dsptool spaces -o json

  # List the space schemas visible to the database user
  dsptool spaces --sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpaces(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format: table|json")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "list via the database connection instead of the REST API")
	return cmd
}

func runSpaces(cmd *cobra.Command, opts *SpacesOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	if opts.SQL {
		return runSpacesSQL(cmd, opts)
	}

	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}

	spaces, err := client.Spaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list spaces: %w", err)
	}

	names, err := client.SpaceBusinessNames(ctx)
	if err != nil {
		// Business names are decoration; the listing still works without them.
		names = map[string]string{}
	}

	type spaceRow struct {
		ID           string `json:"id"`
		BusinessName string `json:"businessName"`
	}
	rows := make([]spaceRow, 0, len(spaces))
	for _, s := range spaces {
		bn := s.BusinessName
		if v, ok := names[s.ID]; ok && v != "" {
			bn = v
		}
		rows = append(rows, spaceRow{ID: s.ID, BusinessName: bn})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	if outputFormat(opts.Output, cfg) == "json" {
		return renderJSON(cmd.OutOrStdout(), rows)
	}

	tr := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		tr = append(tr, table.Row{r.ID, r.BusinessName})
	}
	renderRows(cmd.OutOrStdout(), table.Row{"Space", "Business Name"}, tr)
	fmt.Fprintf(cmd.OutOrStdout(), "%d spaces\n", len(rows))
	return nil
}

// runSpacesSQL lists the space schemas the database user can see. Business
// names live in the repository, not the catalog, so only IDs come back.
func runSpacesSQL(cmd *cobra.Command, opts *SpacesOptions) error {
	cfg := getConfig()

	client, err := newDBClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	spaces, err := client.Spaces(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list space schemas: %w", err)
	}

	if outputFormat(opts.Output, cfg) == "json" {
		return renderJSON(cmd.OutOrStdout(), spaces)
	}

	tr := make([]table.Row, 0, len(spaces))
	for _, s := range spaces {
		tr = append(tr, table.Row{s})
	}
	renderRows(cmd.OutOrStdout(), table.Row{"Space"}, tr)
	fmt.Fprintf(cmd.OutOrStdout(), "%d spaces\n", len(spaces))
	return nil
}
