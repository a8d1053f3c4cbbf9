package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// ObjectsOptions holds flags for the objects command.
type ObjectsOptions struct {
	Output string
	Kind   string
}

// NewObjectsCommand creates the objects command.
func NewObjectsCommand() *cobra.Command {
	opts := &ObjectsOptions{}

	cmd := &cobra.Command{
		Use:   "objects <space>",
		Short: "List objects in a space",
		Example: `  # List all objects in SALES
  dsptool objects SALES

  # Only views
  dsptool objects SALES --kind view`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObjects(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format: table|json")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by kind substring (e.g. view, table, flow)")
	return cmd
}

func runObjects(cmd *cobra.Command, spaceID string, opts *ObjectsOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}

	objects, err := client.SpaceObjects(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("failed to list objects in %s: %w", spaceID, err)
	}

	if opts.Kind != "" {
		filter := strings.ToLower(opts.Kind)
		kept := objects[:0]
		for _, o := range objects {
			if strings.Contains(strings.ToLower(o.Kind), filter) {
				kept = append(kept, o)
			}
		}
		objects = kept
	}

	if outputFormat(opts.Output, cfg) == "json" {
		return renderJSON(cmd.OutOrStdout(), objects)
	}

	tr := make([]table.Row, 0, len(objects))
	for _, o := range objects {
		tr = append(tr, table.Row{o.TechnicalName, o.Kind, o.Name})
	}
	renderRows(cmd.OutOrStdout(), table.Row{"Technical Name", "Kind", "Name"}, tr)
	fmt.Fprintf(cmd.OutOrStdout(), "%d objects in %s\n", len(objects), spaceID)
	return nil
}
