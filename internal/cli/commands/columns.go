package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// ColumnsOptions holds flags for the columns command.
type ColumnsOptions struct {
	Table  bool
	Output string
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	opts := &ColumnsOptions{}

	cmd := &cobra.Command{
		Use:   "columns <name>",
		Short: "Search column usage or list table columns",
		Long: `Search all column-store tables for a column of the given name. With
--table, the name is a table instead and its column layout is listed.
Needs database access.`,
		Example: `  # Every table containing CUSTOMER_ID, tenant-wide
  dsptool columns CUSTOMER_ID

  # Restricted to one space
  dsptool columns CUSTOMER_ID -s SALES

  # Column layout of a table
  dsptool columns SALES_ORDERS -s SALES --table`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runColumns(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Table, "table", false, "treat the name as a table and list its columns")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format: table|json")
	return cmd
}

func runColumns(cmd *cobra.Command, name string, opts *ColumnsOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	client, err := newDBClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if opts.Table {
		spaceID, err := selectedSpace(cfg, true)
		if err != nil {
			return err
		}
		columns, err := client.TableColumns(ctx, spaceID, name)
		if err != nil {
			return fmt.Errorf("failed to read columns of %s: %w", name, err)
		}

		if outputFormat(opts.Output, cfg) == "json" {
			return renderJSON(cmd.OutOrStdout(), columns)
		}
		tr := make([]table.Row, 0, len(columns))
		for _, c := range columns {
			tr = append(tr, table.Row{c.Position, c.Name, c.DataType, c.Length, c.Scale, yesNo(c.Nullable)})
		}
		renderRows(cmd.OutOrStdout(), table.Row{"Pos", "Column", "Type", "Length", "Scale", "Nullable"}, tr)
		return nil
	}

	spaceID, _ := selectedSpace(cfg, false)
	usages, err := client.FindColumnUsage(ctx, name, spaceID)
	if err != nil {
		return fmt.Errorf("failed to search for column %s: %w", name, err)
	}

	if outputFormat(opts.Output, cfg) == "json" {
		return renderJSON(cmd.OutOrStdout(), usages)
	}
	tr := make([]table.Row, 0, len(usages))
	for _, u := range usages {
		tr = append(tr, table.Row{u.Schema, u.Table, u.Column, u.DataType, u.Length})
	}
	renderRows(cmd.OutOrStdout(), table.Row{"Schema", "Table", "Column", "Type", "Length"}, tr)
	fmt.Fprintf(cmd.OutOrStdout(), "%d tables contain %s\n", len(usages), name)
	return nil
}
