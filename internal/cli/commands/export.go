package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dsphere-labs/dsptool/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Objects  []string
	Kind     string
	Dir      string
	Zip      string
	Combined bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export object definitions as JSON files",
		Long: `Export the raw definitions of objects in a space, one JSON file per
object or one combined document. Output goes to a directory or a zip
archive.`,
		Example: `  # Every object in SALES, one file each
  dsptool export --space SALES --dir ./export

  # Selected objects into a zip
  dsptool export -s SALES --objects V_SALES,SALES_ORDERS --zip sales.zip

  # One combined document
  dsptool export -s SALES --combined --dir ./export`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Objects, "objects", nil, "technical names to export (default: all in the space)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by kind substring")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "write files into this directory")
	cmd.Flags().StringVar(&opts.Zip, "zip", "", "write files into this zip archive")
	cmd.Flags().BoolVar(&opts.Combined, "combined", false, "produce one combined JSON document")
	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	if opts.Dir == "" && opts.Zip == "" {
		return fmt.Errorf("an output target is required: pass --dir or --zip")
	}

	spaceID, err := selectedSpace(cfg, true)
	if err != nil {
		return err
	}

	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}

	objects, err := client.SpaceObjects(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("failed to list objects in %s: %w", spaceID, err)
	}

	wanted := map[string]bool{}
	for _, name := range opts.Objects {
		wanted[name] = true
	}
	var selections []export.Selection
	for _, o := range objects {
		if len(wanted) > 0 && !wanted[o.TechnicalName] {
			continue
		}
		if opts.Kind != "" && !strings.Contains(strings.ToLower(o.Kind), strings.ToLower(opts.Kind)) {
			continue
		}
		selections = append(selections, export.Selection{
			SpaceID: spaceID,
			Name:    o.TechnicalName,
			Kind:    o.Kind,
		})
	}
	if len(selections) == 0 {
		return fmt.Errorf("no objects matched in %s", spaceID)
	}

	exporter := export.New(client, getLogger(cmd))
	progress := func(done, total int, name string) {
		if name != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  [%d/%d] %s\n", done, total, name)
		}
	}

	var files []export.File
	if opts.Combined {
		combined, err := exporter.Combined(ctx, selections, progress)
		if err != nil {
			return err
		}
		files = []export.File{combined}
	} else {
		files, err = exporter.Definitions(ctx, selections, progress)
		if err != nil {
			return err
		}
	}

	if opts.Zip != "" {
		f, err := os.Create(opts.Zip)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.Zip, err)
		}
		defer f.Close()
		if err := export.WriteZip(f, files); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d files to %s\n", len(files), opts.Zip)
		return nil
	}

	if err := export.WriteDir(opts.Dir, files); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d files to %s\n", len(files), opts.Dir)
	return nil
}
