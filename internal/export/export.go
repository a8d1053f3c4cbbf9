// Package export writes object definitions and lineage tables to files:
// per-object JSON documents, one combined document, zip bundles, and CSV
// summaries.
package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/dsphere-labs/dsptool/internal/lineage"
)

// DefinitionSource resolves raw object definitions. *api.Client satisfies it.
type DefinitionSource interface {
	ObjectDefinition(ctx context.Context, spaceID, objectName string) (map[string]any, error)
}

// Selection names one object to export.
type Selection struct {
	SpaceID string `json:"spaceId"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
}

// ProgressFunc reports export progress. done counts finished objects.
type ProgressFunc func(done, total int, name string)

// Exporter fetches definitions and writes export artifacts.
type Exporter struct {
	source DefinitionSource
	logger *slog.Logger
	now    func() time.Time
}

// New creates an exporter.
func New(source DefinitionSource, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{source: source, logger: logger, now: time.Now}
}

// File is one exported document.
type File struct {
	Name string
	Body []byte
}

// Definitions fetches the selected objects and renders one JSON file per
// object. Objects that fail to fetch are skipped and logged.
func (e *Exporter) Definitions(ctx context.Context, selections []Selection, progress ProgressFunc) ([]File, error) {
	if progress == nil {
		progress = func(int, int, string) {}
	}
	stamp := e.now().Format("20060102_150405")

	var files []File
	for idx, sel := range selections {
		progress(idx, len(selections), sel.Name)

		def, err := e.source.ObjectDefinition(ctx, sel.SpaceID, sel.Name)
		if err != nil {
			e.logger.Warn("failed to fetch object definition", "object", sel.Name, "error", err)
			continue
		}

		body, err := json.MarshalIndent(def, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", sel.Name, err)
		}
		files = append(files, File{
			Name: fmt.Sprintf("%s_%s_%s_%s.json", sel.SpaceID, sel.Kind, sel.Name, stamp),
			Body: body,
		})
	}
	progress(len(selections), len(selections), "")

	if len(files) == 0 && len(selections) > 0 {
		return nil, fmt.Errorf("no object definitions could be exported")
	}
	return files, nil
}

// Combined fetches the selected objects into a single JSON document keyed by
// space, kind and name.
func (e *Exporter) Combined(ctx context.Context, selections []Selection, progress ProgressFunc) (File, error) {
	if progress == nil {
		progress = func(int, int, string) {}
	}

	combined := map[string]any{}
	for idx, sel := range selections {
		progress(idx, len(selections), sel.Name)

		def, err := e.source.ObjectDefinition(ctx, sel.SpaceID, sel.Name)
		if err != nil {
			e.logger.Warn("failed to fetch object definition", "object", sel.Name, "error", err)
			continue
		}
		combined[fmt.Sprintf("%s_%s_%s", sel.SpaceID, sel.Kind, sel.Name)] = def
	}
	progress(len(selections), len(selections), "")

	if len(combined) == 0 && len(selections) > 0 {
		return File{}, fmt.Errorf("no object definitions could be exported")
	}

	body, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		return File{}, fmt.Errorf("failed to encode combined export: %w", err)
	}
	name := fmt.Sprintf("datasphere_export_%s.json", e.now().Format("20060102_150405"))
	return File{Name: name, Body: body}, nil
}

// WriteDir writes the files into dir, creating it if needed.
func WriteDir(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Body, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	return nil
}

// WriteZip bundles the files into one deflate-compressed zip archive.
func WriteZip(w io.Writer, files []File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		entry, err := zw.Create(f.Name)
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", f.Name, err)
		}
		if _, err := entry.Write(f.Body); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// WriteCSV renders the deduplicated flat lineage table as CSV.
func WriteCSV(w io.Writer, rows []lineage.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"level", "name", "kind", "transactional", "dependencyType", "id"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Level),
			row.Name,
			row.Kind,
			strconv.FormatBool(row.Transactional),
			row.DependencyType,
			row.ID,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// UniqueKinds returns the sorted set of kinds present in the selections,
// used for filter dropdowns.
func UniqueKinds(selections []Selection) []string {
	seen := map[string]struct{}{}
	var kinds []string
	for _, sel := range selections {
		kind := sel.Kind
		if kind == "" {
			kind = "Unknown"
		}
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
