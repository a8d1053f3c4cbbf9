// Package docs renders lineage documentation as Markdown: an overview with
// statistics, per-object detail sections with optional field tables, field
// mappings for the flow objects, and a flat appendix.
package docs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dsphere-labs/dsptool/internal/csn"
	"github.com/dsphere-labs/dsptool/internal/lineage"
)

// FieldSource resolves deployed field definitions for the object detail
// sections. *db.Client satisfies it.
type FieldSource interface {
	ObjectCSN(ctx context.Context, spaceID, objectName string) (csn.Definition, bool, error)
}

// Options controls what the generated document includes.
type Options struct {
	// IncludeFields adds a field table per object, resolved via the
	// FieldSource. Ignored when the builder has no FieldSource.
	IncludeFields bool
	// TransactionalOnly documents the transactional projection instead of
	// the full tree.
	TransactionalOnly bool
}

// Builder renders lineage documentation.
type Builder struct {
	fields FieldSource
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a documentation builder. fields may be nil, in which
// case field tables are skipped.
func NewBuilder(fields FieldSource, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{fields: fields, logger: logger, now: time.Now}
}

// Build renders the documentation for one lineage tree. spaceID is used to
// resolve field definitions and may be empty when fields are not requested.
func (b *Builder) Build(ctx context.Context, t *lineage.Tree, objectName, spaceID string, opts Options) (string, error) {
	b.logger.Info("building documentation", "object", objectName)

	if opts.TransactionalOnly {
		if filtered, ok := lineage.TransactionalLineage(t); ok {
			t = filtered
		}
	}

	var w strings.Builder
	b.writeTitle(&w, t, objectName)
	b.writeOverview(&w, t, objectName)
	b.writeObjects(ctx, &w, t, spaceID, opts)
	b.writeFieldMappings(&w, t)
	b.writeAppendix(&w, t)

	b.logger.Info("documentation built", "object", objectName, "bytes", w.Len())
	return w.String(), nil
}

// WriteFile renders the documentation and writes it to path.
func (b *Builder) WriteFile(ctx context.Context, t *lineage.Tree, objectName, spaceID, path string, opts Options) error {
	doc, err := b.Build(ctx, t, objectName, spaceID, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("failed to write documentation: %w", err)
	}
	b.logger.Info("documentation saved", "path", path)
	return nil
}

func (b *Builder) writeTitle(w *strings.Builder, t *lineage.Tree, objectName string) {
	transactional := 0
	for _, n := range t.Flatten() {
		if n.IsTransactional() {
			transactional++
		}
	}

	fmt.Fprintf(w, "# Data Lineage Documentation\n\n")
	fmt.Fprintf(w, "## %s\n\n", objectName)
	writeTable(w,
		[]string{"", ""},
		[][]string{
			{"Generated On", b.now().Format("2006-01-02 15:04:05")},
			{"Lineage Fetched", t.FetchedAt.Format("2006-01-02 15:04:05")},
			{"Total Objects", fmt.Sprint(t.CountObjects())},
			{"Transactional Objects", fmt.Sprint(transactional)},
		})
}

func (b *Builder) writeOverview(w *strings.Builder, t *lineage.Tree, objectName string) {
	report := lineage.Analyze(t)

	fmt.Fprintf(w, "## 1. Overview\n\n")
	fmt.Fprintf(w, "### 1.1 Purpose\n\n")
	fmt.Fprintf(w, "This document describes the data lineage of %s, covering its dependencies, data flows, and field-level structure.\n\n", objectName)

	fmt.Fprintf(w, "### 1.2 Lineage Summary\n\n")
	writeTable(w,
		[]string{"", ""},
		[][]string{
			{"Total Objects in Lineage", fmt.Sprint(report.TotalObjects)},
			{"Transactional Objects", fmt.Sprint(report.TransactionalObjects)},
			{"Non-Transactional Objects", fmt.Sprint(report.NonTransactionalObjects)},
			{"Maximum Dependency Depth", fmt.Sprint(report.MaxDepth)},
			{"Source Objects (Leaf Nodes)", fmt.Sprint(report.SourceObjectCount)},
		})

	fmt.Fprintf(w, "### 1.3 Object Type Distribution\n\n")
	var typeRows [][]string
	for _, kind := range sortedKeys(report.CountByKind) {
		typeRows = append(typeRows, []string{kind, fmt.Sprint(report.CountByKind[kind])})
	}
	writeTable(w, []string{"Object Type", "Count"}, typeRows)
}

func (b *Builder) writeObjects(ctx context.Context, w *strings.Builder, t *lineage.Tree, spaceID string, opts Options) {
	fmt.Fprintf(w, "## 2. Object Details\n\n")

	for idx, obj := range t.Flatten() {
		fmt.Fprintf(w, "### 2.%d %s\n\n", idx+1, obj.Name)
		writeTable(w,
			[]string{"", ""},
			[][]string{
				{"Qualified Name", obj.QualifiedName},
				{"Object Type", obj.Kind},
				{"Transactional", yesNo(obj.IsTransactional())},
				{"Dependencies", fmt.Sprint(len(obj.Children))},
			})

		if opts.IncludeFields && b.fields != nil && spaceID != "" {
			b.writeFieldTable(ctx, w, spaceID, obj, idx+1)
		}
	}
}

func (b *Builder) writeFieldTable(ctx context.Context, w *strings.Builder, spaceID string, obj *lineage.Node, idx int) {
	def, ok, err := b.fields.ObjectCSN(ctx, spaceID, obj.QualifiedName)
	if err != nil {
		b.logger.Warn("failed to fetch fields", "object", obj.QualifiedName, "error", err)
		fmt.Fprintf(w, "Note: field information not available.\n\n")
		return
	}
	if !ok || len(def.Elements) == 0 {
		return
	}

	fmt.Fprintf(w, "#### 2.%d.1 Fields\n\n", idx)
	rows := make([][]string, 0, len(def.Elements))
	for _, el := range def.Elements {
		length := "-"
		if el.Length > 0 {
			length = fmt.Sprint(el.Length)
		}
		rows = append(rows, []string{
			el.TechnicalName,
			dash(el.Label),
			el.Type,
			length,
			mark(el.Key),
			mark(el.NotNull),
		})
	}
	writeTable(w, []string{"Field Name", "Label", "Type", "Length", "Key", "Required"}, rows)
}

func (b *Builder) writeFieldMappings(w *strings.Builder, t *lineage.Tree) {
	fmt.Fprintf(w, "## 3. Field Mappings\n\n")
	fmt.Fprintf(w, "This section shows how data moves through the flow objects in the lineage.\n\n")

	var flows []*lineage.Node
	for _, n := range t.Flatten() {
		if n.IsTransactional() {
			flows = append(flows, n)
		}
	}
	if len(flows) == 0 {
		fmt.Fprintf(w, "No transactional objects found in lineage.\n\n")
		return
	}

	for idx, obj := range flows {
		fmt.Fprintf(w, "### 3.%d %s\n\n", idx+1, obj.Name)

		kind := strings.ToLower(obj.Kind)
		switch {
		case strings.Contains(kind, "transformationflow"):
			fmt.Fprintf(w, "Type: Transformation Flow\n\n")
			var sources []string
			for _, dep := range obj.Children {
				if strings.Contains(strings.ToLower(dep.DependencyType), "source") {
					sources = append(sources, dep.QualifiedName)
				}
			}
			if len(sources) > 0 {
				fmt.Fprintf(w, "Source objects:\n\n")
				for _, s := range sources {
					fmt.Fprintf(w, "- %s\n", s)
				}
				fmt.Fprintf(w, "\n")
			}
		case strings.Contains(kind, "replicationflow"):
			fmt.Fprintf(w, "Type: Replication Flow\n\n")
			fmt.Fprintf(w, "Direct data replication from source to target.\n\n")
		}
	}
}

func (b *Builder) writeAppendix(w *strings.Builder, t *lineage.Tree) {
	fmt.Fprintf(w, "## Appendix\n\n")
	fmt.Fprintf(w, "### A. Complete Object List\n\n")

	var rows [][]string
	for idx, obj := range t.Flatten() {
		rows = append(rows, []string{
			fmt.Sprint(idx + 1),
			obj.QualifiedName,
			obj.Kind,
			yesNo(obj.IsTransactional()),
		})
	}
	writeTable(w, []string{"#", "Object Name", "Type", "Transactional"}, rows)

	fmt.Fprintf(w, "### B. Glossary\n\n")
	for _, entry := range glossary {
		fmt.Fprintf(w, "**%s**: %s\n\n", entry[0], entry[1])
	}
}

var glossary = [][2]string{
	{"Lineage", "The path of data from source systems through transformations to final target objects."},
	{"Transactional Object", "Objects that modify or move data (flows, replications, transformations)."},
	{"Non-Transactional Object", "Objects that reference data without modifying it (views, associations)."},
	{"Replication Flow", "SAP Datasphere object that replicates data from source to target."},
	{"Transformation Flow", "SAP Datasphere object that transforms data using SQL or graphical logic."},
	{"Dependency", "Relationship between objects where one object uses or references another."},
	{"CSN", "Core Schema Notation, SAP's metadata format containing field definitions."},
}
