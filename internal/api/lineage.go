package api

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dsphere-labs/dsptool/internal/lineage"
)

// defaultDependencyTypes is the full set of edge types requested from the
// dependency endpoint when the caller does not restrict them.
var defaultDependencyTypes = []string{
	lineage.DepFlowTarget,
	lineage.DepAssociation,
	lineage.DepQueryFrom,
	lineage.DepFlowSource,
	lineage.DepTargetOf,
	lineage.DepReplicationSource,
	lineage.DepReplicationTargetOf,
	lineage.DepTransformationSource,
	lineage.DepTransformationTarget,
	lineage.DepIDTEntity,
	lineage.DepLookupEntity,
	lineage.DepValueHelp,
}

// LineageOptions controls a dependency query.
type LineageOptions struct {
	Recursive       bool
	Impact          bool
	Lineage         bool
	DependencyTypes []string // nil means all known types
}

// DefaultLineageOptions queries the full recursive graph in both directions.
func DefaultLineageOptions() LineageOptions {
	return LineageOptions{Recursive: true, Impact: true, Lineage: true}
}

// Lineage fetches the dependency tree of the object with the given ID and
// parses it into a typed tree. An empty response is an error: a tree cannot
// represent "no root", so the boundary fails fast.
func (c *Client) Lineage(ctx context.Context, objectID string, opts LineageOptions) (*lineage.Tree, error) {
	depTypes := opts.DependencyTypes
	if depTypes == nil {
		depTypes = defaultDependencyTypes
	}

	params := map[string]string{
		"ids":             objectID,
		"recursive":       strconv.FormatBool(opts.Recursive),
		"impact":          strconv.FormatBool(opts.Impact),
		"lineage":         strconv.FormatBool(opts.Lineage),
		"dependencyTypes": strings.Join(depTypes, ","),
	}

	data, err := c.get(ctx, "/deepsea/repository/dependencies/", params, lineageTimeout)
	if err != nil {
		return nil, err
	}

	list, ok := data.([]any)
	if !ok || len(list) == 0 {
		return nil, apiErr(0, "empty lineage response for object %s", objectID)
	}

	// Round-trip the first element through JSON into the typed payload;
	// unknown fields drop out, missing ones default.
	raw, err := json.Marshal(list[0])
	if err != nil {
		return nil, apiErr(0, "failed to re-encode lineage payload: %v", err)
	}
	var payload lineage.NodePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apiErr(0, "failed to parse lineage payload: %v", err)
	}

	tree := lineage.NewTree(lineage.FromPayload(payload))
	c.logger.Info("fetched lineage", "object", objectID, "objects", tree.CountObjects())
	return tree, nil
}
