// Package lineage provides the dependency-tree model for Datasphere objects.
//
// The Datasphere repository API answers a dependency query with a nested
// structure: one root object and, recursively, the objects it depends on.
// This package turns that structure into a typed tree and offers the
// analysis operations the rest of the toolkit is built on.
//
// # Features
//
//   - Classification: distinguishes transactional (data-moving) edges from
//     dimensional (reference/lookup) edges
//   - Analysis: depth, flattening, per-kind counts, source-object detection
//   - Filtering: projects a tree down to its transactional lineage
//   - Flat display: deduplicated table rows for tabular rendering
//
// # Basic Usage
//
//	tree, err := client.Lineage(ctx, objectID, api.LineageOptions{Recursive: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report := lineage.Analyze(tree)
//	fmt.Printf("%d objects, max depth %d\n", report.TotalObjects, report.MaxDepth)
//
// All operations are pure: they never mutate the tree they are given.
package lineage
