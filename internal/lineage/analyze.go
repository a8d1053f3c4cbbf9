package lineage

import "strings"

// sourceObjectLimit caps the source-object sample in a Report. The full
// count is still reported; the sample is for display.
const sourceObjectLimit = 10

// SourceObject identifies a leaf of the tree, interpreted as an ultimate
// data source.
type SourceObject struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Report is the aggregate analysis of a dependency tree.
type Report struct {
	TotalObjects            int            `json:"totalObjects"`
	TransactionalObjects    int            `json:"transactionalObjects"`
	NonTransactionalObjects int            `json:"nonTransactionalObjects"`
	MaxDepth                int            `json:"maxDepth"`
	SourceObjectCount       int            `json:"sourceObjectCount"`
	CountByKind             map[string]int `json:"countByKind"`
	SourceObjects           []SourceObject `json:"sourceObjects"`
}

// Analyze computes the aggregate report for a tree.
func Analyze(t *Tree) Report {
	all := t.Flatten()

	transactional := 0
	var sources []SourceObject
	sourceCount := 0
	for _, n := range all {
		if n.IsTransactional() {
			transactional++
		}
		if len(n.Children) == 0 {
			sourceCount++
			if len(sources) < sourceObjectLimit {
				sources = append(sources, SourceObject{Name: n.Name, Kind: n.Kind})
			}
		}
	}

	return Report{
		TotalObjects:            len(all),
		TransactionalObjects:    transactional,
		NonTransactionalObjects: len(all) - transactional,
		MaxDepth:                t.MaxDepth(),
		SourceObjectCount:       sourceCount,
		CountByKind:             t.CountByKind(),
		SourceObjects:           sources,
	}
}

// FindPath searches depth-first for the first node whose qualified name or
// display name equals target and returns the ordered path from the root to
// it. The pre-order-first match wins when names repeat. The second return
// value is false when no node matches.
func FindPath(t *Tree, target string) ([]*Node, bool) {
	var path []*Node
	if findPath(t.Root, target, 0, &path) {
		return path, true
	}
	return nil, false
}

func findPath(n *Node, target string, depth int, path *[]*Node) bool {
	if n == nil || depth > maxTraversalDepth {
		return false
	}
	*path = append(*path, n)
	if n.QualifiedName == target || n.Name == target {
		return true
	}
	for _, child := range n.Children {
		if findPath(child, target, depth+1, path) {
			return true
		}
	}
	*path = (*path)[:len(*path)-1]
	return false
}

// Categories partitions the tree's objects by kind. Buckets hold qualified
// names; an object appears once per occurrence in the tree.
type Categories struct {
	ReplicationFlows    []string `json:"replicationFlows"`
	TransformationFlows []string `json:"transformationFlows"`
	Views               []string `json:"views"`
	Tables              []string `json:"tables"`
	Other               []string `json:"other"`
}

// Categorize buckets all objects by substring match on the lower-cased kind.
// Checks run in priority order; the first match wins.
func Categorize(t *Tree) Categories {
	var c Categories
	walk(t.Root, 0, func(n *Node, _ int) {
		kind := strings.ToLower(n.Kind)
		switch {
		case strings.Contains(kind, "replicationflow"):
			c.ReplicationFlows = append(c.ReplicationFlows, n.QualifiedName)
		case strings.Contains(kind, "transformationflow"):
			c.TransformationFlows = append(c.TransformationFlows, n.QualifiedName)
		case strings.Contains(kind, "view"):
			c.Views = append(c.Views, n.QualifiedName)
		case strings.Contains(kind, "table"):
			c.Tables = append(c.Tables, n.QualifiedName)
		default:
			c.Other = append(c.Other, n.QualifiedName)
		}
	})
	return c
}

// FlowPath returns the qualified names of all transactional nodes in
// pre-order. The walk covers the entire tree, dimensional branches included;
// it only skips emitting them.
func FlowPath(t *Tree) []string {
	var names []string
	walk(t.Root, 0, func(n *Node, _ int) {
		if n.IsTransactional() {
			names = append(names, n.QualifiedName)
		}
	})
	return names
}

// SourceObjects returns the qualified names of all leaf nodes.
func SourceObjects(t *Tree) []string {
	var names []string
	walk(t.Root, 0, func(n *Node, _ int) {
		if len(n.Children) == 0 {
			names = append(names, n.QualifiedName)
		}
	})
	return names
}
