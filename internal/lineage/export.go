package lineage

import "time"

// NodeExport is the JSON-serializable mirror of a node, enriched with the
// derived transactional flag.
type NodeExport struct {
	ID             string       `json:"id"`
	QualifiedName  string       `json:"qualifiedName"`
	Name           string       `json:"name"`
	Kind           string       `json:"kind"`
	FolderID       string       `json:"folderId"`
	DependencyType string       `json:"dependencyType,omitempty"`
	Transactional  bool         `json:"isTransactional"`
	Dependencies   []NodeExport `json:"dependencies"`
}

// TreeExport is the full JSON projection of a tree: the recursive node
// mirror plus the analysis statistics.
type TreeExport struct {
	Root       NodeExport `json:"root"`
	FetchedAt  time.Time  `json:"fetchedAt"`
	Statistics Report     `json:"statistics"`
}

// Export converts a tree into its JSON-serializable projection.
func Export(t *Tree) TreeExport {
	return TreeExport{
		Root:       exportNode(t.Root, 0),
		FetchedAt:  t.FetchedAt,
		Statistics: Analyze(t),
	}
}

func exportNode(n *Node, depth int) NodeExport {
	out := NodeExport{
		ID:             n.ID,
		QualifiedName:  n.QualifiedName,
		Name:           n.Name,
		Kind:           n.Kind,
		FolderID:       n.FolderID,
		DependencyType: n.DependencyType,
		Transactional:  n.IsTransactional(),
		Dependencies:   []NodeExport{},
	}
	if depth > maxTraversalDepth {
		return out
	}
	for _, child := range n.Children {
		out.Dependencies = append(out.Dependencies, exportNode(child, depth+1))
	}
	return out
}

// Summary is the flat per-object listing used by tabular exports.
type Summary struct {
	Name            string `json:"name"`
	QualifiedName   string `json:"qualifiedName"`
	Kind            string `json:"kind"`
	DependencyType  string `json:"dependencyType,omitempty"`
	Transactional   bool   `json:"isTransactional"`
	DependencyCount int    `json:"dependencyCount"`
	FolderID        string `json:"folderId"`
}

// Summarize returns one summary entry per flattened node, duplicates
// included.
func Summarize(t *Tree) []Summary {
	var out []Summary
	walk(t.Root, 0, func(n *Node, _ int) {
		out = append(out, Summary{
			Name:            n.Name,
			QualifiedName:   n.QualifiedName,
			Kind:            n.Kind,
			DependencyType:  n.DependencyType,
			Transactional:   n.IsTransactional(),
			DependencyCount: len(n.Children),
			FolderID:        n.FolderID,
		})
	})
	return out
}
