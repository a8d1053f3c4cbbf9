package lineage

import "sort"

// Row is one line of the flat tabular projection of a tree.
type Row struct {
	Level          int    `json:"level"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	Transactional  bool   `json:"transactional"`
	DependencyType string `json:"dependencyType"`
	ID             string `json:"id"`
}

// FlatRows flattens the tree into display rows, deduplicating by node ID.
// When an object appears under several parents, the shallowest placement
// wins; at equal depth the first pre-order occurrence is kept. Rows come
// back ordered by ascending level.
func FlatRows(t *Tree) []Row {
	type placement struct {
		node  *Node
		depth int
		seq   int
	}

	byID := make(map[string]placement)
	seq := 0
	walk(t.Root, 0, func(n *Node, depth int) {
		cur, seen := byID[n.ID]
		if !seen || depth < cur.depth {
			byID[n.ID] = placement{node: n, depth: depth, seq: seq}
		}
		seq++
	})

	placements := make([]placement, 0, len(byID))
	for _, p := range byID {
		placements = append(placements, p)
	}
	sort.Slice(placements, func(i, j int) bool {
		if placements[i].depth != placements[j].depth {
			return placements[i].depth < placements[j].depth
		}
		return placements[i].seq < placements[j].seq
	})

	rows := make([]Row, 0, len(placements))
	for _, p := range placements {
		rows = append(rows, Row{
			Level:          p.depth,
			Name:           p.node.Name,
			Kind:           p.node.Kind,
			Transactional:  p.node.IsTransactional(),
			DependencyType: p.node.DependencyType,
			ID:             p.node.ID,
		})
	}
	return rows
}

// Levels groups the qualified names of all nodes by depth, the data behind
// the flow diagram view. Index 0 holds the root level.
func Levels(t *Tree) [][]string {
	var levels [][]string
	walk(t.Root, 0, func(n *Node, depth int) {
		for len(levels) <= depth {
			levels = append(levels, nil)
		}
		levels[depth] = append(levels[depth], n.QualifiedName)
	})
	return levels
}
