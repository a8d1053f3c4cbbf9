package lineage

import "time"

// maxTraversalDepth bounds every recursive walk. The API is trusted not to
// return cycles, but a malformed response must degrade to a truncated
// traversal instead of a stack overflow.
const maxTraversalDepth = 512

// Tree wraps the root of a dependency query result together with the time
// the data was fetched. A tree is immutable after construction: every
// operation either reads it or produces a new tree.
type Tree struct {
	Root      *Node
	FetchedAt time.Time
}

// NewTree wraps root in a tree stamped with the current time.
func NewTree(root *Node) *Tree {
	return &Tree{Root: root, FetchedAt: time.Now()}
}

// Flatten returns all nodes in depth-first pre-order: a node before its
// children, children in their original order.
func (t *Tree) Flatten() []*Node {
	var nodes []*Node
	walk(t.Root, 0, func(n *Node, _ int) {
		nodes = append(nodes, n)
	})
	return nodes
}

// CountObjects returns the total number of nodes, duplicates included.
func (t *Tree) CountObjects() int {
	return len(t.Flatten())
}

// CountByKind returns per-kind occurrence counts over the flattened tree.
func (t *Tree) CountByKind() map[string]int {
	counts := make(map[string]int)
	walk(t.Root, 0, func(n *Node, _ int) {
		counts[n.Kind]++
	})
	return counts
}

// MaxDepth returns the depth of the deepest path from the root.
// A tree consisting of only a root has depth 0.
func (t *Tree) MaxDepth() int {
	max := 0
	walk(t.Root, 0, func(_ *Node, depth int) {
		if depth > max {
			max = depth
		}
	})
	return max
}

// walk visits the subtree under n in pre-order, passing each node's depth.
// Descent stops at maxTraversalDepth.
func walk(n *Node, depth int, visit func(*Node, int)) {
	if n == nil || depth > maxTraversalDepth {
		return
	}
	visit(n, depth)
	for _, child := range n.Children {
		walk(child, depth+1, visit)
	}
}
