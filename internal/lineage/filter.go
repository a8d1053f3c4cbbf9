package lineage

// filterTransactional projects the subtree under n down to its transactional
// lineage, returning nil when nothing survives. Only children that are
// themselves transactional are recursed into: a dimensional edge is a hard
// boundary, and the subtree behind it is pruned even if it contains
// transactional descendants further down.
func filterTransactional(n *Node, depth int) *Node {
	if n == nil || depth > maxTraversalDepth {
		return nil
	}

	var kept []*Node
	for _, child := range n.Children {
		if !child.IsTransactional() {
			continue
		}
		if filtered := filterTransactional(child, depth+1); filtered != nil {
			kept = append(kept, filtered)
		}
	}

	// The root survives only when at least one transactional child did.
	if n.DependencyType == "" {
		if len(kept) == 0 {
			return nil
		}
		out := n.clone()
		out.Children = kept
		return out
	}

	// A non-root node survives when transactional itself or when a filtered
	// child did. The second clause cannot fire below the first level given
	// the pruning above, but it is kept for compatibility with observed
	// behavior of the repository API tooling.
	if n.IsTransactional() || len(kept) > 0 {
		out := n.clone()
		out.Children = kept
		return out
	}
	return nil
}

// TransactionalLineage returns a new tree holding only the transactional
// lineage of t, preserving the original fetch time. The second return value
// is false when the tree contains no transactional lineage at all, which is
// a normal displayable state, not an error.
func TransactionalLineage(t *Tree) (*Tree, bool) {
	root := filterTransactional(t.Root, 0)
	if root == nil {
		return nil, false
	}
	return &Tree{Root: root, FetchedAt: t.FetchedAt}, true
}
