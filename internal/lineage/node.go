package lineage

// Dependency types describing how a node relates to its parent.
// The vocabulary comes from the Datasphere repository API.
const (
	DepQueryFrom            = "csn.query.from"
	DepReplicationSource    = "sap.dis.replicationflow.source"
	DepReplicationTargetOf  = "sap.dis.replicationflow.targetOf"
	DepTransformationSource = "sap.dwc.transformationflow.source"
	DepTransformationTarget = "sap.dwc.transformationflow.targetOf"
	DepFlowTarget           = "sap.dis.target"
	DepFlowSource           = "sap.dis.source"
	DepTargetOf             = "sap.dis.targetOf"

	DepAssociation  = "csn.entity.association"
	DepValueHelp    = "csn.valueHelp.entity"
	DepLookupEntity = "csn.derivation.lookupEntity"
	DepIDTEntity    = "sap.dwc.idtEntity"
)

// Object kinds that move data on their own, used when a node carries no
// dependency type (the query root) or an unrecognized one.
const (
	KindReplicationFlow    = "sap.dis.replicationflow"
	KindTransformationFlow = "sap.dis.transformationflow"
	KindDataFlow           = "sap.dwc.dataflow"
	KindLocalTable         = "sap.dwc.localtable"
)

// transactionalDeps are edges that represent actual data movement.
var transactionalDeps = map[string]struct{}{
	DepQueryFrom:            {},
	DepReplicationSource:    {},
	DepReplicationTargetOf:  {},
	DepTransformationSource: {},
	DepTransformationTarget: {},
	DepFlowTarget:           {},
	DepFlowSource:           {},
	DepTargetOf:             {},
}

// dimensionalDeps are reference/lookup edges that never carry data flow.
var dimensionalDeps = map[string]struct{}{
	DepAssociation:  {},
	DepValueHelp:    {},
	DepLookupEntity: {},
	DepIDTEntity:    {},
}

// rootTransactionalKinds classifies a node without a dependency type.
var rootTransactionalKinds = map[string]struct{}{
	KindReplicationFlow:    {},
	KindTransformationFlow: {},
	KindDataFlow:           {},
	KindLocalTable:         {},
}

// fallbackTransactionalKinds classifies a node whose dependency type is
// unrecognized. Narrower than the root set: a local table reached over an
// unknown edge is not assumed to move data.
var fallbackTransactionalKinds = map[string]struct{}{
	KindReplicationFlow:    {},
	KindTransformationFlow: {},
	KindDataFlow:           {},
}

// Node is a single vertex in a dependency tree. Children are owned
// exclusively by their parent; the same repository object may legally appear
// under several parents and stays duplicated until a dedup pass is requested.
type Node struct {
	ID             string
	QualifiedName  string
	Name           string
	Kind           string
	FolderID       string
	DependencyType string // empty at the root
	Hash           string
	Impact         bool
	Lineage        bool
	Children       []*Node
}

// NodePayload mirrors one element of the repository dependencies response.
// Unknown or missing fields decode to zero values so a tree always builds
// from syntactically valid JSON.
type NodePayload struct {
	ID             string        `json:"id"`
	QualifiedName  string        `json:"qualifiedName"`
	Name           string        `json:"name"`
	Kind           string        `json:"kind"`
	FolderID       string        `json:"folderId"`
	DependencyType string        `json:"dependencyType"`
	Hash           string        `json:"hash"`
	Impact         bool          `json:"impact"`
	Lineage        *bool         `json:"lineage"`
	Dependencies   []NodePayload `json:"dependencies"`
}

// FromPayload builds a typed node tree from a decoded API payload.
// Missing names default to the qualified name, missing kinds to "unknown",
// and the lineage flag defaults to true, matching the API's semantics.
func FromPayload(p NodePayload) *Node {
	name := p.Name
	if name == "" {
		name = p.QualifiedName
	}
	kind := p.Kind
	if kind == "" {
		kind = "unknown"
	}
	lin := true
	if p.Lineage != nil {
		lin = *p.Lineage
	}

	node := &Node{
		ID:             p.ID,
		QualifiedName:  p.QualifiedName,
		Name:           name,
		Kind:           kind,
		FolderID:       p.FolderID,
		DependencyType: p.DependencyType,
		Hash:           p.Hash,
		Impact:         p.Impact,
		Lineage:        lin,
	}
	for _, dep := range p.Dependencies {
		node.Children = append(node.Children, FromPayload(dep))
	}
	return node
}

// IsTransactional reports whether this node represents data movement rather
// than a dimensional lookup. The dependency type takes precedence over the
// object kind: the same kind can appear via a data-moving edge in one branch
// and a reference edge in another.
func (n *Node) IsTransactional() bool {
	if n.DependencyType == "" {
		_, ok := rootTransactionalKinds[n.Kind]
		return ok
	}
	if _, ok := transactionalDeps[n.DependencyType]; ok {
		return true
	}
	if _, ok := dimensionalDeps[n.DependencyType]; ok {
		return false
	}
	_, ok := fallbackTransactionalKinds[n.Kind]
	return ok
}

// clone returns a copy of the node without children.
func (n *Node) clone() *Node {
	c := *n
	c.Children = nil
	return &c
}
