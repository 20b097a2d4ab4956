package trigger

// Graph holds nodes and their parent→children adjacency list.
// It is immutable once built; hot-reload creates a new Graph and swaps atomically.
type Graph struct {
	version  string
	nodes    map[string]Node   // id → Node
	children map[string][]Node // parent id → ordered children
	roots    []*TriggerNode    // entry points
}

// NewGraph allocates an empty Graph.
func NewGraph(version string) *Graph {
	return &Graph{
		version:  version,
		nodes:    make(map[string]Node),
		children: make(map[string][]Node),
	}
}

// Version is the config version the graph was built from.
func (g *Graph) Version() string { return g.version }

// AddNode registers a node by its ID.
func (g *Graph) AddNode(n Node) {
	g.nodes[n.ID()] = n
	if tn, ok := n.(*TriggerNode); ok {
		g.roots = append(g.roots, tn)
	}
}

// AddEdge records that parent has child as a direct successor.
func (g *Graph) AddEdge(parentID string, child Node) {
	g.children[parentID] = append(g.children[parentID], child)
}

// Node returns a node by ID (nil if not found).
func (g *Graph) Node(id string) Node {
	return g.nodes[id]
}

// Children returns the direct successors of a node.
func (g *Graph) Children(id string) []Node {
	return g.children[id]
}

// Triggers returns all TriggerNodes in config order.
func (g *Graph) Triggers() []*TriggerNode {
	return g.roots
}

// NodeCount returns the total number of registered nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}
