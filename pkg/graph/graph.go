// Package graph is the read-only dataflow graph model consumed by the
// reducer and the code generators.
//
// Nodes, ports and edges live in arenas owned by Graph and refer to each
// other through integer handles. A node's parent is an index link, so the
// hierarchy never forms reference cycles.
package graph

import (
	"fmt"
	"strconv"
)

// NodeID is the arena handle of a node.
type NodeID int

// PortID is the arena handle of a port.
type PortID int

// EdgeID is the arena handle of an edge.
type EdgeID int

const (
	// NoNode is the parent of top-level nodes.
	NoNode NodeID = -1
	// NoPort marks a node without an input port.
	NoPort PortID = -1
)

// Direction says whether a port receives or emits messages.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Node is a processing stage. Children make it a composite node.
type Node struct {
	ID       NodeID
	Name     string
	Input    PortID
	Outputs  []PortID
	Children []NodeID
	Parent   NodeID
	Attrs    map[string]string
}

// Port is a typed connection point owned by exactly one node.
type Port struct {
	ID      PortID
	Node    NodeID
	Dir     Direction
	Name    string
	MsgType string
	edges   []EdgeID
}

// Edge is a directed connection from an output (or forwarding input) port to
// an input (or forwarding output) port.
type Edge struct {
	ID   EdgeID
	From PortID
	To   PortID
}

// Graph owns every node, port and edge of one dataflow graph.
type Graph struct {
	Name   string
	nodes  []*Node
	ports  []*Port
	edges  []*Edge
	byName map[string]NodeID
}

// New returns an empty graph.
func New(name string) *Graph {
	return &Graph{Name: name, byName: make(map[string]NodeID)}
}

// AddNode creates a node under parent (NoNode for top level). Names are
// unique across the whole graph.
func (g *Graph) AddNode(name string, parent NodeID) (NodeID, error) {
	if name == "" {
		return NoNode, fmt.Errorf("node name must not be empty")
	}
	if _, dup := g.byName[name]; dup {
		return NoNode, fmt.Errorf("duplicate node %q", name)
	}
	if parent != NoNode && !g.validNode(parent) {
		return NoNode, fmt.Errorf("node %q: unknown parent %d", name, parent)
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{
		ID:     id,
		Name:   name,
		Input:  NoPort,
		Parent: parent,
		Attrs:  make(map[string]string),
	})
	g.byName[name] = id
	if parent != NoNode {
		p := g.nodes[parent]
		p.Children = append(p.Children, id)
	}
	return id, nil
}

// SetInput gives n its single input port. Calling it twice is an error.
func (g *Graph) SetInput(n NodeID, msgType string) (PortID, error) {
	node := g.Node(n)
	if node.Input != NoPort {
		return NoPort, fmt.Errorf("node %q already has an input port", node.Name)
	}
	id := g.addPort(n, In, "in", msgType)
	node.Input = id
	return id, nil
}

// AddOutput appends an output port to n. An empty name defaults to out<i>.
func (g *Graph) AddOutput(n NodeID, name, msgType string) (PortID, error) {
	node := g.Node(n)
	if name == "" {
		name = "out" + strconv.Itoa(len(node.Outputs))
	}
	for _, p := range node.Outputs {
		if g.ports[p].Name == name {
			return NoPort, fmt.Errorf("node %q: duplicate output port %q", node.Name, name)
		}
	}
	id := g.addPort(n, Out, name, msgType)
	node.Outputs = append(node.Outputs, id)
	return id, nil
}

func (g *Graph) addPort(n NodeID, dir Direction, name, msgType string) PortID {
	id := PortID(len(g.ports))
	g.ports = append(g.ports, &Port{ID: id, Node: n, Dir: dir, Name: name, MsgType: msgType})
	return id
}

// Connect adds an edge after checking that its endpoints form a legal
// forwarding or sibling relationship.
func (g *Graph) Connect(from, to PortID) (EdgeID, error) {
	if !g.validPort(from) || !g.validPort(to) {
		return -1, &EdgeError{Reason: fmt.Sprintf("unknown port in edge %d -> %d", from, to)}
	}
	if err := g.checkEdge(from, to); err != nil {
		return -1, err
	}
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, &Edge{ID: id, From: from, To: to})
	g.ports[from].edges = append(g.ports[from].edges, id)
	g.ports[to].edges = append(g.ports[to].edges, id)
	return id, nil
}

func (g *Graph) checkEdge(from, to PortID) error {
	fp, tp := g.ports[from], g.ports[to]
	fn, tn := g.nodes[fp.Node], g.nodes[tp.Node]
	switch {
	case fp.Dir == In && tp.Dir == In && tn.Parent == fn.ID:
		return nil
	case fp.Dir == Out && tp.Dir == Out && fn.Parent == tn.ID:
		return nil
	case fp.Dir == Out && tp.Dir == In && fn.ID != tn.ID && fn.Parent == tn.Parent:
		return nil
	}
	return &EdgeError{
		From:   g.PortString(from),
		To:     g.PortString(to),
		Reason: "endpoints are neither parent/child forwarding ports nor sibling output/input ports",
	}
}

// ─── accessors ───────────────────────────────────────────────────────────────

// Node returns the node for id. It panics on a handle not issued by g.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// Port returns the port for id.
func (g *Graph) Port(id PortID) *Port { return g.ports[id] }

// Edge returns the edge for id.
func (g *Graph) Edge(id EdgeID) *Edge { return g.edges[id] }

// Lookup finds a node by name.
func (g *Graph) Lookup(name string) (NodeID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Nodes returns every node in creation order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns every edge in creation order.
func (g *Graph) Edges() []*Edge { return g.edges }

// TopLevel returns the nodes without a parent, in creation order.
func (g *Graph) TopLevel() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Parent == NoNode {
			out = append(out, n)
		}
	}
	return out
}

// Leaves returns the nodes without children, in creation order.
func (g *Graph) Leaves() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if len(n.Children) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// PortEdges returns the edges attached to p in insertion order.
func (g *Graph) PortEdges(p PortID) []EdgeID { return g.ports[p].edges }

// PortString renders a port as node.port for messages.
func (g *Graph) PortString(p PortID) string {
	port := g.ports[p]
	return g.nodes[port.Node].Name + "." + port.Name
}

func (g *Graph) validNode(id NodeID) bool { return id >= 0 && int(id) < len(g.nodes) }
func (g *Graph) validPort(id PortID) bool { return id >= 0 && int(id) < len(g.ports) }
