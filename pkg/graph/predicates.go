package graph

// IncomingEdges returns the edges arriving at n's input port.
func (g *Graph) IncomingEdges(n NodeID) []*Edge {
	node := g.nodes[n]
	if node.Input == NoPort {
		return nil
	}
	var out []*Edge
	for _, e := range g.ports[node.Input].edges {
		if g.edges[e].To == node.Input {
			out = append(out, g.edges[e])
		}
	}
	return out
}

// OutgoingEdges returns the edges leaving n's output ports, port by port in
// declaration order, edges in insertion order within a port.
func (g *Graph) OutgoingEdges(n NodeID) []*Edge {
	var out []*Edge
	for _, p := range g.nodes[n].Outputs {
		for _, e := range g.ports[p].edges {
			if g.edges[e].From == p {
				out = append(out, g.edges[e])
			}
		}
	}
	return out
}

// IsSource reports whether n has no input port or nothing feeds it.
func (g *Graph) IsSource(n NodeID) bool { return len(g.IncomingEdges(n)) == 0 }

// IsSink reports whether n has no output ports.
func (g *Graph) IsSink(n NodeID) bool { return len(g.nodes[n].Outputs) == 0 }

// IsFanIn reports whether n's input port has more than one incoming edge.
func (g *Graph) IsFanIn(n NodeID) bool { return len(g.IncomingEdges(n)) > 1 }

// IsFanOut reports whether n has more than one outgoing edge in total.
func (g *Graph) IsFanOut(n NodeID) bool { return len(g.OutgoingEdges(n)) > 1 }

// IsLeaf reports whether n has no children.
func (g *Graph) IsLeaf(n NodeID) bool { return len(g.nodes[n].Children) == 0 }

// Successors returns the node at the far end of every outgoing edge, one
// entry per edge.
func (g *Graph) Successors(n NodeID) []NodeID {
	edges := g.OutgoingEdges(n)
	out := make([]NodeID, len(edges))
	for i, e := range edges {
		out[i] = g.ports[e.To].Node
	}
	return out
}

// Predecessors returns the node at the near end of every incoming edge, one
// entry per edge.
func (g *Graph) Predecessors(n NodeID) []NodeID {
	edges := g.IncomingEdges(n)
	out := make([]NodeID, len(edges))
	for i, e := range edges {
		out[i] = g.ports[e.From].Node
	}
	return out
}

// Sources returns every source node in creation order.
func (g *Graph) Sources() []NodeID {
	var out []NodeID
	for _, n := range g.nodes {
		if g.IsSource(n.ID) {
			out = append(out, n.ID)
		}
	}
	return out
}

// HasHierarchy reports whether any node has children.
func (g *Graph) HasHierarchy() bool {
	for _, n := range g.nodes {
		if len(n.Children) > 0 {
			return true
		}
	}
	return false
}

// OutType returns the message type carried by n's connected output: the
// type of the first output port that has an outgoing edge, else the first
// output port, else "".
func (g *Graph) OutType(n NodeID) string {
	node := g.nodes[n]
	for _, p := range node.Outputs {
		for _, e := range g.ports[p].edges {
			if g.edges[e].From == p {
				return g.ports[p].MsgType
			}
		}
	}
	if len(node.Outputs) > 0 {
		return g.ports[node.Outputs[0]].MsgType
	}
	return ""
}

// InType returns the message type of n's input port, or "".
func (g *Graph) InType(n NodeID) string {
	node := g.nodes[n]
	if node.Input == NoPort {
		return ""
	}
	return g.ports[node.Input].MsgType
}
