package graph

import "maps"

// Flatten returns a new graph holding only the leaf nodes of g, with every
// chain of forwarding edges through composite nodes collapsed into a direct
// leaf-to-leaf edge. Leaves keep their names, ports and attributes; handles
// are reissued in the original creation order.
func (g *Graph) Flatten() (*Graph, error) {
	flat := New(g.Name)
	portMap := make(map[PortID]PortID)

	for _, n := range g.Leaves() {
		id, err := flat.AddNode(n.Name, NoNode)
		if err != nil {
			return nil, err
		}
		nn := flat.Node(id)
		maps.Copy(nn.Attrs, n.Attrs)
		if n.Input != NoPort {
			p, err := flat.SetInput(id, g.ports[n.Input].MsgType)
			if err != nil {
				return nil, err
			}
			portMap[n.Input] = p
		}
		for _, op := range n.Outputs {
			port := g.ports[op]
			p, err := flat.AddOutput(id, port.Name, port.MsgType)
			if err != nil {
				return nil, err
			}
			portMap[op] = p
		}
	}

	for _, n := range g.Leaves() {
		for _, op := range n.Outputs {
			for _, target := range g.leafTargets(op) {
				if _, err := flat.Connect(portMap[op], portMap[target]); err != nil {
					return nil, err
				}
			}
		}
	}
	return flat, nil
}

// leafTargets follows edges leaving p until each path reaches a leaf input
// port. Composite input ports forward down to children, composite output
// ports forward up to the parent's consumers.
func (g *Graph) leafTargets(p PortID) []PortID {
	var out []PortID
	for _, e := range g.ports[p].edges {
		edge := g.edges[e]
		if edge.From != p {
			continue
		}
		dst := g.ports[edge.To]
		if dst.Dir == In && g.IsLeaf(dst.Node) {
			out = append(out, dst.ID)
			continue
		}
		out = append(out, g.leafTargets(dst.ID)...)
	}
	return out
}
