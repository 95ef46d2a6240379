package graph

import (
	"fmt"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
)

// clusterPrefix marks a DOT subgraph whose members are children of the node
// named by the rest of the subgraph name: `subgraph cluster_pre { ... }`
// holds the children of node `pre`.
const clusterPrefix = "cluster_"

// ParseDOT parses a Graphviz DOT string into a Graph.
//
// Node attributes describe ports: `in="Frame"` declares the input port and
// its message type, `out="frames:Frame,meta:Meta"` declares ordered output
// ports (a bare type names a port out<i>). Other attributes are kept in
// Node.Attrs. Port edges (`cam:frames -> blur`) pick an output port; an edge
// from a parent to its child forwards the parent's input, an edge from a
// child to its parent (`blur -> pre:out`) forwards to a parent output.
func ParseDOT(src string) (*Graph, error) {
	graphAst, err := gographviz.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("dot parse error: %w", err)
	}

	collector := newDOTCollector()
	if err := gographviz.Analyse(graphAst, collector); err != nil {
		return nil, fmt.Errorf("dot analyse error: %w", err)
	}
	return collector.build()
}

// ─── permissive DOT collector ─────────────────────────────────────────────────

type rawEdge struct {
	from, fromPort string
	to, toPort     string
}

// dotCollector implements gographviz.Interface without attribute validation
// and remembers declaration order so the resulting graph is deterministic.
type dotCollector struct {
	name      string
	order     []string
	nodes     map[string]map[string]string
	container map[string]string
	declared  map[string]bool
	subgraphs map[string]string // subgraph -> enclosing graph
	edges     []rawEdge
}

func newDOTCollector() *dotCollector {
	return &dotCollector{
		nodes:     make(map[string]map[string]string),
		container: make(map[string]string),
		declared:  make(map[string]bool),
		subgraphs: make(map[string]string),
	}
}

func (c *dotCollector) SetStrict(_ bool) error { return nil }
func (c *dotCollector) SetDir(_ bool) error    { return nil }
func (c *dotCollector) SetName(n string) error { c.name = unquote(n); return nil }
func (c *dotCollector) String() string         { return c.name }

func (c *dotCollector) AddNode(parentGraph string, name string, attrs map[string]string) error {
	id := unquote(name)
	if _, ok := c.nodes[id]; !ok {
		c.nodes[id] = make(map[string]string)
		c.order = append(c.order, id)
	}
	for k, v := range attrs {
		c.nodes[id][k] = unquote(v)
	}
	// Edge statements re-announce their endpoints, without attributes, in
	// whatever graph the edge is written in. A node statement carrying
	// attributes is authoritative for membership.
	parent := unquote(parentGraph)
	_, isSub := c.subgraphs[parent]
	switch {
	case len(attrs) > 0:
		c.declared[id] = true
		if isSub {
			c.container[id] = parent
		} else {
			delete(c.container, id)
		}
	case isSub && !c.declared[id]:
		if _, set := c.container[id]; !set {
			c.container[id] = parent
		}
	}
	return nil
}

func (c *dotCollector) AddEdge(src, dst string, directed bool, attrs map[string]string) error {
	return c.AddPortEdge(src, "", dst, "", directed, attrs)
}

func (c *dotCollector) AddPortEdge(src, srcPort, dst, dstPort string, _ bool, _ map[string]string) error {
	c.edges = append(c.edges, rawEdge{
		from: unquote(src), fromPort: portName(srcPort),
		to: unquote(dst), toPort: portName(dstPort),
	})
	return nil
}

func (c *dotCollector) AddAttr(_ string, _, _ string) error { return nil }

func (c *dotCollector) AddSubGraph(parentGraph, name string, _ map[string]string) error {
	c.subgraphs[unquote(name)] = unquote(parentGraph)
	return nil
}

// parentOf resolves the node owning id: the nearest enclosing cluster
// subgraph names it.
func (c *dotCollector) parentOf(id string) (string, bool) {
	sub, ok := c.container[id]
	for ok {
		// A node mentioned inside its own cluster is not its own child.
		if name := strings.TrimPrefix(sub, clusterPrefix); name != sub && name != id {
			return name, true
		}
		sub, ok = c.subgraphs[sub]
	}
	return "", false
}

func (c *dotCollector) build() (*Graph, error) {
	g := New(c.name)

	var create func(id string, depth int) (NodeID, error)
	create = func(id string, depth int) (NodeID, error) {
		if n, ok := g.Lookup(id); ok {
			return n, nil
		}
		if depth > len(c.order) {
			return NoNode, fmt.Errorf("node %q: cluster nesting loops back on itself", id)
		}
		parent := NoNode
		if pname, ok := c.parentOf(id); ok {
			if _, known := c.nodes[pname]; !known {
				return NoNode, fmt.Errorf("node %q: cluster %s%s names an undeclared node", id, clusterPrefix, pname)
			}
			var err error
			if parent, err = create(pname, depth+1); err != nil {
				return NoNode, err
			}
		}
		n, err := g.AddNode(id, parent)
		if err != nil {
			return NoNode, err
		}
		return n, applyPortAttrs(g, n, c.nodes[id])
	}

	for _, id := range c.order {
		if _, err := create(id, 0); err != nil {
			return nil, err
		}
	}

	for _, e := range c.edges {
		from, to, err := resolveEdge(g, e)
		if err != nil {
			return nil, err
		}
		if _, err := g.Connect(from, to); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// applyPortAttrs creates the ports described by the in/out attributes and
// stores the remaining attributes on the node.
func applyPortAttrs(g *Graph, n NodeID, attrs map[string]string) error {
	node := g.Node(n)
	for k, v := range attrs {
		if k != "in" && k != "out" {
			node.Attrs[k] = v
		}
	}
	if in, ok := attrs["in"]; ok && strings.TrimSpace(in) != "" {
		if _, err := g.SetInput(n, strings.TrimSpace(in)); err != nil {
			return err
		}
	}
	if out := strings.TrimSpace(attrs["out"]); out != "" {
		for _, spec := range strings.Split(out, ",") {
			name, typ := "", strings.TrimSpace(spec)
			if i := strings.Index(typ, ":"); i >= 0 {
				name, typ = strings.TrimSpace(typ[:i]), strings.TrimSpace(typ[i+1:])
			}
			if _, err := g.AddOutput(n, name, typ); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveEdge maps a DOT edge onto ports according to the relationship of
// its endpoints.
func resolveEdge(g *Graph, e rawEdge) (PortID, PortID, error) {
	src, ok := g.Lookup(e.from)
	if !ok {
		return NoPort, NoPort, fmt.Errorf("edge references unknown source node %q", e.from)
	}
	dst, ok := g.Lookup(e.to)
	if !ok {
		return NoPort, NoPort, fmt.Errorf("edge references unknown target node %q", e.to)
	}
	sn, dn := g.Node(src), g.Node(dst)

	if dn.Parent == src {
		if sn.Input == NoPort {
			return NoPort, NoPort, fmt.Errorf("edge %s -> %s: parent %q has no input port to forward", e.from, e.to, e.from)
		}
		if dn.Input == NoPort {
			return NoPort, NoPort, fmt.Errorf("edge %s -> %s: node %q has no input port", e.from, e.to, e.to)
		}
		return sn.Input, dn.Input, nil
	}

	from, err := outputPort(g, sn, e.fromPort)
	if err != nil {
		return NoPort, NoPort, err
	}
	if sn.Parent == dst {
		to, err := outputPort(g, dn, e.toPort)
		return from, to, err
	}
	if dn.Input == NoPort {
		return NoPort, NoPort, fmt.Errorf("edge %s -> %s: node %q has no input port", e.from, e.to, e.to)
	}
	return from, dn.Input, nil
}

func outputPort(g *Graph, n *Node, name string) (PortID, error) {
	if len(n.Outputs) == 0 {
		return NoPort, fmt.Errorf("node %q has no output port", n.Name)
	}
	if name == "" {
		return n.Outputs[0], nil
	}
	for _, p := range n.Outputs {
		if g.Port(p).Name == name {
			return p, nil
		}
	}
	return NoPort, fmt.Errorf("node %q has no output port %q", n.Name, name)
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// unquote strips surrounding double-quotes from a DOT identifier or value.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// portName extracts the port from gographviz's ":port" or ":port:compass".
func portName(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), ":")
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return unquote(s)
}
