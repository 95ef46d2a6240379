// Package reduce turns a flat dataflow graph into a small vocabulary of
// composable elements: linear Pipelines, fan-in Merges and fan-out Copies.
// Code generators consume the resulting Reduced graph instead of walking
// the node graph themselves.
package reduce

import (
	"fmt"

	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

// Element is one of *Pipeline, *Merge or *Copy.
type Element interface {
	Name() string
	isElement()
}

// Pipeline is a maximal linear run of nodes.
type Pipeline struct {
	name string

	Start graph.NodeID
	End   graph.NodeID
	// Nodes is the span from Start to End in traversal order.
	Nodes []graph.NodeID

	// Pred feeds the pipeline; nil when it starts at a source.
	Pred Element
	// Succ consumes the pipeline; nil when it ends the dataflow.
	Succ Element

	StartsAtSource bool
	// EndsAtSink is set when End has no outgoing edges.
	EndsAtSink bool
}

// Merge joins several upstream elements into the pipeline that starts at
// the fan-in node.
type Merge struct {
	name   string
	Node   graph.NodeID
	Inputs []Element
	Output Element
}

// Copy broadcasts the pipeline ending at a fan-out node to every element
// downstream of it.
type Copy struct {
	name    string
	Node    graph.NodeID
	Input   Element
	Outputs []Element
}

func (p *Pipeline) Name() string { return p.name }
func (m *Merge) Name() string    { return m.name }
func (c *Copy) Name() string     { return c.name }

func (*Pipeline) isElement() {}
func (*Merge) isElement()    {}
func (*Copy) isElement()     {}

// Kind returns "pipeline", "merge" or "copy".
func Kind(e Element) string {
	switch e.(type) {
	case *Pipeline:
		return "pipeline"
	case *Merge:
		return "merge"
	case *Copy:
		return "copy"
	default:
		panic(fmt.Sprintf("reduce: unknown element %T", e))
	}
}

// Inputs returns the elements feeding e.
func Inputs(e Element) []Element {
	switch e := e.(type) {
	case *Pipeline:
		if e.Pred == nil {
			return nil
		}
		return []Element{e.Pred}
	case *Merge:
		return e.Inputs
	case *Copy:
		if e.Input == nil {
			return nil
		}
		return []Element{e.Input}
	default:
		panic(fmt.Sprintf("reduce: unknown element %T", e))
	}
}

// Outputs returns the elements fed by e.
func Outputs(e Element) []Element {
	switch e := e.(type) {
	case *Pipeline:
		if e.Succ == nil {
			return nil
		}
		return []Element{e.Succ}
	case *Merge:
		if e.Output == nil {
			return nil
		}
		return []Element{e.Output}
	case *Copy:
		return e.Outputs
	default:
		panic(fmt.Sprintf("reduce: unknown element %T", e))
	}
}

// Reduced is the result of reducing one graph. Every slice is in discovery
// order, so the same graph always yields the same Reduced value.
type Reduced struct {
	Graph     *graph.Graph
	Pipelines []*Pipeline
	Merges    []*Merge
	Copies    []*Copy
	// Roots holds the pipeline starting at each source node.
	Roots []*Pipeline

	byName map[string]Element
}

// Lookup finds an element by name.
func (r *Reduced) Lookup(name string) (Element, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Sinks returns every pipeline that ends the dataflow.
func (r *Reduced) Sinks() []*Pipeline {
	var out []*Pipeline
	for _, p := range r.Pipelines {
		if p.EndsAtSink {
			out = append(out, p)
		}
	}
	return out
}

// Elements returns pipelines, then merges, then copies.
func (r *Reduced) Elements() []Element {
	out := make([]Element, 0, len(r.Pipelines)+len(r.Merges)+len(r.Copies))
	for _, p := range r.Pipelines {
		out = append(out, p)
	}
	for _, m := range r.Merges {
		out = append(out, m)
	}
	for _, c := range r.Copies {
		out = append(out, c)
	}
	return out
}

// NodeNames returns the names of the nodes spanned by p.
func (r *Reduced) NodeNames(p *Pipeline) []string {
	out := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = r.Graph.Node(n).Name
	}
	return out
}

// PipelineName is the deterministic key of the pipeline spanning first..last.
func PipelineName(g *graph.Graph, first, last graph.NodeID) string {
	return "pipeline_" + graph.LowerIdent(g.Node(first).Name) + "_" + graph.LowerIdent(g.Node(last).Name)
}

// MergeName is the deterministic key of the merge in front of n.
func MergeName(g *graph.Graph, n graph.NodeID) string {
	return "merge_" + graph.LowerIdent(g.Node(n).Name)
}

// CopyName is the deterministic key of the copy behind n.
func CopyName(g *graph.Graph, n graph.NodeID) string {
	return "copy_" + graph.LowerIdent(g.Node(n).Name)
}
