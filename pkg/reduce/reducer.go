package reduce

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

// Reduce walks g depth-first from every source node and classifies each
// node it meets:
//
//   - a node without outgoing edges closes the current Pipeline;
//   - a single successor with one incoming edge continues the Pipeline;
//   - a single successor that is a fan-in point closes the Pipeline and
//     feeds it into the Merge of that successor;
//   - several successors close the Pipeline into the Copy of the node.
//
// Elements are keyed by the nodes they cover, so paths that reconverge on a
// merge or copy reuse it. g must consist of leaf nodes only. Two elements
// whose generated names coincide are reported as a *NameError.
func Reduce(g *graph.Graph) (*Reduced, error) {
	for _, n := range g.Nodes() {
		if !g.IsLeaf(n.ID) {
			return nil, fmt.Errorf("node %q: %w", n.Name, ErrNotSupported)
		}
	}

	b := newBuilder(g)
	for _, src := range g.Sources() {
		if err := b.walk(src, src, nil, nil); err != nil {
			return nil, err
		}
	}
	// A node no source reaches sits in a strongly connected part of the
	// graph with no way in.
	for _, n := range g.Nodes() {
		if !b.seen[n.ID] {
			return nil, b.cycleBehind(n.ID)
		}
	}

	if err := b.index(); err != nil {
		return nil, err
	}

	slog.Debug("graph reduced",
		"graph", g.Name,
		"pipelines", len(b.r.Pipelines),
		"merges", len(b.r.Merges),
		"copies", len(b.r.Copies))
	return b.r, nil
}

// builder owns all state of one reduction.
type builder struct {
	g *graph.Graph
	r *Reduced

	pipelines map[[2]graph.NodeID]*Pipeline
	merges    map[graph.NodeID]*Merge
	copies    map[graph.NodeID]*Copy
	// expanded holds merges and copies whose successors were walked.
	expanded map[Element]bool

	seen   map[graph.NodeID]bool
	active map[graph.NodeID]bool
	path   []graph.NodeID
}

func newBuilder(g *graph.Graph) *builder {
	return &builder{
		g:         g,
		r:         &Reduced{Graph: g, byName: make(map[string]Element)},
		pipelines: make(map[[2]graph.NodeID]*Pipeline),
		merges:    make(map[graph.NodeID]*Merge),
		copies:    make(map[graph.NodeID]*Copy),
		expanded:  make(map[Element]bool),
		seen:      make(map[graph.NodeID]bool),
		active:    make(map[graph.NodeID]bool),
	}
}

func (b *builder) walk(start, cur graph.NodeID, pred Element, span []graph.NodeID) error {
	if b.active[cur] {
		return b.cycle(cur)
	}
	b.seen[cur] = true
	b.active[cur] = true
	b.path = append(b.path, cur)
	defer func() {
		delete(b.active, cur)
		b.path = b.path[:len(b.path)-1]
	}()

	span = append(span, cur)
	succ := b.g.Successors(cur)

	switch {
	case len(succ) == 0:
		b.pipeline(start, cur, span, pred)
		return nil

	case len(succ) == 1 && !b.g.IsFanIn(succ[0]):
		return b.walk(start, succ[0], pred, span)

	case len(succ) == 1:
		p := b.pipeline(start, cur, span, pred)
		return b.enterMerge(succ[0], p)

	default:
		p := b.pipeline(start, cur, span, pred)
		c := b.copyOf(cur)
		c.Input = p
		p.Succ = c
		if b.expanded[c] {
			return nil
		}
		b.expanded[c] = true
		for _, s := range succ {
			var err error
			if b.g.IsFanIn(s) {
				err = b.enterMerge(s, c)
			} else {
				err = b.walk(s, s, c, nil)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// enterMerge registers in as an input of the merge in front of n and walks
// on from n the first time that merge is seen.
func (b *builder) enterMerge(n graph.NodeID, in Element) error {
	if b.active[n] {
		return b.cycle(n)
	}
	m := b.mergeOf(n)
	if !slices.Contains(m.Inputs, in) {
		m.Inputs = append(m.Inputs, in)
	}
	switch in := in.(type) {
	case *Pipeline:
		in.Succ = m
	case *Copy:
		if !slices.Contains(in.Outputs, Element(m)) {
			in.Outputs = append(in.Outputs, m)
		}
	default:
		panic(fmt.Sprintf("reduce: %T cannot feed a merge", in))
	}
	if b.expanded[m] {
		return nil
	}
	b.expanded[m] = true
	return b.walk(n, n, m, nil)
}

// pipeline looks up or creates the pipeline spanning start..end and hangs
// it off pred.
func (b *builder) pipeline(start, end graph.NodeID, span []graph.NodeID, pred Element) *Pipeline {
	key := [2]graph.NodeID{start, end}
	if p, ok := b.pipelines[key]; ok {
		return p
	}
	p := &Pipeline{
		name:           PipelineName(b.g, start, end),
		Start:          start,
		End:            end,
		Nodes:          slices.Clone(span),
		Pred:           pred,
		StartsAtSource: b.g.IsSource(start),
		EndsAtSink:     len(b.g.Successors(end)) == 0,
	}
	b.pipelines[key] = p
	b.r.Pipelines = append(b.r.Pipelines, p)
	if p.StartsAtSource {
		b.r.Roots = append(b.r.Roots, p)
	}

	switch pred := pred.(type) {
	case nil:
	case *Merge:
		pred.Output = p
	case *Copy:
		if !slices.Contains(pred.Outputs, Element(p)) {
			pred.Outputs = append(pred.Outputs, p)
		}
	default:
		panic(fmt.Sprintf("reduce: %T cannot precede a pipeline", pred))
	}
	return p
}

func (b *builder) mergeOf(n graph.NodeID) *Merge {
	if m, ok := b.merges[n]; ok {
		return m
	}
	m := &Merge{name: MergeName(b.g, n), Node: n}
	b.merges[n] = m
	b.r.Merges = append(b.r.Merges, m)
	return m
}

func (b *builder) copyOf(n graph.NodeID) *Copy {
	if c, ok := b.copies[n]; ok {
		return c
	}
	c := &Copy{name: CopyName(b.g, n), Node: n}
	b.copies[n] = c
	b.r.Copies = append(b.r.Copies, c)
	return c
}

// index fills the name lookup. Generated code binds every element to its
// name, so two distinct elements may not share one.
func (b *builder) index() error {
	for _, e := range b.r.Elements() {
		if other, ok := b.r.byName[e.Name()]; ok {
			return &NameError{Name: e.Name(), Nodes: [2][]string{b.nodesOf(other), b.nodesOf(e)}}
		}
		b.r.byName[e.Name()] = e
	}
	return nil
}

func (b *builder) nodesOf(e Element) []string {
	switch e := e.(type) {
	case *Pipeline:
		return b.r.NodeNames(e)
	case *Merge:
		return []string{b.g.Node(e.Node).Name}
	case *Copy:
		return []string{b.g.Node(e.Node).Name}
	default:
		panic(fmt.Sprintf("reduce: unknown element %T", e))
	}
}

// cycle reports the part of the current path that loops back to n.
func (b *builder) cycle(n graph.NodeID) error {
	i := slices.Index(b.path, n)
	var names []string
	for _, id := range b.path[i:] {
		names = append(names, b.g.Node(id).Name)
	}
	names = append(names, b.g.Node(n).Name)
	return &CycleError{Path: names}
}

// cycleBehind follows first predecessors back from an unreached node until
// a node repeats. Every unreached node has a predecessor that is also
// unreached, so this always ends on a cycle.
func (b *builder) cycleBehind(n graph.NodeID) error {
	index := make(map[graph.NodeID]int)
	var back []graph.NodeID
	for {
		if i, ok := index[n]; ok {
			var names []string
			for j := len(back) - 1; j >= i; j-- {
				names = append(names, b.g.Node(back[j]).Name)
			}
			names = append(names, names[0])
			return &CycleError{Path: names}
		}
		index[n] = len(back)
		back = append(back, n)
		n = b.g.Predecessors(n)[0]
	}
}
