package stream

import (
	"strings"

	"github.com/ravi-parthasarathy/evegen/pkg/backend"
	"github.com/ravi-parthasarathy/evegen/pkg/dsl"
	"github.com/ravi-parthasarathy/evegen/pkg/graph"
	"github.com/ravi-parthasarathy/evegen/pkg/reduce"
)

// FuncName is the constructor generated for p.
func FuncName(p *reduce.Pipeline) string {
	name := p.Name()
	return "new" + strings.ToUpper(name[:1]) + name[1:]
}

// ResultType is Task for pipelines that end the dataflow and a stream of
// the last node's output type otherwise.
func ResultType(g *graph.Graph, p *reduce.Pipeline) string {
	if p.EndsAtSink {
		return "Task"
	}
	return "Stream[" + outType(g, p.End) + "]"
}

// PipelineFunc renders the constructor of one pipeline. A pipeline that
// starts at a source takes no argument and begins with Source; any other
// pipeline maps over its input stream. Every node of the span contributes
// exactly one step.
func PipelineFunc(r *reduce.Reduced, p *reduce.Pipeline) *dsl.Func {
	g := r.Graph
	var params []dsl.Param
	if !p.StartsAtSource {
		params = append(params, dsl.Param{Name: "in", Type: "Stream[" + g.InType(p.Start) + "]"})
	}
	fn := dsl.NewFunc(FuncName(p), ResultType(g, p), params...)
	fn.Doc = FuncName(p) + " runs " + strings.Join(r.NodeNames(p), " → ") + "."
	body := fn.Body

	steps := p.Nodes
	var cur dsl.Expr
	if p.StartsAtSource {
		first := g.Node(steps[0])
		cur = body.Bind(stepName(first), dsl.Call("Source", dsl.Ident(backend.TickName(first.Name))))
		steps = steps[1:]
	} else {
		cur = dsl.Ident("in")
	}

	for i, id := range steps {
		n := g.Node(id)
		tick := dsl.Ident(backend.TickName(n.Name))
		if i == len(steps)-1 && g.IsSink(id) {
			body.Result(dsl.Call("ForEach", cur, tick))
			break
		}
		cur = body.Bind(stepName(n), dsl.Call("Map", cur, tick))
	}
	if !body.HasResult() {
		if p.EndsAtSink {
			body.Result(dsl.Call("Drain", cur))
		} else {
			body.Result(cur)
		}
	}
	return fn
}

func stepName(n *graph.Node) string {
	return graph.LowerIdent(n.Name) + "Out"
}

// outType is the element type a node emits. Nodes without output ports
// emit struct{} so a lone source can still be drained.
func outType(g *graph.Graph, n graph.NodeID) string {
	if t := g.OutType(n); t != "" {
		return t
	}
	return "struct{}"
}
