// Package stream generates combinator-style programs: one constructor per
// pipeline over lazy streams, wired together by a Build function that joins
// every sink.
package stream

import (
	"fmt"
	"log/slog"

	"github.com/ravi-parthasarathy/evegen/pkg/backend"
	"github.com/ravi-parthasarathy/evegen/pkg/dsl"
	"github.com/ravi-parthasarathy/evegen/pkg/graph"
	"github.com/ravi-parthasarathy/evegen/pkg/reduce"
	"github.com/ravi-parthasarathy/evegen/pkg/runtime/streams"
)

// Backend is the "stream" target.
type Backend struct{}

// New returns the stream backend.
func New() Backend { return Backend{} }

func (Backend) Name() string { return "stream" }

// Generate reduces g and renders pipelines.go, runtime.go, a types.go stub
// and one node_<name>.go stub per node.
func (Backend) Generate(g *graph.Graph, opts backend.Options) ([]backend.File, error) {
	if g.HasHierarchy() {
		if !opts.Flatten {
			return nil, fmt.Errorf("stream target: %w", reduce.ErrNotSupported)
		}
		flat, err := g.Flatten()
		if err != nil {
			return nil, fmt.Errorf("stream target: %w", err)
		}
		g = flat
	}
	if err := checkOutputTypes(g); err != nil {
		return nil, err
	}
	r, err := reduce.Reduce(g)
	if err != nil {
		return nil, fmt.Errorf("stream target: %w", err)
	}

	pkg := opts.Package
	if pkg == "" {
		pkg = "main"
	}

	runtime, err := backend.EmbedRuntime(streams.Sources, streams.SourceFiles, pkg)
	if err != nil {
		return nil, err
	}
	files := []backend.File{
		{Name: "pipelines.go", Content: Pipelines(r, pkg)},
		{Name: "runtime.go", Content: runtime},
	}
	if pkg == "main" {
		files = append(files, mainFile())
	}
	if types, ok := backend.TypeStubs(g, pkg); ok {
		files = append(files, types)
	}
	for _, n := range g.Nodes() {
		files = append(files, nodeStub(g, n, pkg))
	}

	slog.Info("stream target generated",
		"graph", g.Name,
		"pipelines", len(r.Pipelines),
		"merges", len(r.Merges),
		"copies", len(r.Copies),
		"files", len(files))
	return files, nil
}

// Pipelines renders every pipeline constructor followed by Build and Run.
func Pipelines(r *reduce.Reduced, pkg string) []byte {
	f := dsl.NewFile(pkg)
	f.Header = backend.Header
	for _, p := range r.Pipelines {
		f.Add(PipelineFunc(r, p).Render())
	}

	build := dsl.NewFunc("Build", "Task")
	build.Doc = "Build wires every pipeline together and returns a task that runs\nall sinks."
	em := NewEmitter(build.Body)
	for _, root := range r.Roots {
		em.EmitRoot(root)
	}
	var sinks []dsl.Expr
	for _, p := range r.Sinks() {
		sinks = append(sinks, dsl.Ident(p.Name()))
	}
	build.Body.Result(dsl.Call("Join", sinks...))
	f.Add(build.Render())

	run := dsl.NewFunc("Run", "")
	run.Doc = "Run executes the dataflow until every source is exhausted."
	run.Body.Do(dsl.Method(dsl.Call("Build"), "Run"))
	f.Add(run.Render())
	return f.Bytes()
}

// checkOutputTypes rejects nodes whose connected output ports carry
// different types: a stream node emits one value per item.
func checkOutputTypes(g *graph.Graph) error {
	for _, n := range g.Nodes() {
		want := ""
		for _, p := range n.Outputs {
			port := g.Port(p)
			connected := false
			for _, id := range g.PortEdges(p) {
				if g.Edge(id).From == p {
					connected = true
					break
				}
			}
			if !connected {
				continue
			}
			if want == "" {
				want = port.MsgType
			} else if port.MsgType != want {
				return fmt.Errorf("stream target: node %q emits %s on one port and %s on port %q; use the thread target for nodes with differently typed outputs",
					n.Name, want, port.MsgType, port.Name)
			}
		}
	}
	return nil
}

func mainFile() backend.File {
	f := dsl.NewFile("main")
	f.Header = backend.Header
	fn := dsl.NewFunc("main", "")
	fn.Body.Do(dsl.Call("Run"))
	f.Add(fn.Render())
	return backend.File{Name: "main.go", Content: f.Bytes()}
}

// nodeStub renders the user-owned tick function of n with a body that
// compiles: sources are immediately exhausted, transforms pass their input
// through when the types allow it.
func nodeStub(g *graph.Graph, n *graph.Node, pkg string) backend.File {
	tick := backend.TickName(n.Name)
	in := g.InType(n.ID)
	out := ""
	if len(n.Outputs) > 0 {
		out = outType(g, n.ID)
	}

	var fn *dsl.Func
	switch {
	case g.IsSource(n.ID):
		if out == "" {
			out = "struct{}"
		}
		fn = dsl.NewFunc(tick, "("+out+", bool)")
		fn.Doc = fmt.Sprintf("%s produces the items of node %s. It returns false once the\nsource is exhausted.", tick, n.Name)
		fn.Body.Result(dsl.Raw("*new(" + out + "), false"))
	case out == "":
		fn = dsl.NewFunc(tick, "", dsl.Param{Name: "v", Type: in})
		fn.Doc = fmt.Sprintf("%s consumes every item reaching node %s.", tick, n.Name)
	default:
		fn = dsl.NewFunc(tick, out, dsl.Param{Name: "v", Type: in})
		fn.Doc = fmt.Sprintf("%s transforms one item for node %s.", tick, n.Name)
		if in == out {
			fn.Body.Result(dsl.Ident("v"))
		} else {
			fn.Body.Result(dsl.Raw("*new(" + out + ")"))
		}
	}

	f := dsl.NewFile(pkg)
	f.Add(fn.Render())
	return backend.File{
		Name:         "node_" + graph.LowerIdent(n.Name) + ".go",
		Content:      f.Bytes(),
		KeepExisting: true,
	}
}
