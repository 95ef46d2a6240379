// Package thread generates programs for the cooperative scheduler runtime:
// one instance type per leaf node with its own mailbox, a registry of
// instances by kind, and a startup routine that wires senders to receivers
// and partitions the instances over scheduler threads.
package thread

import (
	"fmt"
	"log/slog"

	"github.com/ravi-parthasarathy/evegen/pkg/backend"
	"github.com/ravi-parthasarathy/evegen/pkg/dsl"
	"github.com/ravi-parthasarathy/evegen/pkg/graph"
	"github.com/ravi-parthasarathy/evegen/pkg/runtime/eve"
)

// Backend is the "thread" target.
type Backend struct{}

// New returns the thread backend.
func New() Backend { return Backend{} }

func (Backend) Name() string { return "thread" }

// Generate renders instances.go, scheduler.go and startup.go plus a
// types.go stub and one node_<name>.go stub per leaf node. Composite nodes
// are flattened away: only leaves get instances.
func (Backend) Generate(g *graph.Graph, opts backend.Options) ([]backend.File, error) {
	if g.HasHierarchy() {
		flat, err := g.Flatten()
		if err != nil {
			return nil, fmt.Errorf("thread target: %w", err)
		}
		g = flat
	}

	counts := make(map[graph.NodeID]int)
	total := 0
	for _, n := range g.Nodes() {
		c, err := Instances(n)
		if err != nil {
			return nil, fmt.Errorf("thread target: %w", err)
		}
		counts[n.ID] = c
		total += c
	}

	pkg := opts.Package
	if pkg == "" {
		pkg = "main"
	}
	threads := max(opts.Threads, 1)

	scheduler, err := backend.EmbedRuntime(eve.Sources, eve.SourceFiles, pkg)
	if err != nil {
		return nil, err
	}
	files := []backend.File{
		{Name: "instances.go", Content: InstancesFile(g, pkg)},
		{Name: "scheduler.go", Content: scheduler},
		{Name: "startup.go", Content: StartupFile(g, counts, pkg)},
	}
	if pkg == "main" {
		files = append(files, mainFile(threads))
	}
	if types, ok := backend.TypeStubs(g, pkg); ok {
		files = append(files, types)
	}
	for _, n := range g.Nodes() {
		files = append(files, nodeStub(g, n, pkg))
	}

	slog.Info("thread target generated",
		"graph", g.Name,
		"nodes", len(g.Nodes()),
		"instances", total,
		"threads", threads,
		"files", len(files))
	return files, nil
}

func mainFile(threads int) backend.File {
	f := dsl.NewFile("main")
	f.Header = backend.Header
	fn := dsl.NewFunc("main", "")
	fn.Body.Do(dsl.Call("Run", dsl.Int(threads)))
	f.Add(fn.Render())
	return backend.File{Name: "main.go", Content: f.Bytes()}
}

// nodeStub renders the user-owned tick function of n. Source ticks send
// through the instance's ports and report exhaustion; normal ticks handle
// one received item. The stub bodies compile and forward items to every
// output port of the input's type.
func nodeStub(g *graph.Graph, n *graph.Node, pkg string) backend.File {
	tick := backend.TickName(n.Name)
	inst := dsl.Param{Name: "i", Type: "*" + InstanceType(n)}

	var fn *dsl.Func
	if g.IsSource(n.ID) {
		fn = dsl.NewFunc(tick, "bool", inst)
		doc := fmt.Sprintf("%s produces at most one item for node %s per call and reports\nfalse once the source is exhausted.", tick, n.Name)
		if len(n.Outputs) > 0 {
			doc += fmt.Sprintf(" Send items with i.%s.Send(v).", PortField(g, n.Outputs[0]))
		}
		fn.Doc = doc
		fn.Body.Result(dsl.Raw("false"))
	} else {
		in := g.InType(n.ID)
		fn = dsl.NewFunc(tick, "", inst, dsl.Param{Name: "v", Type: in})
		fn.Doc = fmt.Sprintf("%s handles one item received by node %s.", tick, n.Name)
		for _, p := range n.Outputs {
			if g.Port(p).MsgType == in {
				fn.Body.Do(dsl.Method(dsl.Raw("i."+PortField(g, p)), "Send", dsl.Ident("v")))
			}
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
