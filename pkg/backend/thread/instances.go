package thread

import (
	"fmt"
	"strconv"

	"github.com/ravi-parthasarathy/evegen/pkg/backend"
	"github.com/ravi-parthasarathy/evegen/pkg/dsl"
	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

// InstanceType is the generated struct name for node n.
func InstanceType(n *graph.Node) string { return graph.Ident(n.Name) + "Instance" }

// KindConst is the generated kind constant for node n.
func KindConst(n *graph.Node) string { return "Kind" + graph.Ident(n.Name) }

// PortField is the struct field holding output port p.
func PortField(g *graph.Graph, p graph.PortID) string {
	name := graph.Ident(g.Port(p).Name)
	if name == "ID" || name == "In" {
		name += "Out"
	}
	return name
}

// Instances returns the instance count of n from its "instances"
// attribute, 1 when absent.
func Instances(n *graph.Node) (int, error) {
	raw, ok := n.Attrs["instances"]
	if !ok {
		return 1, nil
	}
	c, err := strconv.Atoi(raw)
	if err != nil || c < 1 {
		return 0, fmt.Errorf("node %q: instances must be a positive integer, got %q", n.Name, raw)
	}
	return c, nil
}

// InstancesFile renders the kind constants, one instance type per node
// with its Instance methods, and newRegistry.
func InstancesFile(g *graph.Graph, pkg string) []byte {
	f := dsl.NewFile(pkg)
	f.Header = backend.Header

	var consts []string
	for _, n := range g.Nodes() {
		consts = append(consts, fmt.Sprintf("\t%s = %q\n", KindConst(n), n.Name))
	}
	f.Add("// Instance kinds, one per node.\nconst (\n")
	for _, c := range consts {
		f.Add(c)
	}
	f.Add(")\n\n")

	for _, n := range g.Nodes() {
		f.Add(instanceDecl(g, n))
	}

	reg := dsl.NewFunc("newRegistry", "*Registry")
	reg.Doc = "newRegistry returns a registry with one bucket per node kind."
	var kinds []dsl.Expr
	for _, n := range g.Nodes() {
		kinds = append(kinds, dsl.Ident(KindConst(n)))
	}
	reg.Body.Result(dsl.Call("NewRegistry", kinds...))
	f.Add(reg.Render())
	return f.Bytes()
}

func instanceDecl(g *graph.Graph, n *graph.Node) string {
	typ := InstanceType(n)
	source := g.IsSource(n.ID)

	s := dsl.NewStruct(typ)
	s.Doc = fmt.Sprintf("%s is one instance of node %s.", typ, n.Name)
	s.Add("ID", "int", "")
	if !source {
		s.Add("In", "*Receiver["+g.InType(n.ID)+"]", "")
	}
	for _, p := range n.Outputs {
		s.Add(PortField(g, p), "*OutPort["+g.Port(p).MsgType+"]", "")
	}
	out := s.Render()

	recv := &dsl.Param{Name: "i", Type: "*" + typ}
	method := func(name, result string, params ...dsl.Param) *dsl.Func {
		fn := dsl.NewFunc(name, result, params...)
		fn.Receiver = recv
		fn.Body.Declare("i")
		return fn
	}

	id := method("InstanceID", "int")
	id.Body.Result(dsl.Raw("i.ID"))
	out += id.Render()

	kind := method("Kind", "string")
	kind.Body.Result(dsl.Ident(KindConst(n)))
	out += kind.Render()

	tick := backend.TickName(n.Name)
	if source {
		next := method("Next", "bool")
		next.Body.Result(dsl.Call(tick, dsl.Ident("i")))
		out += next.Render()
	} else {
		poll := method("Poll", "PollResult")
		handler := dsl.Raw(fmt.Sprintf("func(v %s) { %s(i, v) }", g.InType(n.ID), tick))
		poll.Body.Result(dsl.Call("Poll", dsl.Raw("i.In"), handler))
		out += poll.Render()
	}

	release := method("Release", "")
	if !source {
		release.Body.Do(dsl.Method(dsl.Raw("i.In"), "Close"))
	}
	for _, p := range n.Outputs {
		release.Body.Do(dsl.Method(dsl.Raw("i."+PortField(g, p)), "Close"))
	}
	out += release.Render()
	return out
}
