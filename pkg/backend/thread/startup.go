package thread

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/ravi-parthasarathy/evegen/pkg/backend"
	"github.com/ravi-parthasarathy/evegen/pkg/dsl"
	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

func instanceVar(n *graph.Node, i int) string {
	return graph.LowerIdent(n.Name) + "_" + strconv.Itoa(i)
}

func channelVar(n *graph.Node, i int) string {
	return instanceVar(n, i) + "_ch"
}

// portTargets returns the distinct successor nodes of output port p in
// edge order.
func portTargets(g *graph.Graph, p graph.PortID) []graph.NodeID {
	var out []graph.NodeID
	for _, id := range g.PortEdges(p) {
		e := g.Edge(id)
		if e.From != p {
			continue
		}
		if n := g.Port(e.To).Node; !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// feedsAny reports whether any output port of n is connected, i.e. whether
// Start refers to n's instances after registering them.
func feedsAny(g *graph.Graph, n *graph.Node) bool {
	for _, p := range n.Outputs {
		if len(portTargets(g, p)) > 0 {
			return true
		}
	}
	return false
}

// StartupFile renders Start, which builds channels, instances, sender
// groups and the registry and deals the instances out to threads, and Run.
func StartupFile(g *graph.Graph, counts map[graph.NodeID]int, pkg string) []byte {
	f := dsl.NewFile(pkg)
	f.Header = backend.Header

	start := dsl.NewFunc("Start", "[]*Thread", dsl.Param{Name: "threads", Type: "int"})
	start.Doc = "Start wires every node instance and partitions the instances over\nthreads schedulers. The partition is fixed once Start returns."
	body := start.Body
	registry := body.Bind("registry", dsl.Call("newRegistry"))

	for _, n := range g.Nodes() {
		if g.IsSource(n.ID) {
			continue
		}
		for i := range counts[n.ID] {
			body.Bind(channelVar(n, i), dsl.Call("NewReceiver["+g.InType(n.ID)+"]"))
		}
	}

	for _, n := range g.Nodes() {
		for i := range counts[n.ID] {
			fields := []dsl.Field{{Key: "ID", Value: dsl.Int(i)}}
			if !g.IsSource(n.ID) {
				fields = append(fields, dsl.Field{Key: "In", Value: dsl.Ident(channelVar(n, i))})
			}
			for _, p := range n.Outputs {
				fields = append(fields, dsl.Field{
					Key:   PortField(g, p),
					Value: dsl.Call("NewOutPort[" + g.Port(p).MsgType + "]"),
				})
			}
			register := dsl.Call("Register", registry, dsl.AddrOf(dsl.Composite(InstanceType(n), fields...)))
			if feedsAny(g, n) {
				body.Bind(instanceVar(n, i), register)
			} else {
				body.Do(register)
			}
		}
	}

	for _, n := range g.Nodes() {
		for i := range counts[n.ID] {
			for _, p := range n.Outputs {
				for _, target := range portTargets(g, p) {
					tn := g.Node(target)
					port := dsl.Raw(instanceVar(n, i) + "." + PortField(g, p))
					group := body.Bind(
						fmt.Sprintf("%s_%s_%s", instanceVar(n, i), graph.LowerIdent(g.Port(p).Name), graph.LowerIdent(tn.Name)),
						dsl.Method(port, "Group"))
					for j := range counts[target] {
						body.Do(dsl.Method(group, "Add", dsl.Method(dsl.Ident(channelVar(tn, j)), "Sender")))
					}
				}
			}
		}
	}
	body.Result(dsl.Call("Partition", dsl.Ident("threads"), registry))
	f.Add(start.Render())

	run := dsl.NewFunc("Run", "", dsl.Param{Name: "threads", Type: "int"})
	run.Doc = "Run starts the graph on threads schedulers and returns once every\nsource is exhausted and every instance has drained its input."
	run.Body.Do(dsl.Call("RunAll", dsl.Call("Start", dsl.Ident("threads"))))
	f.Add(run.Render())
	return f.Bytes()
}
