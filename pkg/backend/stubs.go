package backend

import (
	"go/token"
	"go/types"

	"github.com/ravi-parthasarathy/evegen/pkg/dsl"
	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

// MessageTypes returns the port message types of g in first-use order.
func MessageTypes(g *graph.Graph) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p graph.PortID) {
		if p == graph.NoPort {
			return
		}
		if t := g.Port(p).MsgType; t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, n := range g.Nodes() {
		add(n.Input)
		for _, p := range n.Outputs {
			add(p)
		}
	}
	return out
}

// TypeStubs returns a user-owned types.go declaring an empty struct for
// every message type that is a plain identifier and not predeclared. It
// returns false when there is nothing to declare.
func TypeStubs(g *graph.Graph, pkg string) (File, bool) {
	f := dsl.NewFile(pkg)
	f.Header = "Message types exchanged between nodes. Generated once; edit freely."
	n := 0
	for _, t := range MessageTypes(g) {
		if !token.IsIdentifier(t) || types.Universe.Lookup(t) != nil {
			continue
		}
		s := dsl.NewStruct(t)
		s.Doc = t + " is carried between nodes."
		f.Add(s.Render())
		n++
	}
	if n == 0 {
		return File{}, false
	}
	return File{Name: "types.go", Content: f.Bytes(), KeepExisting: true}, true
}
