package reduce

import (
	"encoding/json"
	"fmt"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
)

// ─── text ─────────────────────────────────────────────────────────────────────

// Text renders a human-readable summary of r.
func (r *Reduced) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reduced: %s  (%d pipelines, %d merges, %d copies)\n",
		r.Graph.Name, len(r.Pipelines), len(r.Merges), len(r.Copies))

	width := 4
	for _, e := range r.Elements() {
		width = max(width, len(e.Name()))
	}

	fmt.Fprintf(&sb, "\nPipelines:\n")
	for _, p := range r.Pipelines {
		var flags []string
		if p.StartsAtSource {
			flags = append(flags, "source")
		}
		if p.EndsAtSink {
			flags = append(flags, "sink")
		}
		line := fmt.Sprintf("  %-*s  %s", width, p.name, strings.Join(r.NodeNames(p), " → "))
		if len(flags) > 0 {
			line += "  [" + strings.Join(flags, ",") + "]"
		}
		if p.Succ != nil {
			line += "  → " + p.Succ.Name()
		}
		sb.WriteString(line + "\n")
	}

	if len(r.Merges) > 0 {
		fmt.Fprintf(&sb, "\nMerges:\n")
		for _, m := range r.Merges {
			fmt.Fprintf(&sb, "  %-*s  [%s] → %s\n", width, m.name, names(m.Inputs), nameOf(m.Output))
		}
	}
	if len(r.Copies) > 0 {
		fmt.Fprintf(&sb, "\nCopies:\n")
		for _, c := range r.Copies {
			fmt.Fprintf(&sb, "  %-*s  %s → [%s]\n", width, c.name, nameOf(c.Input), names(c.Outputs))
		}
	}
	return sb.String()
}

func names(es []Element) string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Name()
	}
	return strings.Join(out, ", ")
}

func nameOf(e Element) string {
	if e == nil {
		return "-"
	}
	return e.Name()
}

// ─── dot ──────────────────────────────────────────────────────────────────────

// DOT renders r as a Graphviz digraph: pipelines are boxes labelled with
// their node span, merges are inverted triangles, copies are triangles.
func (r *Reduced) DOT() (string, error) {
	name := r.Graph.Name
	if name == "" {
		name = "reduced"
	}
	out := gographviz.NewGraph()
	if err := out.SetName(dotQuote(name)); err != nil {
		return "", err
	}
	if err := out.SetDir(true); err != nil {
		return "", err
	}

	for _, e := range r.Elements() {
		attrs := map[string]string{}
		switch e := e.(type) {
		case *Pipeline:
			attrs["shape"] = "box"
			attrs["label"] = dotQuote(e.name + `\n` + strings.Join(r.NodeNames(e), " → "))
		case *Merge:
			attrs["shape"] = "invtriangle"
			attrs["label"] = dotQuote(e.name)
		case *Copy:
			attrs["shape"] = "triangle"
			attrs["label"] = dotQuote(e.name)
		default:
			panic(fmt.Sprintf("reduce: unknown element %T", e))
		}
		if err := out.AddNode(out.Name, e.Name(), attrs); err != nil {
			return "", fmt.Errorf("dot node %s: %w", e.Name(), err)
		}
	}
	for _, e := range r.Elements() {
		for _, succ := range Outputs(e) {
			if err := out.AddEdge(e.Name(), succ.Name(), true, nil); err != nil {
				return "", fmt.Errorf("dot edge %s -> %s: %w", e.Name(), succ.Name(), err)
			}
		}
	}
	return out.String(), nil
}

// dotQuote quotes s as a DOT string. Backslash sequences such as \n are
// kept since DOT labels use them for line breaks.
func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// ─── json ─────────────────────────────────────────────────────────────────────

type jsonElement struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Nodes   []string `json:"nodes,omitempty"`
	Inputs  []string `json:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
	Source  bool     `json:"source,omitempty"`
	Sink    bool     `json:"sink,omitempty"`
}

type jsonReduced struct {
	Graph    string        `json:"graph"`
	Roots    []string      `json:"roots"`
	Elements []jsonElement `json:"elements"`
}

// JSON renders r as indented JSON.
func (r *Reduced) JSON() ([]byte, error) {
	doc := jsonReduced{Graph: r.Graph.Name, Roots: []string{}}
	for _, p := range r.Roots {
		doc.Roots = append(doc.Roots, p.name)
	}
	for _, e := range r.Elements() {
		je := jsonElement{Name: e.Name(), Kind: Kind(e)}
		for _, in := range Inputs(e) {
			je.Inputs = append(je.Inputs, in.Name())
		}
		for _, out := range Outputs(e) {
			je.Outputs = append(je.Outputs, out.Name())
		}
		if p, ok := e.(*Pipeline); ok {
			je.Nodes = r.NodeNames(p)
			je.Source = p.StartsAtSource
			je.Sink = p.EndsAtSink
		}
		doc.Elements = append(doc.Elements, je)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal reduced graph: %w", err)
	}
	return append(data, '\n'), nil
}
