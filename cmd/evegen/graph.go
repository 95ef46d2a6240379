package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/evegen/pkg/graph"
	"github.com/ravi-parthasarathy/evegen/pkg/reduce"
)

func graphCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph <graph.dot|graph.hcl>",
		Short: "Print a summary of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.Load(args[0])
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			w := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "dot":
				fmt.Fprint(w, renderDOT(g))
			case "text", "":
				fmt.Fprint(w, renderText(g))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

func reduceCmd() *cobra.Command {
	var (
		format  string
		flatten bool
		out     string
	)

	cmd := &cobra.Command{
		Use:   "reduce <graph.dot|graph.hcl>",
		Short: "Print the pipelines, merges and copies a graph reduces to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.Load(args[0])
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			if flatten && g.HasHierarchy() {
				if g, err = g.Flatten(); err != nil {
					return fmt.Errorf("flatten: %w", err)
				}
			}
			r, err := reduce.Reduce(g)
			if err != nil {
				return err
			}

			var data []byte
			switch strings.ToLower(format) {
			case "json":
				if data, err = r.JSON(); err != nil {
					return err
				}
			case "dot":
				s, err := r.DOT()
				if err != nil {
					return err
				}
				data = []byte(s)
			case "text", "":
				data = []byte(r.Text())
			default:
				return fmt.Errorf("unknown format %q: use text, dot or json", format)
			}

			if out != "" {
				return writeOutput(out, data)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, dot or json")
	cmd.Flags().BoolVar(&flatten, "flatten", false, "flatten composite nodes before reducing")
	cmd.Flags().StringVar(&out, "out", "", "write the result to this file instead of stdout")
	return cmd
}

// writeOutput writes data to path. An empty path is a no-op.
func writeOutput(path string, data []byte) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// treeOrder returns the nodes parents first, each followed by its children
// in declaration order, with their nesting depth.
func treeOrder(g *graph.Graph) ([]*graph.Node, []int) {
	var (
		order  []*graph.Node
		depths []int
	)
	var visit func(n *graph.Node, depth int)
	visit = func(n *graph.Node, depth int) {
		order = append(order, n)
		depths = append(depths, depth)
		for _, c := range n.Children {
			visit(g.Node(c), depth+1)
		}
	}
	for _, n := range g.TopLevel() {
		visit(n, 0)
	}
	return order, depths
}

// truncate shortens s to maxLen chars, appending "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// portAttrs renders the in and out attributes of n the way the DOT loader
// reads them.
func portAttrs(g *graph.Graph, n *graph.Node) (in, out string) {
	if n.Input != graph.NoPort {
		in = g.Port(n.Input).MsgType
	}
	specs := make([]string, 0, len(n.Outputs))
	for _, p := range n.Outputs {
		port := g.Port(p)
		specs = append(specs, port.Name+":"+port.MsgType)
	}
	return in, strings.Join(specs, ",")
}

func sortedAttrs(n *graph.Node) []string {
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderText produces the human-readable text summary.
func renderText(g *graph.Graph) string {
	var sb strings.Builder

	order, depths := treeOrder(g)
	fmt.Fprintf(&sb, "Graph: %s  (%d nodes, %d edges)\n", g.Name, len(g.Nodes()), len(g.Edges()))

	maxNameLen := 4
	for i, n := range order {
		if l := 2*depths[i] + len(n.Name); l > maxNameLen {
			maxNameLen = l
		}
	}

	fmt.Fprintf(&sb, "\nNodes:\n")
	for i, n := range order {
		in, out := portAttrs(g, n)
		parts := []string{}
		if in != "" {
			parts = append(parts, "in="+in)
		}
		if out != "" {
			parts = append(parts, "out="+out)
		}
		for _, k := range sortedAttrs(n) {
			parts = append(parts, k+"="+truncate(n.Attrs[k], 60))
		}
		name := strings.Repeat("  ", depths[i]) + n.Name
		fmt.Fprintf(&sb, "  %-*s  %s\n", maxNameLen, name, strings.Join(parts, " "))
	}

	fmt.Fprintf(&sb, "\nEdges:\n")
	maxFromLen := 4
	for _, e := range g.Edges() {
		if l := len(g.PortString(e.From)); l > maxFromLen {
			maxFromLen = l
		}
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&sb, "  %-*s  →  %s\n", maxFromLen, g.PortString(e.From), g.PortString(e.To))
	}

	return sb.String()
}

// dotQuote returns the value as a DOT-safe string, quoting if necessary.
func dotQuote(s string) string {
	needsQuote := s == "" ||
		strings.ContainsAny(s, " \t\n\\\"{}[]<>=;,:.*()-")
	if needsQuote {
		escaped := strings.ReplaceAll(s, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	}
	return s
}

// renderDOT produces a canonical DOT digraph that ParseDOT reads back into
// the same graph: children sit in a cluster named after their parent and
// every edge names its output port.
func renderDOT(g *graph.Graph) string {
	var sb strings.Builder

	name := g.Name
	if name == "" {
		name = "graph"
	}
	fmt.Fprintf(&sb, "digraph %s {\n", dotQuote(name))

	var node func(n *graph.Node, indent string)
	node = func(n *graph.Node, indent string) {
		var parts []string
		in, out := portAttrs(g, n)
		if in != "" {
			parts = append(parts, "in="+dotQuote(in))
		}
		if out != "" {
			parts = append(parts, "out="+dotQuote(out))
		}
		for _, k := range sortedAttrs(n) {
			parts = append(parts, k+"="+dotQuote(n.Attrs[k]))
		}
		if len(parts) == 0 {
			fmt.Fprintf(&sb, "%s%s\n", indent, dotQuote(n.Name))
		} else {
			fmt.Fprintf(&sb, "%s%s [%s]\n", indent, dotQuote(n.Name), strings.Join(parts, " "))
		}
		if len(n.Children) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%ssubgraph %s {\n", indent, dotQuote("cluster_"+n.Name))
		for _, c := range n.Children {
			node(g.Node(c), indent+"    ")
		}
		fmt.Fprintf(&sb, "%s}\n", indent)
	}
	for _, n := range g.TopLevel() {
		node(n, "    ")
	}

	for _, e := range g.Edges() {
		from, to := g.Port(e.From), g.Port(e.To)
		src, dst := g.Node(from.Node), g.Node(to.Node)
		switch {
		case from.Dir == graph.In:
			// Parent input forwarded to a child.
			fmt.Fprintf(&sb, "    %s -> %s\n", dotQuote(src.Name), dotQuote(dst.Name))
		case to.Dir == graph.Out:
			// Child output forwarded to a parent output.
			fmt.Fprintf(&sb, "    %s:%s -> %s:%s\n",
				dotQuote(src.Name), dotQuote(from.Name), dotQuote(dst.Name), dotQuote(to.Name))
		default:
			fmt.Fprintf(&sb, "    %s:%s -> %s\n", dotQuote(src.Name), dotQuote(from.Name), dotQuote(dst.Name))
		}
	}

	fmt.Fprintf(&sb, "}\n")
	return sb.String()
}
