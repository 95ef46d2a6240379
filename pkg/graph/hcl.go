package graph

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// hclRoot is the schema of a graph file:
//
//	name = "demo"
//	node "cam" {
//	  output "frames" { type = "Frame" }
//	  rate = 30
//	}
//	node "pre" {
//	  input { type = "Frame" }
//	  output "out" { type = "Frame" }
//	  node "blur" { ... }
//	  edge {
//	    from = "pre"
//	    to   = "blur"
//	  }
//	}
//	edge {
//	  from = "cam.frames"
//	  to   = "pre"
//	}
type hclRoot struct {
	Name  *string    `hcl:"name,optional"`
	Nodes []*hclNode `hcl:"node,block"`
	Edges []*hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	Name     string       `hcl:"name,label"`
	Input    *hclInput    `hcl:"input,block"`
	Outputs  []*hclOutput `hcl:"output,block"`
	Children []*hclNode   `hcl:"node,block"`
	Edges    []*hclEdge   `hcl:"edge,block"`
	Remain   hcl.Body     `hcl:",remain"`
}

type hclInput struct {
	Type string `hcl:"type"`
}

type hclOutput struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
}

type hclEdge struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// ParseHCL parses an HCL graph description. filename is used in
// diagnostics only. Attributes of a node block other than its ports,
// children and edges are evaluated without variables and stored in
// Node.Attrs as strings.
func ParseHCL(src []byte, filename string) (*Graph, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	name := strings.TrimSuffix(filename, ".hcl")
	if root.Name != nil {
		name = *root.Name
	}
	g := New(name)
	edges := append([]*hclEdge(nil), root.Edges...)

	var add func(n *hclNode, parent NodeID) error
	add = func(n *hclNode, parent NodeID) error {
		id, err := g.AddNode(n.Name, parent)
		if err != nil {
			return err
		}
		if err := decodeAttrs(g.Node(id), n.Remain); err != nil {
			return fmt.Errorf("node %q: %w", n.Name, err)
		}
		if n.Input != nil {
			if _, err := g.SetInput(id, n.Input.Type); err != nil {
				return err
			}
		}
		for _, o := range n.Outputs {
			if _, err := g.AddOutput(id, o.Name, o.Type); err != nil {
				return err
			}
		}
		edges = append(edges, n.Edges...)
		for _, c := range n.Children {
			if err := add(c, id); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range root.Nodes {
		if err := add(n, NoNode); err != nil {
			return nil, err
		}
	}

	for _, e := range edges {
		from, fromPort := splitEndpoint(e.From)
		to, toPort := splitEndpoint(e.To)
		src, dst, err := resolveEdge(g, rawEdge{from: from, fromPort: fromPort, to: to, toPort: toPort})
		if err != nil {
			return nil, err
		}
		if _, err := g.Connect(src, dst); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// decodeAttrs converts the leftover attributes of a node block to strings.
func decodeAttrs(n *Node, body hcl.Body) error {
	if body == nil {
		return nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return diags
		}
		if val.IsNull() || !val.IsKnown() {
			continue
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		n.Attrs[name] = str.AsString()
	}
	return nil
}

// splitEndpoint splits "node.port" into its parts; "node" has no port.
func splitEndpoint(s string) (string, string) {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}
