package graph_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

const hierarchicalDOT = `digraph video {
	cam  [out="frames:Frame"]
	pre  [in="Frame", out="Frame"]
	show [in="Frame", instances=2]

	subgraph cluster_pre {
		blur    [in="Frame", out="Frame"]
		sharpen [in="Frame", out="Frame"]
	}

	cam:frames -> pre
	pre -> blur
	blur -> sharpen
	sharpen -> pre
	pre -> show
}`

const hierarchicalHCL = `
name = "video"

node "cam" {
  output "frames" { type = "Frame" }
}

node "pre" {
  input { type = "Frame" }
  output "out0" { type = "Frame" }

  node "blur" {
    input { type = "Frame" }
    output "out0" { type = "Frame" }
  }
  node "sharpen" {
    input { type = "Frame" }
    output "out0" { type = "Frame" }
  }

  edge {
    from = "pre"
    to   = "blur"
  }
  edge {
    from = "blur"
    to   = "sharpen"
  }
  edge {
    from = "sharpen"
    to   = "pre.out0"
  }
}

node "show" {
  input { type = "Frame" }
  instances = 2
}

edge {
  from = "cam.frames"
  to   = "pre"
}
edge {
  from = "pre.out0"
  to   = "show"
}
`

// describe flattens g and lists its edges for comparison across formats.
func describe(t *testing.T, g *graph.Graph) []string {
	t.Helper()
	flat, err := g.Flatten()
	require.NoError(t, err)
	var out []string
	for _, e := range flat.Edges() {
		out = append(out, flat.PortString(e.From)+" -> "+flat.PortString(e.To))
	}
	return out
}

func TestParseDOT_Hierarchy(t *testing.T) {
	g, err := graph.ParseDOT(hierarchicalDOT)
	require.NoError(t, err)
	assert.Equal(t, "video", g.Name)
	assert.Len(t, g.Nodes(), 5)

	pre, ok := g.Lookup("pre")
	require.True(t, ok)
	blur, _ := g.Lookup("blur")
	assert.Equal(t, pre, g.Node(blur).Parent)
	assert.Len(t, g.Node(pre).Children, 2)

	show, _ := g.Lookup("show")
	assert.Equal(t, "2", g.Node(show).Attrs["instances"])
	_, hasIn := g.Node(show).Attrs["in"]
	assert.False(t, hasIn, "port attributes are not copied into Attrs")

	cam, _ := g.Lookup("cam")
	assert.Equal(t, "frames", g.Port(g.Node(cam).Outputs[0]).Name)

	assert.Equal(t, []string{
		"cam.frames -> blur.in",
		"blur.out0 -> sharpen.in",
		"sharpen.out0 -> show.in",
	}, describe(t, g))
}

func TestParseHCL_MatchesDOT(t *testing.T) {
	g, err := graph.ParseHCL([]byte(hierarchicalHCL), "video.hcl")
	require.NoError(t, err)
	assert.Equal(t, "video", g.Name)

	show, _ := g.Lookup("show")
	assert.Equal(t, "2", g.Node(show).Attrs["instances"])

	dot, err := graph.ParseDOT(hierarchicalDOT)
	require.NoError(t, err)
	assert.Equal(t, describe(t, dot), describe(t, g))
}

func TestParseDOT_Errors(t *testing.T) {
	cases := map[string]string{
		"syntax":           `digraph {`,
		"unknown out port": `digraph g { a [out="int"] b [in="int"] a:nope -> b }`,
		"no input port":    `digraph g { a [out="int"] b [out="int"] a -> b }`,
		"no output port":   `digraph g { a [in="int"] b [in="int"] a -> b }`,
		"nested illegal": `digraph g {
			a [out="int"]
			p [in="int"]
			subgraph cluster_p { c [in="int"] }
			a -> c
		}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := graph.ParseDOT(src)
			assert.Error(t, err)
		})
	}
}

func TestParseHCL_Errors(t *testing.T) {
	_, err := graph.ParseHCL([]byte(`node "a" {`), "bad.hcl")
	assert.Error(t, err)

	_, err = graph.ParseHCL([]byte(`
node "a" {
  output "o" { type = "int" }
}
edge {
  from = "a.o"
  to   = "missing"
}`), "bad.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	dotPath := filepath.Join(dir, "g.dot")
	hclPath := filepath.Join(dir, "g.hcl")
	require.NoError(t, os.WriteFile(dotPath, []byte(hierarchicalDOT), 0o644))
	require.NoError(t, os.WriteFile(hclPath, []byte(hierarchicalHCL), 0o644))

	for _, p := range []string{dotPath, hclPath} {
		g, err := graph.Load(p)
		require.NoError(t, err, p)
		assert.Len(t, g.Nodes(), 5)
	}

	_, err := graph.Load(filepath.Join(dir, "g.json"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "read graph file") || strings.Contains(err.Error(), "unknown graph format"))
}
