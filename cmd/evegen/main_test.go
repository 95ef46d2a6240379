package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

const videoDOT = `digraph video {
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

const chainDOT = `digraph chain {
	src  [out="int"]
	inc  [in="int", out="int"]
	sink [in="int"]
	src -> inc
	inc -> sink
}`

// writeGraph stores src in a temporary file named name and returns its path.
func writeGraph(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// runCLI executes the CLI and returns its exit code, stdout and stderr.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ─── TestWriteOutput ──────────────────────────────────────────────────────────

func TestWriteOutput_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reduced.json")
	if err := writeOutput(out, []byte(`{"graph":"g"}`)); err != nil {
		t.Fatalf("writeOutput: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if string(data) != `{"graph":"g"}` {
		t.Errorf("content = %q", data)
	}
}

func TestWriteOutput_NoOp(t *testing.T) {
	// An empty path must be a no-op with no error.
	if err := writeOutput("", []byte("x")); err != nil {
		t.Fatalf("expected no error for empty path, got: %v", err)
	}
}

func TestWriteOutput_BadPath(t *testing.T) {
	if err := writeOutput("/nonexistent/dir/out.json", []byte("x")); err == nil {
		t.Fatal("expected error writing to bad path")
	}
}

// ─── TestInitLogger ───────────────────────────────────────────────────────────

func TestInitLogger_ValidLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "DEBUG", "INFO"} {
		if err := initLogger(lvl, "text"); err != nil {
			t.Errorf("initLogger(%q, text): unexpected error: %v", lvl, err)
		}
	}
}

func TestInitLogger_ValidFormats(t *testing.T) {
	for _, fmt := range []string{"text", "json", "TEXT", "JSON"} {
		if err := initLogger("info", fmt); err != nil {
			t.Errorf("initLogger(info, %q): unexpected error: %v", fmt, err)
		}
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	if err := initLogger("verbose", "text"); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestInitLogger_InvalidFormat(t *testing.T) {
	if err := initLogger("info", "xml"); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

// ─── rendering ────────────────────────────────────────────────────────────────

func TestRenderDOT_RoundTrips(t *testing.T) {
	g, err := graph.ParseDOT(videoDOT)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	again, err := graph.ParseDOT(renderDOT(g))
	if err != nil {
		t.Fatalf("parse rendered DOT: %v\n%s", err, renderDOT(g))
	}
	if got, want := renderText(again), renderText(g); got != want {
		t.Errorf("round trip changed the graph:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderText(t *testing.T) {
	g, err := graph.ParseDOT(videoDOT)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	text := renderText(g)
	for _, want := range []string{
		"Graph: video  (5 nodes, 5 edges)",
		"    blur",
		"in=Frame instances=2",
		"sharpen.out0  →  pre.out0",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestDotQuote(t *testing.T) {
	cases := map[string]string{
		"cam":       "cam",
		"frame-src": `"frame-src"`,
		"[]byte":    `"[]byte"`,
		`say "hi"`:  `"say \"hi\""`,
		"":          `""`,
	}
	for in, want := range cases {
		if got := dotQuote(in); got != want {
			t.Errorf("dotQuote(%q) = %s, want %s", in, got, want)
		}
	}
}

// ─── commands ─────────────────────────────────────────────────────────────────

func TestLint(t *testing.T) {
	code, out, _ := runCLI(t, "lint", writeGraph(t, "video.dot", videoDOT))
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if !strings.Contains(out, `graph "video" is valid (5 nodes, 5 edges)`) {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestLint_ReportsProblems(t *testing.T) {
	path := writeGraph(t, "loop.dot", `digraph loop {
		src [out="int"]
		a   [in="int", out="int"]
		b   [in="int", out="string"]
		src -> a
		a -> b
		b -> a
	}`)
	code, out, stderr := runCLI(t, "lint", path)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "cycle detected") {
		t.Errorf("missing cycle in output:\n%s", out)
	}
	if !strings.Contains(out, `message type "string" does not match "int"`) {
		t.Errorf("missing type mismatch in output:\n%s", out)
	}
	if !strings.Contains(stderr, "2 problem(s)") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestGenerate_ThreadTarget(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "gen")
	code, out, stderr := runCLI(t, "generate", writeGraph(t, "video.dot", videoDOT),
		"--target", "thread", "--out", outDir, "--threads", "4")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(out, "wrote") {
		t.Errorf("stdout = %q", out)
	}
	mainSrc, err := os.ReadFile(filepath.Join(outDir, "main.go"))
	if err != nil {
		t.Fatalf("read main.go: %v", err)
	}
	if !strings.Contains(string(mainSrc), "Run(4)") {
		t.Errorf("main.go does not start 4 threads:\n%s", mainSrc)
	}
	if _, err := os.Stat(filepath.Join(outDir, "node_blur.go")); err != nil {
		t.Errorf("missing node stub: %v", err)
	}
}

func TestGenerate_StreamNeedsFlatten(t *testing.T) {
	path := writeGraph(t, "video.dot", videoDOT)
	outDir := filepath.Join(t.TempDir(), "gen")

	code, _, stderr := runCLI(t, "generate", path, "--target", "stream", "--out", outDir)
	if code != 1 || !strings.Contains(stderr, "not supported") {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}

	code, _, stderr = runCLI(t, "generate", path, "--target", "stream", "--out", outDir, "--flatten")
	if code != 0 {
		t.Fatalf("exit code = %d with --flatten, stderr:\n%s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(outDir, "pipelines.go")); err != nil {
		t.Errorf("missing pipelines.go: %v", err)
	}
}

func TestGenerate_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "gen")
	cfgPath := filepath.Join(dir, "evegen.yaml")
	cfg := "target: thread\npackage: chain\noutput: " + outDir + "\nthreads: 2\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	code, _, stderr := runCLI(t, "generate", writeGraph(t, "chain.dot", chainDOT),
		"--config", cfgPath, "--package", "override")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	startup, err := os.ReadFile(filepath.Join(outDir, "startup.go"))
	if err != nil {
		t.Fatalf("read startup.go: %v", err)
	}
	if !strings.Contains(string(startup), "package override") {
		t.Errorf("flag did not override the config file:\n%s", startup)
	}
	if _, err := os.Stat(filepath.Join(outDir, "main.go")); !os.IsNotExist(err) {
		t.Errorf("library package must not get main.go, stat err = %v", err)
	}
}

func TestGenerate_DryRun(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "gen")
	code, out, stderr := runCLI(t, "generate", writeGraph(t, "chain.dot", chainDOT), "--out", outDir, "--dry-run")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(out, "pipelines.go (") {
		t.Errorf("dry run did not list pipelines.go:\n%s", out)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Errorf("dry run created %s", outDir)
	}
}

func TestGenerate_Check(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module gen\n\ngo 1.22\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	for _, target := range []string{"stream", "thread"} {
		outDir := filepath.Join(dir, target)
		code, out, stderr := runCLI(t, "generate", writeGraph(t, "chain.dot", chainDOT),
			"--target", target, "--out", outDir, "--check")
		if code != 0 {
			t.Fatalf("%s: exit code = %d, stderr:\n%s", target, code, stderr)
		}
		if !strings.Contains(out, "type-checks") {
			t.Errorf("%s: stdout = %q", target, out)
		}
	}
}

func TestGenerate_CheckReportsBrokenNodes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module gen\n\ngo 1.22\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	outDir := filepath.Join(dir, "gen")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// A hand-written node file with the wrong signature is kept as is.
	broken := "package main\n\nfunc incTick(v string) string { return v }\n"
	if err := os.WriteFile(filepath.Join(outDir, "node_inc.go"), []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := runCLI(t, "generate", writeGraph(t, "chain.dot", chainDOT),
		"--target", "stream", "--out", outDir, "--check")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "check "+outDir) {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestGenerate_UnknownTarget(t *testing.T) {
	code, _, stderr := runCLI(t, "generate", writeGraph(t, "chain.dot", chainDOT),
		"--target", "wasm", "--out", t.TempDir())
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, `no backend registered for target "wasm"`) {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestReduce_JSON(t *testing.T) {
	code, out, stderr := runCLI(t, "reduce", writeGraph(t, "chain.dot", chainDOT), "--format", "json")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	var doc struct {
		Graph string   `json:"graph"`
		Roots []string `json:"roots"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if doc.Graph != "chain" || len(doc.Roots) != 1 || doc.Roots[0] != "pipeline_src_sink" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestReduce_ToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "chain.gv")
	code, stdout, stderr := runCLI(t, "reduce", writeGraph(t, "chain.dot", chainDOT), "--format", "dot", "--out", out)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("stdout should be empty when --out is set, got %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read %s: %v", out, err)
	}
	if !strings.Contains(string(data), "pipeline_src_sink") {
		t.Errorf("DOT output lacks the pipeline:\n%s", data)
	}
}
