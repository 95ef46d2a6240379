package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a graph file, choosing the parser by extension: .dot and .gv
// are DOT, .hcl is HCL.
func Load(path string) (*Graph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".dot", ".gv":
		g, err := ParseDOT(string(src))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return g, nil
	case ".hcl":
		return ParseHCL(src, filepath.Base(path))
	default:
		return nil, fmt.Errorf("%s: unknown graph format %q: use .dot, .gv or .hcl", path, ext)
	}
}
