package backend

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"slices"
	"strconv"
	"strings"
)

// EmbedRuntime merges the named Go files of fsys into one file of package
// pkg. Imports are unioned; everything after each file's import block is
// copied as is, comments included.
func EmbedRuntime(fsys fs.FS, files []string, pkg string) ([]byte, error) {
	var (
		imports []string
		bodies  []string
	)
	for _, name := range files {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read runtime file %s: %w", name, err)
		}
		fset := token.NewFileSet()
		f, err := parser.ParseFile(fset, name, src, parser.ImportsOnly|parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse runtime file %s: %w", name, err)
		}
		for _, spec := range f.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				return nil, fmt.Errorf("runtime file %s: %w", name, err)
			}
			if !slices.Contains(imports, path) {
				imports = append(imports, path)
			}
		}
		// With ImportsOnly, Decls holds exactly the import declarations.
		end := f.Name.End()
		if n := len(f.Decls); n > 0 {
			end = f.Decls[n-1].End()
		}
		bodies = append(bodies, strings.TrimSpace(string(src[fset.Position(end).Offset:])))
	}
	slices.Sort(imports)

	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s\n\npackage %s\n\n", Header, pkg)
	if len(imports) > 0 {
		sb.WriteString("import (\n")
		for _, p := range imports {
			fmt.Fprintf(&sb, "\t%q\n", p)
		}
		sb.WriteString(")\n\n")
	}
	sb.WriteString(strings.Join(bodies, "\n\n"))
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}
