package dsl

import (
	"fmt"
	"strings"
)

// Param is a function parameter.
type Param struct {
	Name string
	Type string
}

// Func is a top-level function or method declaration with a Scope body.
type Func struct {
	Doc      string
	Receiver *Param
	Name     string
	Params   []Param
	Result   string
	Body     *Scope
}

// NewFunc returns a Func whose body scope already declares every parameter
// name, so bindings cannot shadow them.
func NewFunc(name string, result string, params ...Param) *Func {
	mustIdent(name)
	body := NewScope()
	for _, p := range params {
		body.Declare(p.Name)
	}
	return &Func{Name: name, Params: params, Result: result, Body: body}
}

// Render returns the declaration followed by a blank line.
func (f *Func) Render() string {
	var sb strings.Builder
	writeDoc(&sb, f.Doc, "")
	sb.WriteString("func ")
	if f.Receiver != nil {
		fmt.Fprintf(&sb, "(%s %s) ", f.Receiver.Name, f.Receiver.Type)
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + " " + p.Type
	}
	fmt.Fprintf(&sb, "%s(%s)", f.Name, strings.Join(params, ", "))
	if f.Result != "" {
		sb.WriteString(" " + f.Result)
	}
	sb.WriteString(" {\n")
	sb.WriteString(f.Body.Render(1))
	sb.WriteString("}\n\n")
	return sb.String()
}

// StructField is one field of a Struct.
type StructField struct {
	Name string
	Type string
	Doc  string
}

// Struct is a named struct type declaration.
type Struct struct {
	Doc    string
	Name   string
	Fields []StructField
	names  map[string]bool
}

// NewStruct returns an empty struct declaration.
func NewStruct(name string) *Struct {
	mustIdent(name)
	return &Struct{Name: name, names: make(map[string]bool)}
}

// Add appends a field. Duplicate field names panic.
func (s *Struct) Add(name, typ, doc string) {
	mustIdent(name)
	if s.names[name] {
		panic(&DefinitionError{Name: name, Reason: "duplicate struct field"})
	}
	s.names[name] = true
	s.Fields = append(s.Fields, StructField{Name: name, Type: typ, Doc: doc})
}

// Render returns the type declaration followed by a blank line.
func (s *Struct) Render() string {
	var sb strings.Builder
	writeDoc(&sb, s.Doc, "")
	fmt.Fprintf(&sb, "type %s struct {\n", s.Name)
	for _, f := range s.Fields {
		writeDoc(&sb, f.Doc, "\t")
		fmt.Fprintf(&sb, "\t%s %s\n", f.Name, f.Type)
	}
	sb.WriteString("}\n\n")
	return sb.String()
}

// File accumulates the pieces of one generated Go source file.
type File struct {
	Package string
	Header  string
	imports []string
	seen    map[string]bool
	body    strings.Builder
}

// NewFile starts a file in package pkg.
func NewFile(pkg string) *File {
	mustIdent(pkg)
	return &File{Package: pkg, seen: make(map[string]bool)}
}

// Import adds an import path once.
func (f *File) Import(path string) {
	if f.seen[path] {
		return
	}
	f.seen[path] = true
	f.imports = append(f.imports, path)
}

// Add appends raw declaration text.
func (f *File) Add(text string) {
	f.body.WriteString(text)
}

// Bytes renders the complete file.
func (f *File) Bytes() []byte {
	var sb strings.Builder
	if f.Header != "" {
		writeDoc(&sb, f.Header, "")
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "package %s\n\n", f.Package)
	switch len(f.imports) {
	case 0:
	case 1:
		fmt.Fprintf(&sb, "import %q\n\n", f.imports[0])
	default:
		sb.WriteString("import (\n")
		for _, p := range f.imports {
			fmt.Fprintf(&sb, "\t%q\n", p)
		}
		sb.WriteString(")\n\n")
	}
	sb.WriteString(f.body.String())
	return []byte(sb.String())
}

func writeDoc(sb *strings.Builder, doc, pad string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(doc, "\n"), "\n") {
		if line == "" {
			sb.WriteString(pad + "//\n")
			continue
		}
		sb.WriteString(pad + "// " + line + "\n")
	}
}
