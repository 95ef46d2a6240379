// Package backend defines the code generator interface shared by the
// stream and thread targets, plus the pieces they have in common: a
// registry keyed by target name, embedding of runtime sources into the
// generated package, and atomic writing of the generated files.
package backend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

// Options control one generation run.
type Options struct {
	// Package is the Go package name of the generated files.
	Package string
	// Threads is the default scheduler count baked into thread targets.
	Threads int
	// Flatten lets targets that need a flat graph expand composite nodes
	// instead of failing.
	Flatten bool
}

// File is one generated file, relative to the output directory.
type File struct {
	Name    string
	Content []byte
	// KeepExisting files are user-owned stubs: they are only written when
	// nothing exists at the destination yet.
	KeepExisting bool
}

// Backend turns a graph into source files.
type Backend interface {
	Name() string
	Generate(g *graph.Graph, opts Options) ([]File, error)
}

// UnknownError is returned when no backend is registered for a target.
type UnknownError struct {
	Target string
	Known  []string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("no backend registered for target %q (known: %s)", e.Target, strings.Join(e.Known, ", "))
}

// Registry maps target names to backends.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates a Registry holding bs.
func NewRegistry(bs ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	for _, b := range bs {
		r.Register(b)
	}
	return r
}

// Register associates a backend with its name.
func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

// Get returns the backend for target, or an *UnknownError.
func (r *Registry) Get(target string) (Backend, error) {
	b, ok := r.backends[target]
	if !ok {
		return nil, &UnknownError{Target: target, Known: r.Names()}
	}
	return b, nil
}

// Names returns the registered target names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Header is the leading comment of every generated file that is regenerated
// on each run.
const Header = "Code generated by evegen. DO NOT EDIT."

// TickName is the function holding the per-item logic of a node.
func TickName(node string) string {
	return graph.LowerIdent(node) + "Tick"
}
