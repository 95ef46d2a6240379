// Package dsl is a small builder for Go source fragments made of ordered
// bindings and an optional trailing result.
//
// Misuse of a scope is a programming error in the generator, not a problem
// with the input graph, so every precondition violation panics with a
// *DefinitionError instead of returning an error.
package dsl

import (
	"fmt"
	"go/token"
	"strings"
)

// DefinitionError is the panic value raised when a scope is used incorrectly.
type DefinitionError struct {
	Name   string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.Name == "" {
		return "dsl: " + e.Reason
	}
	return fmt.Sprintf("dsl: identifier %q: %s", e.Name, e.Reason)
}

type binding struct {
	name string
	expr Expr
}

// Scope is a lexical block: an ordered list of `name := expr` bindings
// followed by at most one `return expr`.
type Scope struct {
	bound    map[string]bool
	bindings []binding
	result   Expr
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{bound: make(map[string]bool)}
}

// Declare reserves names that are already in scope without emitting a
// binding for them, e.g. function parameters.
func (s *Scope) Declare(names ...string) {
	for _, n := range names {
		s.define(n)
	}
}

// Bind appends `name := e` and returns an expression referring to name.
func (s *Scope) Bind(name string, e Expr) Expr {
	s.define(name)
	s.bindings = append(s.bindings, binding{name: name, expr: e})
	return Raw(name)
}

// Do appends e as an expression statement, e.g. a call run for its effect.
func (s *Scope) Do(e Expr) {
	if s.result != nil {
		panic(&DefinitionError{Reason: "statement added after the scope result was set"})
	}
	s.bindings = append(s.bindings, binding{expr: e})
}

// Result sets the trailing result expression. A scope has at most one.
func (s *Scope) Result(e Expr) {
	if s.result != nil {
		panic(&DefinitionError{Reason: "result already set"})
	}
	s.result = e
}

// HasResult reports whether Result has been called.
func (s *Scope) HasResult() bool { return s.result != nil }

// IsBound reports whether name is declared or bound in s.
func (s *Scope) IsBound(name string) bool { return s.bound[name] }

// Names returns the bound identifiers in binding order.
func (s *Scope) Names() []string {
	var out []string
	for _, b := range s.bindings {
		if b.name != "" {
			out = append(out, b.name)
		}
	}
	return out
}

// Len returns the number of statements.
func (s *Scope) Len() int { return len(s.bindings) }

func (s *Scope) define(name string) {
	if s.result != nil {
		panic(&DefinitionError{Name: name, Reason: "bound after the scope result was set"})
	}
	mustIdent(name)
	if s.bound[name] {
		panic(&DefinitionError{Name: name, Reason: "already bound in this scope"})
	}
	s.bound[name] = true
}

// Render returns the body statements, one per line, indented by depth tabs.
func (s *Scope) Render(depth int) string {
	var sb strings.Builder
	pad := strings.Repeat("\t", depth)
	for _, b := range s.bindings {
		if b.name == "" {
			fmt.Fprintf(&sb, "%s%s\n", pad, b.expr.Render(depth))
			continue
		}
		fmt.Fprintf(&sb, "%s%s := %s\n", pad, b.name, b.expr.Render(depth))
	}
	if s.result != nil {
		fmt.Fprintf(&sb, "%sreturn %s\n", pad, s.result.Render(depth))
	}
	return sb.String()
}

// Block composes the scope as an expression, `func() typ { ... }()`, usable
// as the right-hand side of a binding in an outer scope.
func (s *Scope) Block(typ string) Expr {
	if s.result == nil {
		panic(&DefinitionError{Reason: "nested scope used as an expression has no result"})
	}
	return block{scope: s, typ: typ}
}

type block struct {
	scope *Scope
	typ   string
}

func (b block) Render(depth int) string {
	return "func() " + b.typ + " {\n" + b.scope.Render(depth+1) + strings.Repeat("\t", depth) + "}()"
}

func mustIdent(name string) {
	if token.IsKeyword(name) {
		panic(&DefinitionError{Name: name, Reason: "reserved keyword"})
	}
	if !token.IsIdentifier(name) {
		panic(&DefinitionError{Name: name, Reason: "not a valid identifier"})
	}
}
