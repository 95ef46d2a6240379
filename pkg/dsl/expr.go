package dsl

import (
	"fmt"
	"strings"
)

// Expr is a Go expression that can be rendered at a given indentation depth.
// Depth only matters for expressions spanning several lines (nested scopes).
type Expr interface {
	Render(depth int) string
}

// Raw is an expression emitted verbatim.
type Raw string

func (r Raw) Render(int) string { return string(r) }

// Ident references a bound identifier. It panics if name is not a valid,
// non-keyword Go identifier.
func Ident(name string) Expr {
	mustIdent(name)
	return Raw(name)
}

type call struct {
	fn   string
	args []Expr
}

// Call renders fn(args...). fn may be a qualified or generic name such as
// NewChannel[int].
func Call(fn string, args ...Expr) Expr {
	return call{fn: fn, args: args}
}

// Method renders recv.name(args...).
func Method(recv Expr, name string, args ...Expr) Expr {
	mustIdent(name)
	return call{fn: recv.Render(0) + "." + name, args: args}
}

func (c call) Render(depth int) string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.Render(depth)
	}
	return c.fn + "(" + strings.Join(parts, ", ") + ")"
}

// Field is one keyed element of a composite literal.
type Field struct {
	Key   string
	Value Expr
}

type composite struct {
	typ    string
	fields []Field
}

// Composite renders Type{Key: Value, ...}.
func Composite(typ string, fields ...Field) Expr {
	for _, f := range fields {
		mustIdent(f.Key)
	}
	return composite{typ: typ, fields: fields}
}

func (c composite) Render(depth int) string {
	parts := make([]string, len(c.fields))
	for i, f := range c.fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Key, f.Value.Render(depth))
	}
	return c.typ + "{" + strings.Join(parts, ", ") + "}"
}

type addrOf struct{ e Expr }

// AddrOf renders &e.
func AddrOf(e Expr) Expr { return addrOf{e: e} }

func (a addrOf) Render(depth int) string { return "&" + a.e.Render(depth) }

// Int renders an integer literal.
func Int(v int) Expr { return Raw(fmt.Sprintf("%d", v)) }

// String renders a quoted string literal.
func String(s string) Expr { return Raw(fmt.Sprintf("%q", s)) }
