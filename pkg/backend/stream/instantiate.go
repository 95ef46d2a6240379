package stream

import (
	"fmt"

	"github.com/ravi-parthasarathy/evegen/pkg/dsl"
	"github.com/ravi-parthasarathy/evegen/pkg/reduce"
)

// Emitter binds the elements of a reduced graph in a scope, predecessors
// first. The emitted set is shared by every root, so an element reached
// from several roots is bound once.
type Emitter struct {
	scope   *dsl.Scope
	emitted map[string]bool
}

// NewEmitter returns an Emitter writing into scope.
func NewEmitter(scope *dsl.Scope) *Emitter {
	return &Emitter{scope: scope, emitted: make(map[string]bool)}
}

// EmitRoot binds root and everything downstream of it.
func (e *Emitter) EmitRoot(root *reduce.Pipeline) {
	e.emit(root)
}

// Emitted reports whether the element called name is bound.
func (e *Emitter) Emitted(name string) bool { return e.emitted[name] }

func (e *Emitter) emit(el reduce.Element) {
	if e.emitted[el.Name()] {
		return
	}
	for _, in := range reduce.Inputs(el) {
		e.emit(in)
	}
	// Emitting an input walks its outputs, which may have bound el already.
	if e.emitted[el.Name()] {
		return
	}

	e.scope.Bind(el.Name(), e.expr(el))
	e.emitted[el.Name()] = true

	for _, out := range reduce.Outputs(el) {
		e.emit(out)
	}
}

func (e *Emitter) expr(el reduce.Element) dsl.Expr {
	switch el := el.(type) {
	case *reduce.Pipeline:
		if el.Pred == nil {
			return dsl.Call(FuncName(el))
		}
		return dsl.Call(FuncName(el), connector(el.Pred))
	case *reduce.Merge:
		args := make([]dsl.Expr, len(el.Inputs))
		for i, in := range el.Inputs {
			args[i] = connector(in)
		}
		return dsl.Call("Merge", args...)
	case *reduce.Copy:
		return dsl.Call("NewCopy", connector(el.Input))
	default:
		panic(fmt.Sprintf("stream: unknown element %T", el))
	}
}

// connector is the expression through which a consumer reads from pred.
// Every read from a Copy takes a fresh subscription.
func connector(pred reduce.Element) dsl.Expr {
	switch pred := pred.(type) {
	case *reduce.Pipeline, *reduce.Merge:
		return dsl.Ident(pred.Name())
	case *reduce.Copy:
		return dsl.Method(dsl.Ident(pred.Name()), "Subscribe")
	default:
		panic(fmt.Sprintf("stream: unknown predecessor %T", pred))
	}
}
