package dsl_test

import (
	"errors"
	"go/parser"
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravi-parthasarathy/evegen/pkg/dsl"
)

// definitionPanic runs fn and returns the *DefinitionError it panicked with.
func definitionPanic(t *testing.T, fn func()) *dsl.DefinitionError {
	t.Helper()
	var got *dsl.DefinitionError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value %v is not an error", r)
			require.True(t, errors.As(err, &got))
		}()
		fn()
	}()
	return got
}

func TestScope_RendersBindingsThenResult(t *testing.T) {
	s := dsl.NewScope()
	a := s.Bind("a", dsl.Call("Source", dsl.Ident("cameraTick")))
	b := s.Bind("b", dsl.Call("Map", a, dsl.Ident("blurTick")))
	s.Result(b)

	want := "\ta := Source(cameraTick)\n\tb := Map(a, blurTick)\n\treturn b\n"
	if diff := cmp.Diff(want, s.Render(1)); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a", "b"}, s.Names())
	assert.True(t, s.HasResult())
}

func TestScope_DuplicateBindingPanics(t *testing.T) {
	s := dsl.NewScope()
	s.Bind("x", dsl.Int(1))
	err := definitionPanic(t, func() { s.Bind("x", dsl.Int(2)) })
	assert.Equal(t, "x", err.Name)
	assert.Contains(t, err.Error(), "already bound")
}

func TestScope_DeclaredNameCannotBeRebound(t *testing.T) {
	s := dsl.NewScope()
	s.Declare("in")
	definitionPanic(t, func() { s.Bind("in", dsl.Int(0)) })
}

func TestScope_BindAfterResultPanics(t *testing.T) {
	s := dsl.NewScope()
	s.Result(dsl.Int(1))
	err := definitionPanic(t, func() { s.Bind("late", dsl.Int(2)) })
	assert.Contains(t, err.Error(), "after the scope result")
}

func TestScope_SecondResultPanics(t *testing.T) {
	s := dsl.NewScope()
	s.Result(dsl.Int(1))
	definitionPanic(t, func() { s.Result(dsl.Int(2)) })
}

func TestScope_KeywordPanics(t *testing.T) {
	for _, kw := range []string{"func", "type", "range", "go", "select"} {
		s := dsl.NewScope()
		err := definitionPanic(t, func() { s.Bind(kw, dsl.Int(0)) })
		assert.Equal(t, "reserved keyword", err.Reason, kw)
	}
}

func TestScope_InvalidIdentifierPanics(t *testing.T) {
	s := dsl.NewScope()
	definitionPanic(t, func() { s.Bind("9lives", dsl.Int(0)) })
	definitionPanic(t, func() { s.Bind("a-b", dsl.Int(0)) })
}

func TestScope_BlockComposesAsExpression(t *testing.T) {
	inner := dsl.NewScope()
	v := inner.Bind("v", dsl.Int(41))
	inner.Result(dsl.Raw(v.Render(0) + " + 1"))

	outer := dsl.NewFunc("answer", "int")
	// The nested scope may reuse a name bound in the outer scope.
	outer.Body.Bind("v", inner.Block("int"))
	outer.Body.Result(dsl.Ident("v"))

	src := "package p\n\n" + outer.Render()
	_, err := parser.ParseFile(token.NewFileSet(), "answer.go", src, 0)
	require.NoError(t, err, src)
	assert.Contains(t, src, "v := func() int {\n\t\tv := 41\n\t\treturn v + 1\n\t}()")
}

func TestScope_BlockWithoutResultPanics(t *testing.T) {
	definitionPanic(t, func() { dsl.NewScope().Block("int") })
}

func TestFunc_ParamsAreDeclared(t *testing.T) {
	f := dsl.NewFunc("double", "int", dsl.Param{Name: "in", Type: "int"})
	assert.True(t, f.Body.IsBound("in"))
	definitionPanic(t, func() { f.Body.Bind("in", dsl.Int(0)) })
}

func TestFile_ParsesAsGo(t *testing.T) {
	f := dsl.NewFile("demo")
	f.Header = "Code generated by evegen. DO NOT EDIT."
	f.Import("sync")
	f.Import("sync")
	f.Import("fmt")

	st := dsl.NewStruct("Counter")
	st.Add("mu", "sync.Mutex", "")
	st.Add("N", "int", "N counts items.")
	f.Add(st.Render())

	fn := dsl.NewFunc("newCounter", "*Counter")
	c := fn.Body.Bind("c", dsl.AddrOf(dsl.Composite("Counter", dsl.Field{Key: "N", Value: dsl.Int(0)})))
	fn.Body.Bind("msg", dsl.Call("fmt.Sprint", dsl.String("ready")))
	fn.Body.Result(c)
	f.Add(fn.Render())

	m := dsl.NewFunc("Label", "string")
	m.Receiver = &dsl.Param{Name: "c", Type: "*Counter"}
	m.Body.Result(dsl.Method(dsl.Ident("fmt"), "Sprint", dsl.Raw("c.N")))
	f.Add(m.Render())

	src := string(f.Bytes())
	_, err := parser.ParseFile(token.NewFileSet(), "demo.go", src, parser.ParseComments)
	require.NoError(t, err, src)
	assert.Contains(t, src, "c := &Counter{N: 0}")
}

func TestStruct_DuplicateFieldPanics(t *testing.T) {
	st := dsl.NewStruct("T")
	st.Add("A", "int", "")
	definitionPanic(t, func() { st.Add("A", "string", "") })
}

func TestScope_ExpressionStatements(t *testing.T) {
	s := dsl.NewScope()
	threads := s.Bind("threads", dsl.Call("Start", dsl.Ident("n")))
	s.Do(dsl.Call("RunAll", threads))

	want := "\tthreads := Start(n)\n\tRunAll(threads)\n"
	if diff := cmp.Diff(want, s.Render(1)); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"threads"}, s.Names())

	s.Result(threads)
	definitionPanic(t, func() { s.Do(dsl.Call("RunAll", threads)) })
}
