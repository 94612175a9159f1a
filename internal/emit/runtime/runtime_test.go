package runtime

import (
	"strings"
	"testing"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/types"
)

func TestEmitModuleExportsAndCallsGoThroughRuntime(t *testing.T) {
	mod := &core.Module{
		Path: "main",
		Values: []core.ValueBinding{
			{
				Name:     "answer",
				Exported: true,
				Value: &core.Call{
					Base:   core.Base{Typ: types.Int},
					Callee: &core.Var{Base: core.Base{Typ: types.Int}, Name: "double"},
					Args:   []core.Expr{&core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 21}},
				},
			},
		},
	}
	em := NewEmitter()
	out, err := em.EmitModule(mod, Options{RuntimeImport: "./runtime.js"})
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(out, "__runtime.callInfectious(double, 21)") {
		t.Fatalf("expected call routed through callInfectious, got %s", out)
	}
	if !strings.Contains(out, "module.exports.answer = answer;") {
		t.Fatalf("expected answer to be exported, got %s", out)
	}
}

func TestEmitPrimAddsUsesNativeOperator(t *testing.T) {
	mod := &core.Module{
		Values: []core.ValueBinding{
			{Name: "sum", Value: &core.Prim{
				Base: core.Base{Typ: types.Int},
				Op:   "int_add",
				Args: []core.Expr{
					&core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 1},
					&core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 2},
				},
			}},
		},
	}
	em := NewEmitter()
	out, err := em.EmitModule(mod, Options{RuntimeImport: "./runtime.js"})
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(out, "(1 + 2)") {
		t.Fatalf("expected native + operator, got %s", out)
	}
}

// TestEmitMatchWithoutFallbackCallsNonExhaustive pins scenario S5: a match
// missing an arm for one constructor (Some(x) -> x over an Option with no
// None arm) compiles to a call into the runtime's nonExhaustiveMatch, not
// a silent fallthrough (spec.md §8 S5, §4.9 closing contract).
func TestEmitMatchWithoutFallbackCallsNonExhaustive(t *testing.T) {
	mod := &core.Module{
		Values: []core.ValueBinding{
			{Name: "unwrap", Value: &core.Match{
				Base:      core.Base{Typ: types.Int},
				Scrutinee: &core.Var{Base: core.Base{Typ: &types.TCon{Name: "Option", Args: []types.Type{types.Int}}}, Name: "v"},
				Cases: []core.Case{
					{
						Pattern: &core.ConstructorPattern{TypeName: "Option", Ctor: "Some", Fields: []core.Pattern{&core.BindingPattern{Name: "x"}}},
						Body:    &core.Var{Base: core.Base{Typ: types.Int}, Name: "x"},
					},
				},
			}},
		},
	}
	em := NewEmitter()
	out, err := em.EmitModule(mod, Options{RuntimeImport: "./runtime.js"})
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(out, "__runtime.nonExhaustiveMatch(") {
		t.Fatalf("expected a non-exhaustive match to call into the runtime, got %s", out)
	}
	if !strings.Contains(out, "patterns: 1") {
		t.Fatalf("expected the non-exhaustive error to carry the arm count, got %s", out)
	}
}

// TestEmitMatchNestedConstructorPatternChecksInnerTag guards against a
// regression where a nested constructor pattern's inner tag test was
// computed and discarded: Cons(Some(x), rest) must verify the head is a
// Some before binding x, not just that the scrutinee is a Cons.
func TestEmitMatchNestedConstructorPatternChecksInnerTag(t *testing.T) {
	mod := &core.Module{
		Values: []core.ValueBinding{
			{Name: "headOrZero", Value: &core.Match{
				Base:      core.Base{Typ: types.Int},
				Scrutinee: &core.Var{Base: core.Base{Typ: &types.TCon{Name: "List"}}, Name: "xs"},
				Cases: []core.Case{
					{
						Pattern: &core.ConstructorPattern{
							TypeName: "List",
							Ctor:     "Cons",
							Fields: []core.Pattern{
								&core.ConstructorPattern{TypeName: "Option", Ctor: "Some", Fields: []core.Pattern{&core.BindingPattern{Name: "x"}}},
								&core.BindingPattern{Name: "rest"},
							},
						},
						Body: &core.Var{Base: core.Base{Typ: types.Int}, Name: "x"},
					},
				},
				Fallback: &core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 0},
			}},
		},
	}
	em := NewEmitter()
	out, err := em.EmitModule(mod, Options{RuntimeImport: "./runtime.js"})
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(out, `.tag === "Cons"`) {
		t.Fatalf("expected outer tag test, got %s", out)
	}
	if !strings.Contains(out, `.tag === "Some"`) {
		t.Fatalf("expected inner field's tag to be tested, not just bound, got %s", out)
	}
	if !strings.Contains(out, `.tag === "Cons" && `) {
		t.Fatalf("expected the inner tag test folded into the combined condition, got %s", out)
	}
}

func TestLibrarySourceIncludesRegisteredNatives(t *testing.T) {
	src := LibrarySource()
	if !strings.Contains(src, "__io_println") {
		t.Fatalf("expected IO.println native in library source")
	}
}
