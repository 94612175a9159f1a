package raw

import (
	"strings"
	"testing"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/types"
)

func TestEmitModuleHoistsClosureWithCaptures(t *testing.T) {
	// let x = 1 in (fn(y) => x + y)
	lambda := &core.Lambda{
		Base:   core.Base{Typ: types.Int},
		Params: []core.Param{{Name: "y", Typ: types.Int}},
		Body: &core.Prim{
			Base: core.Base{Typ: types.Int},
			Op:   "int_add",
			Args: []core.Expr{
				&core.Var{Base: core.Base{Typ: types.Int}, Name: "x"},
				&core.Var{Base: core.Base{Typ: types.Int}, Name: "y"},
			},
		},
	}
	mod := &core.Module{
		Values: []core.ValueBinding{
			{Name: "adder", Value: &core.Let{
				Base:    core.Base{Typ: types.Int},
				Binding: core.Binding{Name: "x", Value: &core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 1}},
				Body:    lambda,
			}},
		},
	}
	em := NewEmitter(nil)
	out, _, err := em.EmitModule(mod, "zig")
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(out, "x)") {
		t.Fatalf("expected the hoisted lambda to take x as an extra parameter, got %s", out)
	}
	if !strings.Contains(out, "__bind(") {
		t.Fatalf("expected the call site to append the capture via __bind, got %s", out)
	}
}

func TestEmitCallRecognizesNativeOperator(t *testing.T) {
	mod := &core.Module{
		Values: []core.ValueBinding{
			{Name: "sum", Value: &core.Call{
				Base:   core.Base{Typ: types.Int},
				Callee: &core.Var{Base: core.Base{Typ: types.Int}, Name: "__op_+"},
				Args: []core.Expr{
					&core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 1},
					&core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 2},
				},
			}},
		},
	}
	em := NewEmitter(nil)
	out, _, err := em.EmitModule(mod, "zig")
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(out, "(1 + 2)") {
		t.Fatalf("expected native + operator, got %s", out)
	}
}

func TestEmitLiteralRewritesSourceExtension(t *testing.T) {
	mod := &core.Module{
		Values: []core.ValueBinding{
			{Name: "path", Value: &core.Literal{Base: core.Base{Typ: types.String}, Kind: types.PString, Value: "build.wm"}},
		},
	}
	em := NewEmitter(nil)
	out, rewrites, err := em.EmitModule(mod, "zig")
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(out, `"build.zig"`) {
		t.Fatalf("expected build.wm rewritten to build.zig, got %s", out)
	}
	if len(rewrites) != 1 || rewrites[0] != "build.wm" {
		t.Fatalf("expected rewrite record for build.wm, got %v", rewrites)
	}
}
