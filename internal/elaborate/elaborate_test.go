package elaborate

import (
	"testing"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/types"
)

func resultType(clean types.Type) types.Type {
	return &types.TCon{Name: "Result", Args: []types.Type{clean, &types.EffectRow{}}}
}

// TestElaborateCallWrapsInfectiousOperand mirrors scenario S2: divide(x, 2) + 1
// becomes carrier_match divide(x, 2) { v => prim int_add { var v, lit 1 } }.
func TestElaborateCallWrapsInfectiousOperand(t *testing.T) {
	typeDecls := []core.TypeDeclaration{{Name: "Result", Infectious: true}}

	call := &core.Call{
		Base:   core.Base{Typ: resultType(types.Int)},
		Callee: &core.Var{Base: core.Base{Typ: &types.TFunc{From: types.Int, To: &types.TFunc{From: types.Int, To: resultType(types.Int)}}}, Name: "divide"},
		Args: []core.Expr{
			&core.Var{Base: core.Base{Typ: types.Int}, Name: "x"},
			&core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 2},
		},
	}
	add := &core.Prim{
		Base: core.Base{Typ: types.Int},
		Op:   "int_add",
		Args: []core.Expr{call, &core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 1}},
	}

	el := New(typeDecls, []core.ValueBinding{{Name: "top", Value: add}})
	out := el.transform(add)

	cm, ok := out.(*core.CarrierMatch)
	if !ok {
		t.Fatalf("expected *core.CarrierMatch, got %T", out)
	}
	if cm.CarrierType != "Result" {
		t.Fatalf("expected carrier type Result, got %s", cm.CarrierType)
	}
	if _, ok := cm.Scrutinee.(*core.Call); !ok {
		t.Fatalf("expected scrutinee to be the divide call, got %T", cm.Scrutinee)
	}
	prim, ok := cm.Cases[0].Body.(*core.Prim)
	if !ok {
		t.Fatalf("expected body to be the addition prim, got %T", cm.Cases[0].Body)
	}
	v, ok := prim.Args[0].(*core.Var)
	if !ok || v.Name != cm.Cases[0].Pattern.(*core.BindingPattern).Name {
		t.Fatalf("expected addition's first operand to reference the carrier_match's fresh binding")
	}
}

func TestElaborateSkipsWhenCalleeExpectsCarrier(t *testing.T) {
	typeDecls := []core.TypeDeclaration{{Name: "Result", Infectious: true}}
	arg := &core.Var{Base: core.Base{Typ: resultType(types.Int)}, Name: "r"}
	call := &core.Call{
		Base:   core.Base{Typ: types.Unit},
		Callee: &core.Var{Base: core.Base{Typ: &types.TFunc{From: resultType(types.Int), To: types.Unit}}, Name: "handle"},
		Args:   []core.Expr{arg},
	}
	el := New(typeDecls, []core.ValueBinding{{Name: "top", Value: call}})
	out := el.transform(call)
	if _, ok := out.(*core.CarrierMatch); ok {
		t.Fatalf("expected no carrier_match when callee's param already expects the carrier, got CarrierMatch")
	}
}

func TestElaborateMatchDischargedScrutineeNotGuarded(t *testing.T) {
	typeDecls := []core.TypeDeclaration{{Name: "Result", Infectious: true}}
	scrutinee := &core.Var{Base: core.Base{Typ: resultType(types.Int)}, Name: "r"}
	m := &core.Match{
		Base:      core.Base{Typ: types.Int},
		Scrutinee: scrutinee,
		Cases: []core.Case{
			{Pattern: &core.WildcardPattern{}, Body: &core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 0}},
		},
		Coverage: &core.MatchCoverage{Discharges: true},
	}
	el := New(typeDecls, []core.ValueBinding{{Name: "top", Value: m}})
	out := el.transform(m)
	if _, ok := out.(*core.CarrierMatch); ok {
		t.Fatalf("expected discharged match's scrutinee to stay unguarded")
	}
	if _, ok := out.(*core.Match); !ok {
		t.Fatalf("expected *core.Match, got %T", out)
	}
}

func TestFreshNameAvoidsCollidingBinder(t *testing.T) {
	typeDecls := []core.TypeDeclaration{{Name: "Result", Infectious: true}}
	values := []core.ValueBinding{{Name: "__carrier_1", Value: &core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt}}}
	el := New(typeDecls, values)
	if el.freshName() == "__carrier_1" {
		t.Fatalf("expected freshName to skip a name already used in the module")
	}
}
