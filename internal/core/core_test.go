package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sunholo/wyrm/internal/types"
)

func TestLetTreeTypeAccessors(t *testing.T) {
	let := &Let{
		Base:    Base{Typ: types.Int},
		Binding: Binding{Name: "x", Value: &Literal{Base: Base{Typ: types.Int}, Kind: types.PInt, Value: 1}},
		Body:    &Var{Base: Base{Typ: types.Int}, Name: "x"},
	}
	if !let.Type().Equals(types.Int) {
		t.Fatalf("expected Let's type to be Int, got %s", let.Type())
	}
}

func TestModuleGraphDeepEqual(t *testing.T) {
	a := &ModuleGraph{
		Entry: "main",
		Order: []string{"prelude", "main"},
		Modules: map[string]*Module{
			"main": {Path: "main", Mode: "runtime", Exports: []string{"main"}},
		},
	}
	b := &ModuleGraph{
		Entry: "main",
		Order: []string{"prelude", "main"},
		Modules: map[string]*Module{
			"main": {Path: "main", Mode: "runtime", Exports: []string{"main"}},
		},
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("module graphs differ (-want +got):\n%s", diff)
	}
}

func TestCarrierMatchCarriesFreshBindingCase(t *testing.T) {
	cm := &CarrierMatch{
		Base:        Base{Typ: types.Int},
		CarrierType: "Result",
		Scrutinee:   &Var{Base: Base{Typ: &types.TCon{Name: "Result", Args: []types.Type{types.Int, &types.EffectRow{}}}}, Name: "r"},
		Cases: []Case{
			{Pattern: &BindingPattern{PatternBase: PatternBase{Typ: types.Int}, Name: "__carrier_0"}, Body: &Var{Base: Base{Typ: types.Int}, Name: "__carrier_0"}},
		},
	}
	if len(cm.Cases) != 1 {
		t.Fatalf("expected exactly one case before elaboration rewrites it further")
	}
	if !cm.Type().Equals(types.Int) {
		t.Fatalf("expected CarrierMatch's type to be Int, got %s", cm.Type())
	}
}
