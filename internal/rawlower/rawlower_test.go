package rawlower

import (
	"testing"

	"github.com/sunholo/wyrm/internal/types"
)

func TestLowerTypeNormalizesNonRowPtrState(t *testing.T) {
	ptr := &types.TCon{Name: "Ptr", Args: []types.Type{types.Int, types.Unit}}
	out := LowerType(ptr)
	tc := out.(*types.TCon)
	row, ok := tc.Args[1].(*types.EffectRow)
	if !ok || len(row.Labels) != 0 {
		t.Fatalf("expected empty effect row state, got %#v", tc.Args[1])
	}
}

func TestLowerTypePreservesExistingRow(t *testing.T) {
	row := &types.EffectRow{Labels: map[string]types.Type{"io": nil}}
	ptr := &types.TCon{Name: "ManyPtr", Args: []types.Type{types.Int, row}}
	out := LowerType(ptr)
	tc := out.(*types.TCon)
	got := tc.Args[1].(*types.EffectRow)
	if !got.HasLabel("io") {
		t.Fatalf("expected existing row's io label preserved, got %#v", got)
	}
}

func TestLowerTypeRecursesThroughOtherShapes(t *testing.T) {
	tup := &types.TTuple{Elems: []types.Type{&types.TCon{Name: "Ptr", Args: []types.Type{types.Int, types.Unit}}}}
	out := LowerType(tup).(*types.TTuple)
	inner := out.Elems[0].(*types.TCon)
	if _, ok := inner.Args[1].(*types.EffectRow); !ok {
		t.Fatalf("expected nested Ptr state normalized through tuple recursion")
	}
}
