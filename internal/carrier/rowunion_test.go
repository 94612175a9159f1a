package carrier

import (
	"testing"

	"github.com/sunholo/wyrm/internal/types"
)

func TestRowUnionPrefersLeftPayload(t *testing.T) {
	a := &types.EffectRow{Labels: map[string]types.Type{"DivByZero": types.Int}}
	b := &types.EffectRow{Labels: map[string]types.Type{"DivByZero": types.Bool}}

	u := RowUnion(a, b)
	if got := u.Labels["DivByZero"]; !got.Equals(types.Int) {
		t.Fatalf("expected left payload Int to win, got %s", got)
	}
}

func TestRowUnionMergesDisjointLabels(t *testing.T) {
	a := &types.EffectRow{Labels: map[string]types.Type{"DivByZero": nil}}
	b := &types.EffectRow{Labels: map[string]types.Type{"Overflow": nil}}

	u := RowUnion(a, b)
	if !u.HasLabel("DivByZero") || !u.HasLabel("Overflow") {
		t.Fatalf("expected both labels present, got %s", u)
	}
}

func TestRowUnionIsIdempotent(t *testing.T) {
	a := &types.EffectRow{Labels: map[string]types.Type{"DivByZero": nil}}
	once := RowUnion(a, a)
	twice := RowUnion(once, a)
	if len(once.Labels) != len(twice.Labels) {
		t.Fatalf("expected idempotent union, got %s then %s", once, twice)
	}
}

func TestRowUnionKeepsConcreteTailOverVariable(t *testing.T) {
	v := &types.TVar{ID: 1}
	concrete := &types.TCon{Name: "Closed"}
	a := &types.EffectRow{Labels: map[string]types.Type{}, Tail: v}
	b := &types.EffectRow{Labels: map[string]types.Type{}, Tail: concrete}

	u := RowUnion(a, b)
	if !u.Tail.Equals(concrete) {
		t.Fatalf("expected concrete tail to win over a bare variable, got %v", u.Tail)
	}
}

func TestRowUnionFlattensNestedRowTail(t *testing.T) {
	inner := &types.EffectRow{Labels: map[string]types.Type{"Inner": nil}}
	outer := &types.EffectRow{Labels: map[string]types.Type{"Outer": nil}, Tail: inner}

	u := RowUnion(outer, &types.EffectRow{Labels: map[string]types.Type{}})
	if !u.HasLabel("Inner") || !u.HasLabel("Outer") {
		t.Fatalf("expected nested row tail to be flattened into the union, got %s", u)
	}
}
