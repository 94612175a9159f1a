package carrier

import (
	"testing"

	"github.com/sunholo/wyrm/internal/types"
)

func TestHoleDomainRegisteredAtInit(t *testing.T) {
	g := types.NewVarGen()
	h := types.UnknownType(map[string]interface{}{"reason": "test"}, g)

	if !IsCarrierType(h) {
		t.Fatalf("expected Hole to be recognized as a carrier type")
	}
	domain, ok := FindDomain(h)
	if !ok || domain != DomainHole {
		t.Fatalf("expected domain %q, got %q (ok=%v)", DomainHole, domain, ok)
	}
}

func TestSplitAndJoinRoundTripHole(t *testing.T) {
	g := types.NewVarGen()
	h := types.UnknownType(map[string]interface{}{"reason": "test"}, g)

	value, state, domain, ok := Split(h)
	if !ok {
		t.Fatalf("expected split to succeed on a hole")
	}
	rejoined, err := Join(domain, value, state)
	if err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	if !rejoined.Equals(h) {
		t.Fatalf("split/join did not round-trip: got %s want %s", rejoined, h)
	}
}

func TestCollapseMergesNestedHoles(t *testing.T) {
	g := types.NewVarGen()
	v := g.Fresh()
	innerRow := &types.EffectRow{Labels: map[string]types.Type{"hole:a": nil}}
	outerRow := &types.EffectRow{Labels: map[string]types.Type{"hole:b": nil}}
	inner := &types.TCon{Name: types.HoleConName, Args: []types.Type{v, innerRow}}
	outer := &types.TCon{Name: types.HoleConName, Args: []types.Type{inner, outerRow}}

	collapsed := Collapse(outer)
	tc, ok := collapsed.(*types.TCon)
	if !ok || tc.Name != types.HoleConName {
		t.Fatalf("expected collapsed result to still be a Hole, got %s", collapsed)
	}
	if tc.Args[0] != types.Type(v) {
		t.Fatalf("expected collapse to unwrap to the innermost value, got %s", tc.Args[0])
	}
	row, ok := tc.Args[1].(*types.EffectRow)
	if !ok {
		t.Fatalf("expected merged state to still be a row, got %T", tc.Args[1])
	}
	if !row.HasLabel("hole:a") || !row.HasLabel("hole:b") {
		t.Fatalf("expected collapse to union both rows' labels, got %s", row)
	}
}

func TestUnionStatesDelegatesToRowUnion(t *testing.T) {
	s1 := &types.EffectRow{Labels: map[string]types.Type{"A": nil}}
	s2 := &types.EffectRow{Labels: map[string]types.Type{"B": nil}}
	merged, err := UnionStates(DomainHole, s1, s2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := merged.(*types.EffectRow)
	if !row.HasLabel("A") || !row.HasLabel("B") {
		t.Fatalf("expected merged row to carry both labels, got %s", row)
	}
}

func TestUnionStatesUnknownDomainErrors(t *testing.T) {
	if _, err := UnionStates("no-such-domain", &types.EffectRow{}, &types.EffectRow{}); err == nil {
		t.Fatalf("expected an error for an unregistered domain")
	}
}
