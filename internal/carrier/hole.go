package carrier

import "github.com/sunholo/wyrm/internal/types"

// DomainHole is the registration name of the built-in "unknown type" carrier.
// Every Hole<value, row> produced by types.UnknownType recognizes here, so
// that passes which blindly go through the carrier registry (mono, elaborate)
// treat holes the same way they treat any other infectious carrier, instead
// of needing a special case.
const DomainHole = "hole"

func init() {
	Register(DomainHole, Ops{
		Is: types.IsHole,
		Split: func(t types.Type) (value, state types.Type, ok bool) {
			tc, ok := t.(*types.TCon)
			if !ok || !types.IsHole(tc) {
				return nil, nil, false
			}
			return tc.Args[0], tc.Args[1], true
		},
		Join: func(value, state types.Type) types.Type {
			return &types.TCon{Name: types.HoleConName, Args: []types.Type{value, state}}
		},
		Collapse: func(t types.Type) types.Type {
			ops, _ := lookup(DomainHole, t)
			return genericCollapse(DomainHole, t, ops)
		},
		UnionStates: func(s1, s2 types.Type) (types.Type, error) {
			return RowUnion(s1, s2), nil
		},
		Metadata: &Metadata{
			ValueConstructor:   "",
			EffectConstructors: nil,
		},
	})
}
