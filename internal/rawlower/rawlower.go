// Package rawlower implements raw-type lowering (spec.md §4.7, C3d): a
// small normalizing pass for raw modules that ensures every Ptr<T, S> and
// ManyPtr<T, S> carries an effect row as its state argument, replacing
// anything else there with the empty row. Grounded on internal/mono's
// structural type recursion (the two passes share the same "walk every
// type shape, recurse into Core expressions that carry a Type" style).
package rawlower

import "github.com/sunholo/wyrm/internal/types"

var emptyRow = &types.EffectRow{}

// LowerType recursively normalizes t, replacing a non-row state argument of
// Ptr/ManyPtr with the empty row.
func LowerType(t types.Type) types.Type {
	switch v := t.(type) {
	case *types.TCon:
		if (v.Name == "Ptr" || v.Name == "ManyPtr") && len(v.Args) == 2 {
			state := v.Args[1]
			if _, ok := state.(*types.EffectRow); !ok {
				state = emptyRow
			} else {
				state = LowerType(state)
			}
			return &types.TCon{Name: v.Name, Args: []types.Type{LowerType(v.Args[0]), state}}
		}
		args := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = LowerType(a)
		}
		return &types.TCon{Name: v.Name, Args: args}
	case *types.TFunc:
		return &types.TFunc{From: LowerType(v.From), To: LowerType(v.To)}
	case *types.TTuple:
		elems := make([]types.Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = LowerType(e)
		}
		return &types.TTuple{Elems: elems}
	case *types.TArray:
		return &types.TArray{Elem: LowerType(v.Elem)}
	case *types.TRecord:
		fields := make([]types.RecordField, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = types.RecordField{Name: f.Name, Type: LowerType(f.Type)}
		}
		var tail types.Type
		if v.Tail != nil {
			tail = LowerType(v.Tail)
		}
		return &types.TRecord{Fields: fields, Tail: tail}
	case *types.EffectRow:
		labels := make(map[string]types.Type, len(v.Labels))
		for k, p := range v.Labels {
			if p != nil {
				labels[k] = LowerType(p)
			} else {
				labels[k] = nil
			}
		}
		var tail types.Type
		if v.Tail != nil {
			tail = LowerType(v.Tail)
		}
		return &types.EffectRow{Labels: labels, Tail: tail}
	default:
		return t
	}
}
