package mono

import (
	"testing"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/types"
)

func TestMangleSqueezesNonIdentChars(t *testing.T) {
	got := Mangle("List", []types.Type{types.Int})
	if got != "List__Int" {
		t.Fatalf("expected List__Int, got %s", got)
	}
}

// TestCollectTwoInstantiations mirrors scenario S3: a module using List<Int>
// and List<Bool> produces two distinct instantiations.
func TestCollectTwoInstantiations(t *testing.T) {
	listInt := &types.TCon{Name: "List", Args: []types.Type{types.Int}}
	listBool := &types.TCon{Name: "List", Args: []types.Type{types.Bool}}
	mod := &core.Module{
		Path: "main",
		Values: []core.ValueBinding{
			{Name: "xs", Value: &core.Var{Base: core.Base{Typ: listInt}, Name: "xs"}},
			{Name: "ys", Value: &core.Var{Base: core.Base{Typ: listBool}, Name: "ys"}},
		},
	}
	c := NewCollector(map[string]*core.Module{"main": mod})
	c.Collect("main", mod)
	insts := c.Instantiations()
	if len(insts) != 2 {
		t.Fatalf("expected 2 instantiations, got %d: %#v", len(insts), insts)
	}
	names := map[string]bool{}
	for _, inst := range insts {
		names[inst.NewName] = true
	}
	if !names["List__Int"] || !names["List__Bool"] {
		t.Fatalf("expected List__Int and List__Bool, got %v", names)
	}
}

func TestSelfRecursionRewriteWrapsInPointer(t *testing.T) {
	field := &types.TCon{Name: "Node"}
	out := SelfRecursionRewrite(field, "Node", false)
	tc, ok := out.(*types.TCon)
	if !ok || tc.Name != "Ptr" {
		t.Fatalf("expected Ptr<Node, _>, got %#v", out)
	}
	if len(tc.Args) != 2 {
		t.Fatalf("expected 2 args on Ptr, got %d", len(tc.Args))
	}
}

func TestSelfRecursionRewriteSkipsUnderExistingPointer(t *testing.T) {
	field := &types.TCon{Name: "Ptr", Args: []types.Type{&types.TCon{Name: "Node"}, &types.EffectRow{}}}
	out := SelfRecursionRewrite(field, "Node", false)
	tc := out.(*types.TCon)
	inner := tc.Args[0].(*types.TCon)
	if inner.Name != "Node" {
		t.Fatalf("expected the already-pointed field to stay Node, got %s", inner.Name)
	}
}

func TestRewriteTypeReplacesGenericReference(t *testing.T) {
	listInt := &types.TCon{Name: "List", Args: []types.Type{types.Int}}
	inst := &Instantiation{TypeName: "List", Args: []types.Type{types.Int}, NewName: "List__Int"}
	r := NewRewriter([]*Instantiation{inst})
	out := r.RewriteType(listInt)
	tc, ok := out.(*types.TCon)
	if !ok || tc.Name != "List__Int" || len(tc.Args) != 0 {
		t.Fatalf("expected zero-arg List__Int, got %#v", out)
	}
}
