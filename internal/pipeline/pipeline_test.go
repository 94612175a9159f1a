package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/mono"
	"github.com/sunholo/wyrm/internal/types"
	"github.com/sunholo/wyrm/internal/wsurface"
)

func TestCompileModuleLowersLiteralBinding(t *testing.T) {
	prog := &wsurface.Program{
		File: &wsurface.File{
			Statements: []wsurface.Node{
				&wsurface.Literal{Kind: wsurface.IntLit, Value: 1, Pos: wsurface.Pos{Id: 1}},
			},
		},
	}
	unit, err := CompileModule("main", prog, Options{})
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	if unit.Core == nil || len(unit.Core.Values) != 1 {
		t.Fatalf("expected one lowered value binding, got %#v", unit.Core)
	}
}

// TestMonomorphizeGraphDropsGenericAndRewritesDataTypeName wires
// Collect -> Localize -> Declare/drop-generics -> Rewriter end to end over a
// small graph: a shared "lib" module declares a generic List<T>, and a
// raw-mode "main" module constructs both a List<Int> and a List<Bool>.
// Pins spec.md §8 invariant #6: after monomorphization, no Data expression's
// TypeName is bound to a declaration with non-empty TypeParams.
func TestMonomorphizeGraphDropsGenericAndRewritesDataTypeName(t *testing.T) {
	intArg := []types.Type{types.Int}
	boolArg := []types.Type{types.Bool}

	lib := &core.Module{
		Path: "lib",
		TypeDeclarations: []core.TypeDeclaration{
			{
				Name:       "List",
				TypeParams: []int{1},
				Exported:   true,
				Info: &types.TypeInfo{
					Parameters: []int{1},
					Constructors: []types.ConstructorInfo{
						{Name: "Box", Arity: 1, Scheme: &types.TypeScheme{Type: &types.TVar{ID: 1}}},
					},
				},
			},
		},
	}
	main := &core.Module{
		Path:    "main",
		Mode:    "raw",
		Imports: []string{"lib"},
		Values: []core.ValueBinding{
			{Name: "xs", Value: &core.Data{
				Base:     core.Base{Typ: &types.TCon{Name: "List", Args: intArg}},
				TypeName: "List",
				Ctor:     "Box",
				Fields:   []core.Expr{&core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 1}},
			}},
			{Name: "ys", Value: &core.Data{
				Base:     core.Base{Typ: &types.TCon{Name: "List", Args: boolArg}},
				TypeName: "List",
				Ctor:     "Box",
				Fields:   []core.Expr{&core.Literal{Base: core.Base{Typ: types.Bool}, Kind: types.PBool, Value: true}},
			}},
		},
	}
	g := &core.ModuleGraph{
		Entry:   "main",
		Order:   []string{"lib", "main"},
		Modules: map[string]*core.Module{"lib": lib, "main": main},
	}

	if err := MonomorphizeGraph(g); err != nil {
		t.Fatalf("MonomorphizeGraph: %v", err)
	}

	genericWithParams := map[string]bool{}
	byName := map[string]core.TypeDeclaration{}
	for _, td := range lib.TypeDeclarations {
		byName[td.Name] = td
		if len(td.TypeParams) > 0 {
			genericWithParams[td.Name] = true
		}
	}
	if genericWithParams["List"] {
		t.Fatalf("expected the generic List declaration to be dropped, got %#v", lib.TypeDeclarations)
	}

	wantInt := mono.Mangle("List", intArg)
	wantBool := mono.Mangle("List", boolArg)
	for _, want := range []string{wantInt, wantBool} {
		td, ok := byName[want]
		if !ok {
			t.Fatalf("expected a monomorphized declaration named %s, got %#v", want, lib.TypeDeclarations)
		}
		if len(td.TypeParams) != 0 {
			t.Fatalf("expected %s to have no type parameters, got %#v", want, td.TypeParams)
		}
		if !td.Monomorphized {
			t.Fatalf("expected %s to be flagged Monomorphized", want)
		}
	}

	xs := main.Values[0].Value.(*core.Data)
	if xs.TypeName != wantInt {
		t.Fatalf("expected xs's TypeName rewritten to %s, got %s", wantInt, xs.TypeName)
	}
	ys := main.Values[1].Value.(*core.Data)
	if ys.TypeName != wantBool {
		t.Fatalf("expected ys's TypeName rewritten to %s, got %s", wantBool, ys.TypeName)
	}

	// Invariant #6: no Data expression's typeName is bound to a declaration
	// with non-empty typeParams.
	for _, vb := range main.Values {
		data := vb.Value.(*core.Data)
		if genericWithParams[data.TypeName] {
			t.Fatalf("invariant #6 violated: %s's typeName %s still names a generic declaration", vb.Name, data.TypeName)
		}
	}
}

func TestLoadManifestDefaultsExtByBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wyrmc.yaml")
	if err := os.WriteFile(path, []byte("entry: src/main.wm\nbackend: raw\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Ext != "zig" {
		t.Fatalf("expected raw backend to default ext to zig, got %s", m.Ext)
	}
	if m.OutDir != "dist" {
		t.Fatalf("expected default outDir 'dist', got %s", m.OutDir)
	}
}

func TestLoadManifestRejectsMissingEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wyrmc.yaml")
	if err := os.WriteFile(path, []byte("backend: raw\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, err := LoadManifest(path); err == nil {
		t.Fatalf("expected an error for a manifest missing 'entry'")
	}
}
