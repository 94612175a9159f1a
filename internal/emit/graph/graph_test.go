package graph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/types"
	"github.com/sunholo/wyrm/internal/wloader"
)

type fakeFS struct {
	files map[string][]byte
}

func newFakeFS() *fakeFS { return &fakeFS{files: map[string][]byte{}} }

func (f *fakeFS) WriteFile(path string, data []byte) error {
	f.files[path] = data
	return nil
}
func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return data, nil
}
func (f *fakeFS) MkdirAll(path string) error { return nil }

func TestEmitWritesOneFilePerModuleLeavesFirst(t *testing.T) {
	g := &core.ModuleGraph{
		Entry: "main",
		Order: []string{"lib", "main"},
		Modules: map[string]*core.Module{
			"lib": {
				Path: "lib",
				Values: []core.ValueBinding{
					{Name: "two", Exported: true, Value: &core.Literal{Base: core.Base{Typ: types.Int}, Kind: types.PInt, Value: 2}},
				},
			},
			"main": {
				Path: "main",
				Values: []core.ValueBinding{
					{Name: "main", Exported: true, Value: &core.Literal{Base: core.Base{Typ: types.Unit}, Kind: types.PUnit, Value: nil}},
				},
			},
		},
	}
	nodes := map[string]*wloader.ModuleNode{
		"lib":  {Path: "lib"},
		"main": {Path: "main", Imports: []wloader.Import{{SourcePath: "lib"}}},
	}
	fs := newFakeFS()
	res, err := Emit(g, nodes, Options{OutDir: "out", Ext: "js", FS: fs})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(res.OutputPaths) != 2 {
		t.Fatalf("expected 2 output paths, got %d", len(res.OutputPaths))
	}
	if _, ok := fs.files[res.OutputPaths["lib"]]; !ok {
		t.Fatalf("expected lib's output file to be written")
	}
	if _, ok := fs.files[res.OutputPaths["main"]]; !ok {
		t.Fatalf("expected main's output file to be written")
	}
}

func TestCommonRootComputesSharedPrefix(t *testing.T) {
	root := commonRoot([]string{"std/list", "std/core/base", "std/io"})
	if root != "std" {
		t.Fatalf("expected common root 'std', got %q", root)
	}
}

func TestModulePathsRebasesOutsideRoot(t *testing.T) {
	outPath, specifier := modulePaths("std", "out", "vendor/weird", "js")
	if specifier == "vendor/weird.js" {
		t.Fatalf("expected vendor/weird to be rebased under .wyrmc-cache/, got specifier %q", specifier)
	}
	if outPath == "" {
		t.Fatalf("expected a non-empty output path")
	}
}

// TestPreludeNotInjectedIntoItsOwnDependency pins scenario S6: a prelude
// that imports std/core/base must not have the prelude import injected
// into std/core/base's own output, even though unrelated modules do
// receive that injection (spec.md §8 S6, §4.8 bullet 4).
func TestPreludeNotInjectedIntoItsOwnDependency(t *testing.T) {
	unitVal := core.ValueBinding{Name: "x", Exported: true, Value: &core.Literal{Base: core.Base{Typ: types.Unit}, Kind: types.PUnit, Value: nil}}
	g := &core.ModuleGraph{
		Entry:   "main",
		Prelude: "std/prelude",
		Order:   []string{"std/core/base", "std/prelude", "other", "main"},
		Modules: map[string]*core.Module{
			"std/core/base": {Path: "std/core/base", Values: []core.ValueBinding{unitVal}},
			"std/prelude":   {Path: "std/prelude", Values: []core.ValueBinding{unitVal}},
			"other":         {Path: "other", Values: []core.ValueBinding{unitVal}},
			"main":          {Path: "main", Values: []core.ValueBinding{unitVal}},
		},
	}
	nodes := map[string]*wloader.ModuleNode{
		"std/core/base": {Path: "std/core/base"},
		"std/prelude":   {Path: "std/prelude", Imports: []wloader.Import{{SourcePath: "std/core/base"}}},
		"other":         {Path: "other"},
		"main":          {Path: "main", Imports: []wloader.Import{{SourcePath: "other"}}},
	}
	fs := newFakeFS()
	res, err := Emit(g, nodes, Options{OutDir: "out", Ext: "js", FS: fs})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	baseSrc := string(fs.files[res.OutputPaths["std/core/base"]])
	if strings.Contains(baseSrc, "__prelude") {
		t.Fatalf("expected no prelude injection into the prelude's own dependency, got:\n%s", baseSrc)
	}
	otherSrc := string(fs.files[res.OutputPaths["other"]])
	if !strings.Contains(otherSrc, "__prelude") {
		t.Fatalf("expected prelude injection into an unrelated module, got:\n%s", otherSrc)
	}
}
