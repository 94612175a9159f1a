package wloader

import "testing"

func TestTopoSortOrdersLeavesFirst(t *testing.T) {
	nodes := map[string]*ModuleNode{
		"main":    {Path: "main", Imports: []Import{{SourcePath: "lib"}}},
		"lib":     {Path: "lib", Imports: []Import{{SourcePath: "prelude"}}},
		"prelude": {Path: "prelude"},
	}
	order, err := TopoSort(nodes, "main")
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	pos := map[string]int{}
	for i, p := range order {
		pos[p] = i
	}
	if pos["prelude"] > pos["lib"] || pos["lib"] > pos["main"] {
		t.Fatalf("expected leaves-first order, got %v", order)
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	nodes := map[string]*ModuleNode{
		"a": {Path: "a", Imports: []Import{{SourcePath: "b"}}},
		"b": {Path: "b", Imports: []Import{{SourcePath: "a"}}},
	}
	if _, err := TopoSort(nodes, "a"); err == nil {
		t.Fatalf("expected a cycle error")
	}
}

func TestTransitiveDeps(t *testing.T) {
	nodes := map[string]*ModuleNode{
		"main":    {Path: "main", Imports: []Import{{SourcePath: "std/core/base"}}},
		"prelude": {Path: "prelude", Imports: []Import{{SourcePath: "std/core/base"}}},
		"std/core/base": {Path: "std/core/base"},
	}
	deps := TransitiveDeps(nodes, "prelude")
	if !deps["std/core/base"] {
		t.Fatalf("expected std/core/base to be a transitive dependency of prelude")
	}
	if deps["main"] {
		t.Fatalf("did not expect main to be a transitive dependency of prelude")
	}
}
