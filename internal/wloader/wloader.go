// Package wloader defines the inbound module-graph shape (spec.md §6):
// ModuleNode, Import, and ModuleGraph. Scanning the filesystem to build one
// is the external loader's job and out of scope here; this package only
// fixes the shape C3/C4 consume, plus the topological ordering helper the
// (external) loader is expected to have already run — grounded on the
// teacher's internal/link/topo.go (DFS with cycle detection) and
// internal/module.Module (per-module import/export bookkeeping).
package wloader

import (
	"fmt"

	"github.com/sunholo/wyrm/internal/wsurface"
)

// Import is one import edge from a module, resolved to a canonical source
// path plus the specifiers it names.
type Import struct {
	SourcePath string
	Specifiers []string
}

// ModuleNode is one compilation unit as the loader hands it to the core.
type ModuleNode struct {
	Path              string
	Source            string
	Program           *wsurface.Program
	Imports           []Import
	Reexports         []string
	ExportedValueNames []string
	ExportedTypeNames []string
}

// ModuleGraph is the external loader's complete output for one compilation.
type ModuleGraph struct {
	Entry   string
	Order   []string // leaves-first topological order
	Nodes   map[string]*ModuleNode
	Prelude string // "" when no prelude module is designated
}

// CycleError reports an import cycle discovered while computing a
// leaves-first order.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle: %v", e.Cycle)
}

// TopoSort computes a leaves-first order over g.Nodes reachable from
// g.Entry, using a DFS with explicit cycle detection (grounded on the
// teacher's ModuleLinker.TopoSortFromRoot).
func TopoSort(nodes map[string]*ModuleNode, entry string) ([]string, error) {
	visited := make(map[string]bool)
	inPath := make(map[string]bool)
	var order []string
	var path []string

	var dfs func(p string) error
	dfs = func(p string) error {
		if visited[p] {
			return nil
		}
		if inPath[p] {
			cycle := append(append([]string{}, path...), p)
			return &CycleError{Cycle: cycle}
		}
		inPath[p] = true
		path = append(path, p)
		node, ok := nodes[p]
		if ok {
			for _, imp := range node.Imports {
				if err := dfs(imp.SourcePath); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		inPath[p] = false
		visited[p] = true
		order = append(order, p)
		return nil
	}

	if err := dfs(entry); err != nil {
		return nil, err
	}
	return order, nil
}

// TransitiveDeps computes the set of module paths reachable from root via
// import edges (used by emit/graph to decide prelude-injection eligibility
// per spec.md §4.8 step 4 / §8 scenario S6).
func TransitiveDeps(nodes map[string]*ModuleNode, root string) map[string]bool {
	out := map[string]bool{}
	var visit func(p string)
	visit = func(p string) {
		node, ok := nodes[p]
		if !ok {
			return
		}
		for _, imp := range node.Imports {
			if out[imp.SourcePath] {
				continue
			}
			out[imp.SourcePath] = true
			visit(imp.SourcePath)
		}
	}
	visit(root)
	return out
}
