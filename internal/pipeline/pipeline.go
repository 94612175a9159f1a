// Package pipeline orchestrates one compilation: surface program ->
// marked & type-resolved -> Core IR -> carrier-elaborated per module, then
// (raw mode, graph-wide) monomorphized -> raw-type-lowered -> emitted
// (spec.md §4.11). Monomorphization collects instantiations across every
// module before any one module can be rewritten, so it runs over the whole
// graph via MonomorphizeGraph, not inside CompileModule. Grounded on the
// teacher's internal/pipeline.CompileUnit (one struct per module carrying
// its surface AST, Core form, and interface through the stages) generalized
// to the carrier-discipline pipeline this design adds.
package pipeline

import (
	"fmt"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/diag"
	"github.com/sunholo/wyrm/internal/elaborate"
	"github.com/sunholo/wyrm/internal/errors"
	"github.com/sunholo/wyrm/internal/infer"
	"github.com/sunholo/wyrm/internal/lower"
	"github.com/sunholo/wyrm/internal/mono"
	"github.com/sunholo/wyrm/internal/rawlower"
	"github.com/sunholo/wyrm/internal/types"
	"github.com/sunholo/wyrm/internal/wloader"
	"github.com/sunholo/wyrm/internal/wsurface"
)

// CompileUnit carries one module's state through every pipeline stage
// (spec.md §4.11's state machine). Stage fields are nil until that stage
// has run.
type CompileUnit struct {
	Path    string
	Surface *wsurface.Program
	Infer   *diag.Result
	Core    *core.Module
	Mode    string // "runtime" or "raw"
}

// Options configures one compilation run.
type Options struct {
	Mode      string // "runtime" (default) or "raw"
	EntryEnv  types.TypeEnv
	Instances []core.TypeDeclaration // shared type declarations for monomorphization localization
}

// CompileModule runs one module's surface program through inference,
// lowering, and carrier elaboration. It stops short of monomorphization and
// raw-type lowering: both are graph-wide passes (spec.md §4.6, §4.7) that
// need every module's Core IR assembled first, and run afterward via
// MonomorphizeGraph and RawLowerModule.
func CompileModule(path string, prog *wsurface.Program, opts Options) (*CompileUnit, error) {
	unit := &CompileUnit{Path: path, Surface: prog, Mode: opts.Mode}
	if unit.Mode == "" {
		unit.Mode = "runtime"
	}

	env := opts.EntryEnv
	if env == nil {
		env = types.NewTypeEnv()
	}
	result := infer.New().Run(prog, env)
	unit.Infer = result

	lowerer := lower.New(result.ResolvedNodeTypes, result.Matches, nil)
	values, err := lowerer.LowerProgramToValues(prog)
	if err != nil {
		return nil, errors.WrapReport(&errors.Report{
			Schema:  "wyrmc.error/v1",
			Code:    errors.LWR001,
			Phase:   "lower",
			Message: err.Error(),
		})
	}

	mod := &core.Module{Path: path, Mode: unit.Mode, Values: values}

	el := elaborate.New(mod.TypeDeclarations, mod.Values)
	el.ElaborateModule(mod)

	unit.Core = mod
	return unit, nil
}

// rawlowerExpr normalizes every Ptr/ManyPtr state argument reachable from
// e's type annotations to an effect row (spec.md §4.7), recursing into
// every child expression; the expression's shape is otherwise unchanged.
func rawlowerExpr(e core.Expr) core.Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *core.Literal:
		n.Typ = rawlower.LowerType(n.Typ)
	case *core.Var:
		n.Typ = rawlower.LowerType(n.Typ)
	case *core.Tuple:
		n.Typ = rawlower.LowerType(n.Typ)
		for i := range n.Elems {
			n.Elems[i] = rawlowerExpr(n.Elems[i])
		}
	case *core.Record:
		n.Typ = rawlower.LowerType(n.Typ)
		for i := range n.Fields {
			n.Fields[i].Value = rawlowerExpr(n.Fields[i].Value)
		}
	case *core.TupleGet:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Target = rawlowerExpr(n.Target)
	case *core.RecordGet:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Target = rawlowerExpr(n.Target)
	case *core.Data:
		n.Typ = rawlower.LowerType(n.Typ)
		for i := range n.Fields {
			n.Fields[i] = rawlowerExpr(n.Fields[i])
		}
	case *core.EnumLiteral:
		n.Typ = rawlower.LowerType(n.Typ)
	case *core.Lambda:
		n.Typ = rawlower.LowerType(n.Typ)
		for i := range n.Params {
			n.Params[i].Typ = rawlower.LowerType(n.Params[i].Typ)
		}
		n.Body = rawlowerExpr(n.Body)
	case *core.Call:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Callee = rawlowerExpr(n.Callee)
		for i := range n.Args {
			n.Args[i] = rawlowerExpr(n.Args[i])
		}
	case *core.Let:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Binding.Value = rawlowerExpr(n.Binding.Value)
		n.Body = rawlowerExpr(n.Body)
	case *core.LetRec:
		n.Typ = rawlower.LowerType(n.Typ)
		for i := range n.Bindings {
			n.Bindings[i].Value = rawlowerExpr(n.Bindings[i].Value)
		}
		n.Body = rawlowerExpr(n.Body)
	case *core.If:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Cond = rawlowerExpr(n.Cond)
		n.Then = rawlowerExpr(n.Then)
		n.Else = rawlowerExpr(n.Else)
	case *core.Prim:
		n.Typ = rawlower.LowerType(n.Typ)
		for i := range n.Args {
			n.Args[i] = rawlowerExpr(n.Args[i])
		}
	case *core.Match:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Scrutinee = rawlowerExpr(n.Scrutinee)
		for i := range n.Cases {
			n.Cases[i].Body = rawlowerExpr(n.Cases[i].Body)
		}
		if n.Fallback != nil {
			n.Fallback = rawlowerExpr(n.Fallback)
		}
	case *core.CarrierMatch:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Scrutinee = rawlowerExpr(n.Scrutinee)
		for i := range n.Cases {
			n.Cases[i].Body = rawlowerExpr(n.Cases[i].Body)
		}
		if n.Fallback != nil {
			n.Fallback = rawlowerExpr(n.Fallback)
		}
	case *core.CarrierWrap:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Inner = rawlowerExpr(n.Inner)
		n.State = rawlowerExpr(n.State)
	case *core.CarrierUnwrap:
		n.Typ = rawlower.LowerType(n.Typ)
		n.Target = rawlowerExpr(n.Target)
	case *core.Coerce:
		n.From = rawlower.LowerType(n.From)
		n.To = rawlower.LowerType(n.To)
		n.Inner = rawlowerExpr(n.Inner)
	}
	return e
}

// RawLowerModule applies raw-type lowering (spec.md §4.7) to every value of
// mod in place. Called once per raw-mode module, after MonomorphizeGraph has
// rewritten the graph, and before that module reaches internal/emit/raw.
func RawLowerModule(mod *core.Module) {
	for i, vb := range mod.Values {
		mod.Values[i].Value = rawlowerExpr(vb.Value)
	}
}

// BuildModuleGraph assembles every compiled unit's Core module into a
// core.ModuleGraph in the given leaves-first order, ready for
// MonomorphizeGraph and internal/emit/*.
func BuildModuleGraph(units map[string]*CompileUnit, order []string, entry string) *core.ModuleGraph {
	modules := make(map[string]*core.Module, len(units))
	for path, u := range units {
		modules[path] = u.Core
	}
	return &core.ModuleGraph{Entry: entry, Order: order, Modules: modules}
}

// monomorphizes reports whether mod participates in monomorphization: raw
// mode, or a module explicitly flagged Core (spec.md §4.6 "applies only to
// modules in raw mode," plus the entry's `core` escape hatch).
func monomorphizes(mod *core.Module) bool {
	return mod != nil && (mod.Mode == "raw" || mod.Core)
}

// CollectMonomorphization walks every raw-mode (or core-flagged) module's
// Core IR and returns the full-graph Collector, ready for
// Localize/Instantiations. Runtime-mode modules are skipped: spec.md §4.6
// scopes monomorphization to raw-mode compilation.
func CollectMonomorphization(g *core.ModuleGraph) *mono.Collector {
	c := mono.NewCollector(g.Modules)
	for _, path := range g.Order {
		if mod := g.Modules[path]; monomorphizes(mod) {
			c.Collect(path, mod)
		}
	}
	return c
}

// moduleImportedTypeNames computes, for every module, the set of type names
// it can name through its imports — the union of every imported module's
// declared type names. Localize uses this to decide whether a using module
// can name an instantiation's argument type that its declaring module
// cannot.
func moduleImportedTypeNames(modules map[string]*core.Module) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(modules))
	for path, m := range modules {
		names := map[string]bool{}
		for _, imp := range m.Imports {
			dep, ok := modules[imp]
			if !ok {
				continue
			}
			for _, td := range dep.TypeDeclarations {
				names[td.Name] = true
			}
		}
		out[path] = names
	}
	return out
}

// findTypeDecl looks up name's generic declaration within m.
func findTypeDecl(m *core.Module, name string) (core.TypeDeclaration, bool) {
	for _, td := range m.TypeDeclarations {
		if td.Name == name {
			return td, true
		}
	}
	return core.TypeDeclaration{}, false
}

// MonomorphizeGraph runs spec.md §4.6's full monomorphization pass over g in
// place: collect every generic ADT instantiation reachable from a raw-mode
// (or core-flagged) module, localize each to its declaring or using module,
// declare its zero-arg specialization, drop the generic declaration it
// specialized, and rewrite every raw-mode/core-flagged module's expressions
// and patterns to reference the specializations instead. Call this once the
// whole graph's units are compiled, before RawLowerModule and before
// internal/emit/raw sees any module (raw.go's own doc comment assumes its
// input "has already been monomorphized").
func MonomorphizeGraph(g *core.ModuleGraph) error {
	c := CollectMonomorphization(g)
	c.Localize(moduleImportedTypeNames(g.Modules))
	insts := c.Instantiations()
	if len(insts) == 0 {
		return nil
	}
	rewriter := mono.NewRewriter(insts)

	declared := map[string][]core.TypeDeclaration{}
	specialized := map[string]map[string]bool{}

	for _, inst := range insts {
		declMod, ok := g.Modules[inst.DeclModulePath]
		if !ok {
			return errors.WrapReport(&errors.Report{
				Schema:  errors.SchemaErrorV1,
				Code:    errors.MONO001,
				Phase:   "mono",
				Message: fmt.Sprintf("instantiation %s: no such declaring module %q", inst.NewName, inst.DeclModulePath),
			})
		}
		generic, ok := findTypeDecl(declMod, inst.TypeName)
		if !ok {
			return errors.WrapReport(&errors.Report{
				Schema:  errors.SchemaErrorV1,
				Code:    errors.MONO001,
				Phase:   "mono",
				Message: fmt.Sprintf("instantiation %s: module %q declares no generic type %q", inst.NewName, inst.DeclModulePath, inst.TypeName),
			})
		}

		emitPath := inst.EmitModulePath
		if emitPath == "" {
			emitPath = inst.DeclModulePath
		}
		declared[emitPath] = append(declared[emitPath], mono.Declare(inst, generic, rewriter))

		if specialized[inst.DeclModulePath] == nil {
			specialized[inst.DeclModulePath] = map[string]bool{}
		}
		specialized[inst.DeclModulePath][inst.TypeName] = true
	}

	for path, names := range specialized {
		mod := g.Modules[path]
		kept := make([]core.TypeDeclaration, 0, len(mod.TypeDeclarations))
		for _, td := range mod.TypeDeclarations {
			if names[td.Name] && len(td.TypeParams) > 0 {
				continue
			}
			kept = append(kept, td)
		}
		mod.TypeDeclarations = kept
	}
	for path, decls := range declared {
		mod := g.Modules[path]
		mod.TypeDeclarations = append(mod.TypeDeclarations, decls...)
	}

	for _, path := range g.Order {
		mod := g.Modules[path]
		if !monomorphizes(mod) {
			continue
		}
		for i := range mod.Values {
			mod.Values[i].Value = rewriter.RewriteExpr(mod.Values[i].Value)
		}
	}
	return nil
}

// ResolveOrder computes the leaves-first module order from a surface
// module graph, delegating to internal/wloader.TopoSort.
func ResolveOrder(nodes map[string]*wloader.ModuleNode, entry string) ([]string, error) {
	return wloader.TopoSort(nodes, entry)
}
