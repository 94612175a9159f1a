// Package mono implements monomorphization (spec.md §4.6, C3c): replacing
// every generic ADT use in a raw-mode module graph with a concrete,
// zero-type-parameter declaration. Grounded on the teacher's module-graph
// plumbing (internal/module/resolver.go, internal/link/topo.go's
// leaves-first ordering), generalized from "resolve imports" to "collect
// and place generic ADT instantiations across the graph."
package mono

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/types"
)

// Instantiation is one concrete use of a polymorphic ADT collected during
// the walk.
type Instantiation struct {
	TypeName       string
	Args           []types.Type
	DeclModulePath string
	EmitModulePath string
	NewName        string
	UsedIn         []string // module paths referencing this instantiation
}

var skipNames = map[string]bool{"Ptr": true, "ManyPtr": true, "Array": true}

var nonIdentChar = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Mangle produces <typeName>__<arg1>_<arg2>… with non-identifier characters
// squeezed to underscores, NFC-normalizing each argument fragment first so
// visually-identical unicode identifiers from different modules can't
// collide (spec.md §4.6's mangling Open Question; **[DOMAIN]**
// golang.org/x/text/unicode/norm).
func Mangle(typeName string, args []types.Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		frag := norm.NFC.String(a.String())
		parts[i] = nonIdentChar.ReplaceAllString(frag, "_")
	}
	if len(parts) == 0 {
		return typeName + "__"
	}
	return typeName + "__" + strings.Join(parts, "_")
}

// Collector walks a module graph, recording one Instantiation per distinct
// (typeName, args) pair and which declaring module owns it.
type Collector struct {
	declIndex map[string]string // type name -> declaring module path
	instances map[string]*Instantiation
	order     []string // insertion order, for deterministic emission
}

// NewCollector builds the declaration index (type name -> declaring module)
// from every module's type declarations.
func NewCollector(modules map[string]*core.Module) *Collector {
	c := &Collector{declIndex: map[string]string{}, instances: map[string]*Instantiation{}}
	for path, m := range modules {
		for _, td := range m.TypeDeclarations {
			c.declIndex[td.Name] = path
		}
	}
	return c
}

// Collect walks every value expression and type declaration of module,
// recording instantiations of polymorphic ADTs.
func (c *Collector) Collect(modulePath string, m *core.Module) {
	for _, v := range m.Values {
		c.walkExpr(modulePath, v.Value)
	}
	for _, td := range m.TypeDeclarations {
		if td.Info == nil {
			continue
		}
		for _, ctor := range td.Info.Constructors {
			if ctor.Scheme != nil {
				c.walkType(modulePath, ctor.Scheme.Type)
			}
		}
		if td.Info.Alias != nil {
			c.walkType(modulePath, td.Info.Alias)
		}
	}
}

func (c *Collector) walkType(modulePath string, t types.Type) {
	tc, ok := t.(*types.TCon)
	if !ok {
		for _, sub := range subtypes(t) {
			c.walkType(modulePath, sub)
		}
		return
	}
	if len(tc.Args) == 0 {
		return
	}
	for _, a := range tc.Args {
		c.walkType(modulePath, a)
	}
	if skipNames[tc.Name] {
		return
	}
	key := Mangle(tc.Name, tc.Args)
	inst, ok := c.instances[key]
	if !ok {
		declPath, known := c.declIndex[tc.Name]
		if !known {
			declPath = modulePath
		}
		inst = &Instantiation{
			TypeName:       tc.Name,
			Args:           tc.Args,
			DeclModulePath: declPath,
			NewName:        key,
		}
		c.instances[key] = inst
		c.order = append(c.order, key)
	}
	inst.UsedIn = appendUnique(inst.UsedIn, modulePath)
}

func subtypes(t types.Type) []types.Type {
	switch v := t.(type) {
	case *types.TFunc:
		return []types.Type{v.From, v.To}
	case *types.TTuple:
		return v.Elems
	case *types.TArray:
		return []types.Type{v.Elem}
	case *types.TRecord:
		out := make([]types.Type, 0, len(v.Fields))
		for _, f := range v.Fields {
			out = append(out, f.Type)
		}
		return out
	default:
		return nil
	}
}

func appendUnique(xs []string, x string) []string {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}

func (c *Collector) walkExpr(modulePath string, e core.Expr) {
	if e == nil {
		return
	}
	c.walkType(modulePath, e.Type())
	switch n := e.(type) {
	case *core.Tuple:
		for _, x := range n.Elems {
			c.walkExpr(modulePath, x)
		}
	case *core.Record:
		for _, f := range n.Fields {
			c.walkExpr(modulePath, f.Value)
		}
	case *core.Data:
		for _, f := range n.Fields {
			c.walkExpr(modulePath, f)
		}
	case *core.TupleGet:
		c.walkExpr(modulePath, n.Target)
	case *core.RecordGet:
		c.walkExpr(modulePath, n.Target)
	case *core.Lambda:
		c.walkExpr(modulePath, n.Body)
	case *core.Call:
		c.walkExpr(modulePath, n.Callee)
		for _, a := range n.Args {
			c.walkExpr(modulePath, a)
		}
	case *core.Let:
		c.walkExpr(modulePath, n.Binding.Value)
		c.walkExpr(modulePath, n.Body)
	case *core.LetRec:
		for _, b := range n.Bindings {
			c.walkExpr(modulePath, b.Value)
		}
		c.walkExpr(modulePath, n.Body)
	case *core.If:
		c.walkExpr(modulePath, n.Cond)
		c.walkExpr(modulePath, n.Then)
		c.walkExpr(modulePath, n.Else)
	case *core.Prim:
		for _, a := range n.Args {
			c.walkExpr(modulePath, a)
		}
	case *core.Match:
		c.walkExpr(modulePath, n.Scrutinee)
		for _, cs := range n.Cases {
			c.walkExpr(modulePath, cs.Body)
		}
	case *core.CarrierMatch:
		c.walkExpr(modulePath, n.Scrutinee)
		for _, cs := range n.Cases {
			c.walkExpr(modulePath, cs.Body)
		}
	case *core.CarrierWrap:
		c.walkExpr(modulePath, n.Inner)
	case *core.CarrierUnwrap:
		c.walkExpr(modulePath, n.Target)
	case *core.Coerce:
		c.walkExpr(modulePath, n.Inner)
	}
}

// Localize applies spec.md §4.6's localization rule: an instantiation moves
// from its declaring module to a using module when that using module can
// name an argument type the declaring module cannot (imports a type in the
// instantiation's args that the declaration module doesn't import, or an
// argument type has no declaration-index entry at all).
func (c *Collector) Localize(moduleImports map[string]map[string]bool) {
	for _, key := range c.order {
		inst := c.instances[key]
		for _, argType := range inst.Args {
			tc, ok := argType.(*types.TCon)
			if !ok {
				continue
			}
			_, inIndex := c.declIndex[tc.Name]
			for _, user := range inst.UsedIn {
				if user == inst.DeclModulePath {
					continue
				}
				userImports := moduleImports[user]
				declImports := moduleImports[inst.DeclModulePath]
				if !inIndex || (userImports[tc.Name] && !declImports[tc.Name]) {
					inst.EmitModulePath = user
				}
			}
		}
		if inst.EmitModulePath == "" {
			inst.EmitModulePath = inst.DeclModulePath
		}
	}
}

// Instantiations returns the collected instantiations in deterministic
// (first-seen) order.
func (c *Collector) Instantiations() []*Instantiation {
	out := make([]*Instantiation, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.instances[k])
	}
	return out
}

// Rewriter substitutes every reference to an instantiated generic
// constructor with its new zero-arg name, across types, patterns, and data
// expressions. Self-recursive fields are hoisted through a pointer
// separately, by SelfRecursionRewrite.
type Rewriter struct {
	byOriginal map[string]*Instantiation // Mangle-keyed, looked up by re-deriving the key at each TCon site
}

// monomorphizedName reports the zero-arg name t's instantiation was given,
// if t is a generic TCon this rewriter has an Instantiation for.
func (r *Rewriter) monomorphizedName(t types.Type) (string, bool) {
	tc, ok := t.(*types.TCon)
	if !ok || len(tc.Args) == 0 || skipNames[tc.Name] {
		return "", false
	}
	inst, ok := r.byOriginal[Mangle(tc.Name, tc.Args)]
	if !ok {
		return "", false
	}
	return inst.NewName, true
}

// NewRewriter indexes instantiations by their mangled key for rewrite-time
// lookup.
func NewRewriter(instances []*Instantiation) *Rewriter {
	r := &Rewriter{byOriginal: map[string]*Instantiation{}}
	for _, inst := range instances {
		r.byOriginal[Mangle(inst.TypeName, inst.Args)] = inst
	}
	return r
}

// RewriteType replaces every generic TCon reference with its monomorphized
// zero-arg TCon, recursing into structural type shapes.
func (r *Rewriter) RewriteType(t types.Type) types.Type {
	switch v := t.(type) {
	case *types.TCon:
		if len(v.Args) == 0 || skipNames[v.Name] {
			args := make([]types.Type, len(v.Args))
			for i, a := range v.Args {
				args[i] = r.RewriteType(a)
			}
			return &types.TCon{Name: v.Name, Args: args}
		}
		key := Mangle(v.Name, v.Args)
		if inst, ok := r.byOriginal[key]; ok {
			return &types.TCon{Name: inst.NewName}
		}
		return v
	case *types.TFunc:
		return &types.TFunc{From: r.RewriteType(v.From), To: r.RewriteType(v.To)}
	case *types.TTuple:
		elems := make([]types.Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = r.RewriteType(e)
		}
		return &types.TTuple{Elems: elems}
	case *types.TArray:
		return &types.TArray{Elem: r.RewriteType(v.Elem)}
	case *types.TRecord:
		fields := make([]types.RecordField, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = types.RecordField{Name: f.Name, Type: r.RewriteType(f.Type)}
		}
		return &types.TRecord{Fields: fields, Tail: v.Tail}
	default:
		return t
	}
}

// RewriteExpr replaces every generic data construction and type annotation
// reachable from e with its monomorphized form, recursing into every child
// expression (mirrors internal/pipeline's rawlowerExpr traversal, generalized
// to rewrite Data/EnumLiteral constructor names in addition to types).
func (r *Rewriter) RewriteExpr(e core.Expr) core.Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *core.Literal:
		n.Typ = r.RewriteType(n.Typ)
	case *core.Var:
		n.Typ = r.RewriteType(n.Typ)
	case *core.Tuple:
		n.Typ = r.RewriteType(n.Typ)
		for i := range n.Elems {
			n.Elems[i] = r.RewriteExpr(n.Elems[i])
		}
	case *core.Record:
		n.Typ = r.RewriteType(n.Typ)
		for i := range n.Fields {
			n.Fields[i].Value = r.RewriteExpr(n.Fields[i].Value)
		}
	case *core.TupleGet:
		n.Typ = r.RewriteType(n.Typ)
		n.Target = r.RewriteExpr(n.Target)
	case *core.RecordGet:
		n.Typ = r.RewriteType(n.Typ)
		n.Target = r.RewriteExpr(n.Target)
	case *core.Data:
		if name, ok := r.monomorphizedName(n.Typ); ok {
			n.TypeName = name
		}
		n.Typ = r.RewriteType(n.Typ)
		for i := range n.Fields {
			n.Fields[i] = r.RewriteExpr(n.Fields[i])
		}
	case *core.EnumLiteral:
		if name, ok := r.monomorphizedName(n.Typ); ok {
			n.TypeName = name
		}
		n.Typ = r.RewriteType(n.Typ)
	case *core.Lambda:
		n.Typ = r.RewriteType(n.Typ)
		for i := range n.Params {
			n.Params[i].Typ = r.RewriteType(n.Params[i].Typ)
		}
		n.Body = r.RewriteExpr(n.Body)
	case *core.Call:
		n.Typ = r.RewriteType(n.Typ)
		n.Callee = r.RewriteExpr(n.Callee)
		for i := range n.Args {
			n.Args[i] = r.RewriteExpr(n.Args[i])
		}
	case *core.Let:
		n.Typ = r.RewriteType(n.Typ)
		n.Binding.Value = r.RewriteExpr(n.Binding.Value)
		n.Body = r.RewriteExpr(n.Body)
	case *core.LetRec:
		n.Typ = r.RewriteType(n.Typ)
		for i := range n.Bindings {
			n.Bindings[i].Value = r.RewriteExpr(n.Bindings[i].Value)
		}
		n.Body = r.RewriteExpr(n.Body)
	case *core.If:
		n.Typ = r.RewriteType(n.Typ)
		n.Cond = r.RewriteExpr(n.Cond)
		n.Then = r.RewriteExpr(n.Then)
		n.Else = r.RewriteExpr(n.Else)
	case *core.Prim:
		n.Typ = r.RewriteType(n.Typ)
		for i := range n.Args {
			n.Args[i] = r.RewriteExpr(n.Args[i])
		}
	case *core.Match:
		n.Typ = r.RewriteType(n.Typ)
		n.Scrutinee = r.RewriteExpr(n.Scrutinee)
		for i := range n.Cases {
			n.Cases[i].Pattern = r.RewritePattern(n.Cases[i].Pattern)
			n.Cases[i].Guard = r.RewriteExpr(n.Cases[i].Guard)
			n.Cases[i].Body = r.RewriteExpr(n.Cases[i].Body)
		}
		if n.Fallback != nil {
			n.Fallback = r.RewriteExpr(n.Fallback)
		}
	case *core.CarrierMatch:
		n.Typ = r.RewriteType(n.Typ)
		n.Scrutinee = r.RewriteExpr(n.Scrutinee)
		for i := range n.Cases {
			n.Cases[i].Pattern = r.RewritePattern(n.Cases[i].Pattern)
			n.Cases[i].Guard = r.RewriteExpr(n.Cases[i].Guard)
			n.Cases[i].Body = r.RewriteExpr(n.Cases[i].Body)
		}
		if n.Fallback != nil {
			n.Fallback = r.RewriteExpr(n.Fallback)
		}
	case *core.CarrierWrap:
		n.Typ = r.RewriteType(n.Typ)
		n.Inner = r.RewriteExpr(n.Inner)
		n.State = r.RewriteExpr(n.State)
	case *core.CarrierUnwrap:
		n.Typ = r.RewriteType(n.Typ)
		n.Target = r.RewriteExpr(n.Target)
	case *core.Coerce:
		n.From = r.RewriteType(n.From)
		n.To = r.RewriteType(n.To)
		n.Inner = r.RewriteExpr(n.Inner)
	}
	return e
}

// RewritePattern applies the same substitution as RewriteExpr to a pattern,
// including a ConstructorPattern's TypeName when the matched type was
// monomorphized.
func (r *Rewriter) RewritePattern(p core.Pattern) core.Pattern {
	switch n := p.(type) {
	case nil:
		return nil
	case *core.WildcardPattern:
		n.Typ = r.RewriteType(n.Typ)
	case *core.BindingPattern:
		n.Typ = r.RewriteType(n.Typ)
	case *core.LiteralPattern:
		n.Typ = r.RewriteType(n.Typ)
	case *core.TuplePattern:
		n.Typ = r.RewriteType(n.Typ)
		for i := range n.Elems {
			n.Elems[i] = r.RewritePattern(n.Elems[i])
		}
	case *core.ConstructorPattern:
		if name, ok := r.monomorphizedName(n.Typ); ok {
			n.TypeName = name
		}
		n.Typ = r.RewriteType(n.Typ)
		for i := range n.Fields {
			n.Fields[i] = r.RewritePattern(n.Fields[i])
		}
	case *core.AllErrorsPattern:
		n.Typ = r.RewriteType(n.Typ)
	case *core.PinnedPattern:
		n.Typ = r.RewriteType(n.Typ)
	}
	return p
}

// SelfRecursionRewrite replaces a recursive field reference to selfName with
// Ptr<selfName, ∅> unless it already appears beneath an existing pointer
// (spec.md §4.6's self-recursion rewriting, scenario S4).
func SelfRecursionRewrite(fieldType types.Type, selfName string, underPointer bool) types.Type {
	tc, ok := fieldType.(*types.TCon)
	if !ok {
		return fieldType
	}
	if tc.Name == selfName && !underPointer {
		return &types.TCon{Name: "Ptr", Args: []types.Type{tc, &types.EffectRow{}}}
	}
	if tc.Name == "Ptr" || tc.Name == "ManyPtr" {
		args := make([]types.Type, len(tc.Args))
		for i, a := range tc.Args {
			args[i] = SelfRecursionRewrite(a, selfName, true)
		}
		return &types.TCon{Name: tc.Name, Args: args}
	}
	args := make([]types.Type, len(tc.Args))
	for i, a := range tc.Args {
		args[i] = SelfRecursionRewrite(a, selfName, underPointer)
	}
	return &types.TCon{Name: tc.Name, Args: args}
}

// Declare builds the monomorphized TypeDeclaration for one Instantiation,
// substituting its owner's generic declaration's constructor field types
// with args and applying self-recursion rewriting.
func Declare(inst *Instantiation, generic core.TypeDeclaration, rewriter *Rewriter) core.TypeDeclaration {
	sub := types.NewSubstitution()
	for i, p := range generic.TypeParams {
		if i < len(inst.Args) {
			sub.Set(p, inst.Args[i])
		}
	}
	ctors := make([]types.ConstructorInfo, len(generic.Info.Constructors))
	for i, ctor := range generic.Info.Constructors {
		specialized := ctor.Scheme
		if ctor.Scheme != nil {
			fieldType := types.ApplySubstitution(ctor.Scheme.Type, sub)
			fieldType = SelfRecursionRewrite(fieldType, generic.Name, false)
			fieldType = rewriter.RewriteType(fieldType)
			specialized = &types.TypeScheme{Type: fieldType}
		}
		ctors[i] = types.ConstructorInfo{Name: ctor.Name, Arity: ctor.Arity, Scheme: specialized}
	}
	info := &types.TypeInfo{Constructors: ctors, RecordFields: generic.Info.RecordFields, RecordDefaults: generic.Info.RecordDefaults}
	return core.TypeDeclaration{
		Name:          inst.NewName,
		Info:          info,
		TypeParams:    nil,
		Exported:      true,
		Monomorphized: true,
		Infectious:    generic.Infectious,
	}
}
