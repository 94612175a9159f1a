// Package graph implements the graph emitter (spec.md §4.8, C4a): the
// driver that walks a Core module graph leaves-first, computes each
// module's output path, decides prelude injection, and dispatches each
// module to the runtime-assisted or raw emitter. Grounded on the teacher's
// internal/link/linker.go (leaves-first processing) and internal/module/
// loader.go (path/cache-dir bookkeeping), generalized from "link an
// in-memory Core program" to "write one target file per module".
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sunholo/wyrm/internal/core"
	"github.com/sunholo/wyrm/internal/emit/raw"
	"github.com/sunholo/wyrm/internal/emit/runtime"
	"github.com/sunholo/wyrm/internal/wloader"
)

// FS abstracts the filesystem operations the emitter suspends on (spec.md
// §5's "suspension points... at the boundary with the filesystem"),
// letting tests substitute an in-memory fake instead of touching disk.
type FS interface {
	WriteFile(path string, data []byte) error
	ReadFile(path string) ([]byte, error)
	MkdirAll(path string) error
}

// osFS is the default FS, backed by the real filesystem.
type osFS struct{}

func (osFS) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
func (osFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }
func (osFS) MkdirAll(path string) error           { return os.MkdirAll(path, 0o755) }

// Options configures one compilation's graph emission.
type Options struct {
	OutDir            string
	Ext               string
	RuntimeFilename   string
	RuntimeSourcePath string
	InvokeEntrypoint  bool
	CommonRoot        string // "" computes it from the module paths
	EmitRuntime       bool
	EmitRootMain      bool
	FS                FS // nil uses the real filesystem
}

// Result records what was written, keyed by module path.
type Result struct {
	OutputPaths        map[string]string
	SourceExtRewrites  map[string][]string
	RuntimeWritten     bool
	RootEntryWritten   bool
}

// Emit walks g in leaves-first order, writing one target file per module
// plus (optionally) the runtime and a root entry file.
func Emit(g *core.ModuleGraph, nodes map[string]*wloader.ModuleNode, opts Options) (*Result, error) {
	fs := opts.FS
	if fs == nil {
		fs = osFS{}
	}
	root := opts.CommonRoot
	if root == "" {
		root = commonRoot(g.Order)
	}

	res := &Result{
		OutputPaths:       map[string]string{},
		SourceExtRewrites: map[string][]string{},
	}

	outPaths := map[string]string{}
	specifiers := map[string]string{}
	for _, path := range g.Order {
		outPath, specifier := modulePaths(root, opts.OutDir, path, opts.Ext)
		outPaths[path] = outPath
		specifiers[path] = specifier
	}

	preludeDeps := map[string]bool{}
	if g.Prelude != "" {
		preludeDeps = wloader.TransitiveDeps(nodes, g.Prelude)
	}

	preludeImport := ""
	if g.Prelude != "" {
		preludeImport = specifiers[g.Prelude]
	}

	for _, path := range g.Order {
		mod := g.Modules[path]
		if mod == nil {
			continue
		}
		injectPrelude := g.Prelude != "" && path != g.Prelude && !mod.Core && !preludeDeps[path]

		var forced []string
		if path == g.Entry && hasMain(mod) {
			forced = []string{"main"}
		}

		var src string
		var err error
		switch mod.Mode {
		case "raw":
			var rewrites []string
			em := raw.NewEmitter(nil)
			src, rewrites, err = em.EmitModule(mod, opts.Ext)
			if len(rewrites) > 0 {
				res.SourceExtRewrites[path] = rewrites
			}
		default:
			em := runtime.NewEmitter()
			src, err = em.EmitModule(mod, runtime.Options{
				InjectPrelude: injectPrelude,
				PreludeImport: preludeImport,
				ForcedExports: forced,
				RuntimeImport: specifierToRuntime(outPaths[path], opts.OutDir, opts.RuntimeFilename),
			})
		}
		if err != nil {
			return nil, fmt.Errorf("emit/graph: module %s: %w", path, err)
		}

		outPath := outPaths[path]
		if err := fs.WriteFile(outPath, []byte(src)); err != nil {
			return nil, fmt.Errorf("emit/graph: write %s: %w", outPath, err)
		}
		res.OutputPaths[path] = outPath
	}

	if opts.EmitRuntime && opts.RuntimeSourcePath != "" {
		data, err := fs.ReadFile(opts.RuntimeSourcePath)
		if err != nil {
			return nil, fmt.Errorf("emit/graph: read runtime source: %w", err)
		}
		if err := fs.WriteFile(filepath.Join(opts.OutDir, opts.RuntimeFilename), data); err != nil {
			return nil, fmt.Errorf("emit/graph: write runtime: %w", err)
		}
		res.RuntimeWritten = true
	}

	if opts.EmitRootMain {
		entrySpecifier := specifiers[g.Entry]
		var b strings.Builder
		fmt.Fprintf(&b, "const __entry = require(%q);\n", "./"+entrySpecifier)
		if opts.InvokeEntrypoint {
			fmt.Fprintf(&b, "if (typeof __entry.main === 'function') { __entry.main(); }\n")
		}
		rootPath := filepath.Join(opts.OutDir, "main."+opts.Ext)
		if err := fs.WriteFile(rootPath, []byte(b.String())); err != nil {
			return nil, fmt.Errorf("emit/graph: write root entry: %w", err)
		}
		res.RootEntryWritten = true
	}

	return res, nil
}

func hasMain(mod *core.Module) bool {
	for _, vb := range mod.Values {
		if vb.Name == "main" {
			return true
		}
	}
	return false
}

// commonRoot computes the longest shared directory prefix of every module
// path (spec.md §4.8 step 1).
func commonRoot(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	dirOf := func(p string) []string {
		s := strings.Split(p, "/")
		return s[:len(s)-1]
	}
	parts := dirOf(paths[0])
	for _, p := range paths[1:] {
		parts = commonPrefix(parts, dirOf(p))
	}
	return strings.Join(parts, "/")
}

func commonPrefix(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// modulePaths computes a module's output file path and the specifier
// siblings use to import it. A module outside root is rebased under a
// cache sub-directory with its path sanitized into a safe relative
// segment (spec.md §4.8 step 1).
func modulePaths(root, outDir, modulePath, ext string) (outPath, specifier string) {
	rel := strings.TrimPrefix(modulePath, root)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || !strings.HasPrefix(modulePath, root) {
		rel = ".wyrmc-cache/" + sanitizeSegment(modulePath)
	}
	specifier = rel + "." + ext
	outPath = filepath.Join(outDir, filepath.FromSlash(specifier))
	return outPath, specifier
}

func sanitizeSegment(path string) string {
	sum := sha256.Sum256([]byte(path))
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, path)
	return safe + "_" + hex.EncodeToString(sum[:])[:8]
}

func specifierToRuntime(modOutPath, outDir, runtimeFilename string) string {
	rel, err := filepath.Rel(filepath.Dir(modOutPath), filepath.Join(outDir, runtimeFilename))
	if err != nil {
		return "./" + runtimeFilename
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}
