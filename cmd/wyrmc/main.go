// Command wyrmc is the compiler driver CLI (spec.md §6): it loads a
// wyrmc.yaml manifest when present, resolves CLI flags over it, and
// prints the resolved compile settings. Grounded on the teacher's cmd/ailang
// main.go cobra wiring, generalized to this compiler's single `compile`
// subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunholo/wyrm/internal/pipeline"
)

var (
	flagOutDir  string
	flagBackend string
	flagExt     string
	flagInvoke  bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wyrmc",
		Short: "Compile a wyrm program to a runtime-assisted or raw target",
	}
	root.AddCommand(newCompileCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <entryfile>",
		Short: "Compile entryfile and its module graph to --out-dir",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	cmd.Flags().StringVar(&flagOutDir, "out-dir", "", "output directory (default: dist, or manifest outDir)")
	cmd.Flags().StringVar(&flagBackend, "backend", "", "runtime|raw (default: runtime, or manifest backend)")
	cmd.Flags().StringVar(&flagExt, "ext", "", "target file extension (default derived from backend)")
	cmd.Flags().BoolVar(&flagInvoke, "invoke", false, "call main() from the generated root entry file")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	entry := args[0]

	m := &pipeline.Manifest{Entry: entry, Backend: "runtime", OutDir: "dist"}
	if loaded, err := pipeline.LoadManifest("wyrmc.yaml"); err == nil {
		m = loaded
		m.Entry = entry
	}
	if flagOutDir != "" {
		m.OutDir = flagOutDir
	}
	if flagBackend != "" {
		m.Backend = flagBackend
	}
	if flagExt != "" {
		m.Ext = flagExt
	}
	if m.Ext == "" {
		if m.Backend == "raw" {
			m.Ext = "zig"
		} else {
			m.Ext = "js"
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "compiling %s -> %s (%s backend, .%s)\n", m.Entry, m.OutDir, m.Backend, m.Ext)

	// The surface parser and module loader are external collaborators
	// (spec.md §1's "deliberately out of scope" list); a real driver would
	// invoke them here to build the wloader.ModuleGraph this pipeline
	// expects. This CLI only resolves flags over the manifest and reports
	// what it would do; it does not call the pipeline's compile passes.
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
