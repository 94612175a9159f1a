package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/sunholo/wyrm/internal/core"
)

var (
	dim  = color.New(color.Faint).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
)

// TraceStep describes one carrier-elaboration rewrite the session can step
// through: the operand position elaborate.Elaborator rewrote and the
// carrier_match it produced.
type TraceStep struct {
	Label string
	Node  core.Expr
}

// TraceSession interactively steps through a module's carrier-elaboration
// rewrites, prompting with history-backed readline input (grounded on the
// teacher's internal/repl.REPL.Start loop and its peterh/liner usage).
type TraceSession struct {
	Steps       []TraceStep
	historyFile string
}

// NewTraceSession builds a session over steps. historyFile defaults to
// $TMPDIR/.wyrmc_trace_history when empty.
func NewTraceSession(steps []TraceStep, historyFile string) *TraceSession {
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".wyrmc_trace_history")
	}
	return &TraceSession{Steps: steps, historyFile: historyFile}
}

// Run drives the session, reading commands from the terminal through liner
// and writing to out: it prints each step's label and waits for a line
// before the next step (":quit" ends the session early). It steps through
// every recorded rewrite and returns cleanly at EOF.
func (ts *TraceSession) Run(out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	if f, err := os.Open(ts.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(ts.historyFile); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	line.SetCompleter(func(cur string) (c []string) {
		for _, cmd := range []string{":next", ":quit", ":help"} {
			if strings.HasPrefix(cmd, cur) {
				c = append(c, cmd)
			}
		}
		return
	})

	fmt.Fprintf(out, "%s %d carrier rewrite(s) to step through\n", bold("trace:"), len(ts.Steps))
	for i, step := range ts.Steps {
		fmt.Fprintf(out, "%s [%d/%d] %s\n", dim("step"), i+1, len(ts.Steps), step.Label)
		input, err := line.Prompt("trace> ")
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line.AppendHistory(input)
		if strings.TrimSpace(input) == ":quit" {
			return nil
		}
	}
	return nil
}
