// Package errors provides the structured error type shared by every phase of
// the compiler: inference diagnostics (§4.3), pass failures (§4.5-§4.7), and
// emission failures (§4.8-§4.10). See spec.md §7.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sunholo/wyrm/internal/wsurface"
)

// SchemaErrorV1 is the schema tag carried by every Report.
const SchemaErrorV1 = "wyrmc.error/v1"

// Report is the canonical structured error type. All error builders return
// *Report, which can be wrapped as a ReportError so it survives errors.As.
type Report struct {
	Schema  string         `json:"schema"`           // Always SchemaErrorV1
	Code    string         `json:"code"`             // Error code (TC001, ELB002, ...)
	Phase   string         `json:"phase"`             // "infer", "lower", "elaborate", "mono", "rawlower", "emit"
	Message string         `json:"message"`           // Human-readable message
	Span    *wsurface.Span `json:"span,omitempty"`    // Source location, when available
	Data    map[string]any `json:"data,omitempty"`    // Structured, reason-specific detail
	Fix     *Fix           `json:"fix,omitempty"`     // Suggested fix, optional
}

// Fix is a suggested remediation attached to a Report.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// ReportError wraps a Report as an error so it survives errors.As unwrapping.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport extracts a Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// WrapReport wraps a Report as an error. Call sites return errors.WrapReport(r)
// to preserve structure through ordinary Go error propagation.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON renders the report deterministically (sorted map keys via encoding/json).
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewGeneric wraps a plain error as a Report for a given phase.
func NewGeneric(phase string, err error) *Report {
	return &Report{
		Schema:  SchemaErrorV1,
		Code:    "INTERNAL",
		Phase:   phase,
		Message: err.Error(),
		Data:    map[string]any{},
	}
}

// Render renders a Report for terminal display: the code in bold red, the
// phase and the message, an optional source excerpt, and any fix suggestion in green.
// Mirrors the teacher's REPL/CLI error coloring convention.
func (r *Report) Render(sourceLine string) string {
	var b strings.Builder
	codeColor := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(&b, "%s [%s]: %s\n", codeColor.Sprint(r.Code), r.Phase, r.Message)
	if r.Span != nil && sourceLine != "" {
		fmt.Fprintf(&b, "  %s\n", color.New(color.Faint).Sprint(sourceLine))
		fmt.Fprintf(&b, "  at %s\n", r.Span.Start.String())
	}
	if r.Fix != nil {
		fmt.Fprintf(&b, "  %s %s\n", color.GreenString("fix:"), r.Fix.Suggestion)
	}
	return b.String()
}
