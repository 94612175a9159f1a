// Package diag defines the marked-inference boundary (spec.md §4.3): the
// types the inference stage (internal/infer) hands to internal/lower. This
// package only fixes the shape of that boundary.
package diag

import "github.com/sunholo/wyrm/internal/types"

// NodeId identifies a surface-AST node for resolvedNodeTypes lookups and
// diagnostic spans. It mirrors the teacher's own node-id convention
// (internal/ast.NodeId) rather than inventing a new one.
type NodeId int

// Reason is the closed set of diagnostic reasons inference can report,
// taken verbatim from spec.md §4.3.
type Reason string

const (
	ReasonTypeMismatch                  Reason = "type_mismatch"
	ReasonNotFunction                   Reason = "not_function"
	ReasonBranchMismatch                Reason = "branch_mismatch"
	ReasonMissingField                  Reason = "missing_field"
	ReasonAmbiguousRecord               Reason = "ambiguous_record"
	ReasonNotRecord                     Reason = "not_record"
	ReasonOccursCycle                   Reason = "occurs_cycle"
	ReasonArityMismatch                 Reason = "arity_mismatch"
	ReasonNotNumeric                    Reason = "not_numeric"
	ReasonNotBoolean                    Reason = "not_boolean"
	ReasonFreeVariable                  Reason = "free_variable"
	ReasonDuplicateRecordField          Reason = "duplicate_record_field"
	ReasonNonExhaustiveMatch            Reason = "non_exhaustive_match"
	ReasonAllErrorsOutsideResult        Reason = "all_errors_outside_result"
	ReasonAllErrorsRequiresErr          Reason = "all_errors_requires_err"
	ReasonErrorRowPartialCoverage       Reason = "error_row_partial_coverage"
	ReasonInfectiousCallResultMismatch  Reason = "infectious_call_result_mismatch"
	ReasonInfectiousMatchResultMismatch Reason = "infectious_match_result_mismatch"
	ReasonTypeExprUnknown               Reason = "type_expr_unknown"
	ReasonTypeExprArity                 Reason = "type_expr_arity"
	ReasonTypeExprUnsupported           Reason = "type_expr_unsupported"
	ReasonTypeDeclDuplicate             Reason = "type_decl_duplicate"
	ReasonTypeDeclInvalidMember         Reason = "type_decl_invalid_member"
	ReasonInternalError                 Reason = "internal_error"
)

// ConstraintDiagnostic is one inference failure, naming the node it
// occurred at, why, and whatever structured detail the reason needs for
// rendering (e.g. the two mismatched types).
type ConstraintDiagnostic struct {
	Node    NodeId
	Reason  Reason
	Message string
	Data    map[string]any
}

// MatchInfo carries the effect-row coverage computed for a match expression
// during inference (§4.3's "Effect-row coverage tracking", grounded on the
// teacher's exhaustiveness checker), so that lowering (§4.4) can attach it
// to the lowered core.Match as its Coverage without recomputing it.
type MatchInfo struct {
	Node              NodeId
	ScrutineeDomain   string
	CoveredLabels     []string
	Exhaustive        bool
	CarrierMatch      bool
	DischargedCarrier string
}

// Marked is the tagged-variant replacement for a surface node that failed
// inference locally: the node keeps its sub-expressions (so lowering can
// still descend into them) and records why it was marked.
type Marked struct {
	Node    NodeId
	Reason  Reason
	Subject any // the surface node this mark wraps, typed as `any` here to
	// avoid importing internal/wsurface (which would create a cycle if
	// wsurface ever needed a diag.Reason on its own nodes); internal/lower
	// performs the concrete type assertion against wsurface.Expr/Pattern.
	Data map[string]any
}

// Result is the full per-module output of the inference stage: the resolved
// node types, the diagnostics, the per-match coverage, and the marked program.
type Result struct {
	ResolvedNodeTypes map[NodeId]types.Type
	Diagnostics       []ConstraintDiagnostic
	Matches           map[NodeId]*MatchInfo
	MarkedProgram     any // a wsurface.Program with Marked nodes substituted in
}
