// Package errors provides centralized error code definitions for the
// compiler. Each constant names a specific failure condition with
// structured reporting; codes are grouped by the phase that raises them.
package errors

// Inference diagnostics (TC###) — see spec.md §4.3 for the closed reason set.
// These never abort compilation; they attach to a Report carried by a mark
// node (internal/diag) rather than being returned as a Go error.
const (
	TC001 = "TC001" // type_mismatch
	TC002 = "TC002" // not_function
	TC003 = "TC003" // branch_mismatch
	TC004 = "TC004" // missing_field
	TC005 = "TC005" // ambiguous_record
	TC006 = "TC006" // not_record
	TC007 = "TC007" // occurs_cycle
	TC008 = "TC008" // arity_mismatch
	TC009 = "TC009" // not_numeric
	TC010 = "TC010" // not_boolean
	TC011 = "TC011" // free_variable
	TC012 = "TC012" // duplicate_record_field
	TC013 = "TC013" // non_exhaustive_match
	TC014 = "TC014" // all_errors_outside_result
	TC015 = "TC015" // all_errors_requires_err
	TC016 = "TC016" // error_row_partial_coverage
	TC017 = "TC017" // infectious_call_result_mismatch
	TC018 = "TC018" // infectious_match_result_mismatch
	TC019 = "TC019" // type_expr_unknown | type_expr_arity | type_expr_unsupported
	TC020 = "TC020" // type_decl_duplicate | type_decl_invalid_member
	TC021 = "TC021" // internal_error
)

// Lowering failures (LWR###) — §4.4, §7 kind 2.
const (
	LWR001 = "LWR001" // unsupported marked form
	LWR002 = "LWR002" // unresolvable constructor pattern
)

// Carrier-op elaboration pass failures (ELB###) — §4.5, §7 kind 3.
const (
	ELB001 = "ELB001" // fresh-name collision (invariant violation)
	ELB002 = "ELB002" // carrier domain mismatch across wrap/unwrap
)

// Monomorphization pass failures (MONO###) — §4.6, §7 kind 3.
const (
	MONO001 = "MONO001" // instantiation with no declaring module
	MONO002 = "MONO002" // ambiguous localization target
	MONO003 = "MONO003" // self-recursion rewrite found an unexpected shape
)

// Raw-type lowering failures (RAWL###) — §4.7.
const (
	RAWL001 = "RAWL001" // state argument not normalizable to a row
)

// Emission failures (EMIT###) — §4.8-§4.10, §7 kind 4.
const (
	EMIT001 = "EMIT001" // unsupported expression kind for backend
	EMIT002 = "EMIT002" // I/O failure writing output
	EMIT003 = "EMIT003" // prelude dependency cycle detected
)

// Runtime errors raised by emitted runtime-assisted code (RT###) — §7.
const (
	RT001 = "RT001" // non-exhaustive match at runtime
	RT002 = "RT002" // effect constructor reached a non-carrier context
)
