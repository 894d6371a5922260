package gastronomy

import (
	"github.com/plutus-tools/gastronomy/internal/gastronomy/chainquery"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/diagnostics"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/loader"
)

// Provider is the abstract chain-query capability a DebugRequest may
// supply to resolve transaction-shape inputs.
type Provider = chainquery.Provider

// Reporter receives diagnostics emitted during loading and stepping.
type Reporter = diagnostics.Reporter

// ScriptOverride names a replacement script for a transaction-shape
// load, keyed by the hash of the script it replaces.
type ScriptOverride = loader.ScriptOverride

// DebugRequest names one program to load, parameterize and execute.
type DebugRequest struct {
	// Path is a .uplc/.flat/.json/.tx file path, or a 64-character
	// lowercase hex transaction id.
	Path string

	// ParameterHex is an ordered list of hex-encoded CBOR Plutus Data
	// values applied to the program before execution.
	ParameterHex []string

	// Provider resolves transaction-shape inputs; nil behaves as
	// chainquery.NoneProvider, failing every chain-dependent load.
	Provider Provider

	// Overrides replaces resolved scripts by hash before a
	// transaction-shape load materializes its programs.
	Overrides map[string]ScriptOverride

	// Reporter receives diagnostics; nil discards them.
	Reporter Reporter
}

// BudgetDelta mirrors tracebuilder.BudgetDelta for the public API: the
// running cost totals alongside the delta the producing transition
// charged.
type BudgetDelta struct {
	CumulativeSteps int64
	CumulativeMem   int64
	StepDelta       int64
	MemDelta        int64
}

// Frame is the public, owned-copy projection of tracebuilder.RawFrame.
// Unlike the internal type it does not borrow Env/Term/Location from a
// sibling frame: each field already holds its own rendered string, since
// crossing the package boundary means the caller cannot be trusted to
// respect the internal borrow-scoped lifetime discipline section 5
// describes for the core evaluator.
type Frame struct {
	Label         string
	Context       string
	Env           []string
	Term          string
	ProducedValue string
	Location      string
	Budget        BudgetDelta
}

// ExecutionTrace is one program's fully materialized, already-stepped
// trace.
type ExecutionTrace struct {
	Identifier         string
	Filename           string
	Frames             []Frame
	SourceTokenIndices []int
}
