// Package diagnostics implements the low-volume structured side channel
// the loader and machine driver emit to: absorbed failures, trace
// messages, and anything else that should surface to an operator without
// aborting the surrounding operation.
package diagnostics

import (
	"fmt"
	"io"
)

// Kind is the fixed taxonomy a Diagnostic belongs to.
type Kind int

const (
	KindConfig Kind = iota
	KindUnsupportedFormat
	KindParseFailure
	KindBadParameter
	KindChainFailure
	KindOverrideUnresolved
	KindBudget
	KindTypeMismatch
	KindFreeVariable
	KindOutOfBoundsTag
	KindInternalInvariant
)

var kindNames = [...]string{
	"Config", "UnsupportedFormat", "ParseFailure", "BadParameter",
	"ChainFailure", "OverrideUnresolved", "Budget", "TypeMismatch",
	"FreeVariable", "OutOfBoundsTag", "InternalInvariant",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Diagnostic is one line emitted to the side channel.
type Diagnostic struct {
	Kind      Kind
	Message   string
	NodeIndex *int64
}

func (d Diagnostic) String() string {
	if d.NodeIndex != nil {
		return fmt.Sprintf("[%s] %s (node %d)", d.Kind, d.Message, *d.NodeIndex)
	}
	return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
}

// Reporter receives diagnostics as they occur. Implementations must not
// block machine stepping; the implementations below are synchronous and
// allocation-light enough that no buffering is needed.
type Reporter interface {
	Report(d Diagnostic)
}

// Recorder is a slice-backed Reporter, used by tests and by any caller
// that wants to inspect the diagnostics a run produced after the fact.
type Recorder struct {
	entries []Diagnostic
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Report(d Diagnostic) { r.entries = append(r.entries, d) }

// Entries returns the diagnostics recorded so far, in emission order.
func (r *Recorder) Entries() []Diagnostic {
	return append([]Diagnostic(nil), r.entries...)
}

// StreamReporter writes each diagnostic as a line to an io.Writer,
// typically os.Stderr from the CLI.
type StreamReporter struct {
	w io.Writer
}

func NewStreamReporter(w io.Writer) *StreamReporter { return &StreamReporter{w: w} }

func (s *StreamReporter) Report(d Diagnostic) {
	fmt.Fprintln(s.w, d.String())
}

// Discard is a Reporter that drops everything, for callers that do not
// care about the side channel.
type discardReporter struct{}

func (discardReporter) Report(Diagnostic) {}

var Discard Reporter = discardReporter{}
