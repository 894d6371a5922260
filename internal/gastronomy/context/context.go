// Package context defines the reified continuation: the stack of pending
// work the machine still owes a value, represented as a tagged sum so
// Step can pattern-match it with a flat type switch rather than an
// implicit call stack.
package context

import (
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/value"
)

// Context is a frame in the reified continuation stack: awaiting a
// function's value, awaiting an argument, forcing a result, building a
// constructor's fields, or scrutinizing a case — plus the terminal Empty.
type Context interface {
	contextNode()
	String() string
}

// Empty is the empty continuation: reaching it with a value produces
// Done(discharge(value)).
type Empty struct{}

func (Empty) contextNode()  {}
func (Empty) String() string { return "Empty" }

// AwaitFun is pushed by Apply(f,a) while the function position f is
// still being evaluated; it carries the pending argument term and the
// environment it must eventually be evaluated in.
type AwaitFun struct {
	Env      *value.Env
	Argument term.Term
	Parent   Context
}

func (AwaitFun) contextNode()  {}
func (AwaitFun) String() string { return "AwaitFun" }

// AwaitArg is pushed once the function value is known and its argument
// is being evaluated; it carries the already-evaluated function value.
type AwaitArg struct {
	Fun    value.Value
	Parent Context
}

func (AwaitArg) contextNode()  {}
func (AwaitArg) String() string { return "AwaitArg" }

// Force is pushed while evaluating the body of a Force term; it resumes
// by instantiating the delayed value (or forcing a builtin) that comes
// back.
type Force struct {
	Parent Context
}

func (Force) contextNode()  {}
func (Force) String() string { return "Force" }

// Constr is pushed while evaluating one field of a Constr term; it
// carries the tag, the already-evaluated fields so far, the remaining
// field terms still to evaluate, and the environment they evaluate in.
type Constr struct {
	Tag       uint64
	Remaining []term.Term
	Done      []value.Value
	Env       *value.Env
	Parent    Context
}

func (Constr) contextNode()  {}
func (Constr) String() string { return "Constr" }

// Cases is pushed while evaluating the scrutinee of a Case term; it
// resumes by dispatching the returned ConstrValue to the matching branch.
type Cases struct {
	Env      *value.Env
	Branches []term.Term
	Parent   Context
}

func (Cases) contextNode()  {}
func (Cases) String() string { return "Cases" }
