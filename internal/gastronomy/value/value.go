// Package value defines runtime values produced by the machine: constants,
// closures, constructor values, and partially applied builtins, plus the
// lexical environment closures capture.
package value

import (
	"fmt"
	"strings"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
)

// Value is the result of evaluating a Term: a constant, a closure, a
// partially applied builtin, a delayed computation, or a constructed
// value.
type Value interface {
	valueNode()
	String() string
}

// Constant wraps a fully-evaluated literal.
type Constant struct {
	Value *term.Constant
}

func (Constant) valueNode() {}
func (c Constant) String() string { return c.Value.String() }

// DelayClosure is a suspended term paired with the environment it closed
// over, produced by evaluating a Delay term.
type DelayClosure struct {
	Body term.Term
	Env  *Env
}

func (DelayClosure) valueNode() {}
func (d DelayClosure) String() string { return "DelayClosure" }

// LambdaClosure is a one-argument function value.
type LambdaClosure struct {
	Body term.Term
	Env  *Env
}

func (LambdaClosure) valueNode() {}
func (l LambdaClosure) String() string { return "LambdaClosure" }

// ConstrValue is an evaluated constructor application: a tag plus already
// -evaluated field values.
type ConstrValue struct {
	Tag    uint64
	Fields []Value
}

func (ConstrValue) valueNode() {}
func (c ConstrValue) String() string {
	parts := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("Constr(%d)[%s]", c.Tag, strings.Join(parts, ","))
}

// BuiltinInProgress is a partially applied primitive: the identifier,
// accumulated argument values, and how many forces/arguments remain before
// it saturates. Arity is fixed at creation time from the builtin's static
// signature; ForcesRemaining starts from that signature and counts down
// with each Force; Args grows as AwaitArg continuations are resolved.
type BuiltinInProgress struct {
	ID              term.BuiltinID
	Args            []Value
	Arity           int
	ForcesRemaining int
}

func (BuiltinInProgress) valueNode() {}
func (b BuiltinInProgress) String() string {
	return fmt.Sprintf("%s/%d(%d args, %d forces left)", b.ID, b.Arity, len(b.Args), b.ForcesRemaining)
}
