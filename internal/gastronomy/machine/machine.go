// Package machine implements the deterministic small-step evaluator: the
// Step relation over (continuation, environment, term) / (continuation,
// value) / (done, term) states, the cost-metered Execute loop that drives
// it to completion, and Discharge, the side-effect-free value-to-term
// projection used for display and for the final Done payload.
package machine

import (
	"fmt"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/builtin"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/context"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/cost"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/diagnostics"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/value"
)

// State is the machine's current configuration: Compute (a term pending
// evaluation under an environment), Return (a value flowing back up the
// context), or Done (the final result or failure).
type State interface {
	stateNode()
	String() string
}

// Compute is focused on evaluating Term in Env, with Context still owed
// the resulting value.
type Compute struct {
	Context context.Context
	Env     *value.Env
	Term    term.Term
}

func (Compute) stateNode() {}
func (c Compute) String() string { return "Compute(" + c.Term.String() + ")" }

// Return has produced Value and is handing it to Context.
type Return struct {
	Context context.Context
	Value   value.Value
}

func (Return) stateNode() {}
func (r Return) String() string { return "Return(" + r.Value.String() + ")" }

// Done is terminal: Term is the discharged result (or an ErrorTerm on
// failure).
type Done struct {
	Term term.Term
}

func (Done) stateNode() {}
func (d Done) String() string { return "Done(" + d.Term.String() + ")" }

// Snapshot is a (state, budget) pair captured before each transition.
type Snapshot struct {
	State  State
	Budget cost.Budget
}

// Initial returns the machine's starting state for a program root.
func Initial(root term.Term) Compute {
	return Compute{Context: context.Empty{}, Env: nil, Term: root}
}

// Execute drives the machine from Initial(root) to Done, appending a
// Snapshot before every transition and charging the transition's cost
// against the running budget. A step that fails is absorbed: a diagnostic
// is reported and the next state becomes Done(Error) with the failing
// node's index preserved when available. Execute always returns a
// non-empty snapshot list ending in Done, and never returns an error
// itself — it is total, up to budget.
func Execute(root term.Term, report diagnostics.Reporter) []Snapshot {
	if report == nil {
		report = diagnostics.Discard
	}
	var snapshots []Snapshot
	budget := cost.NewBudget()
	state := State(Initial(root))

	for {
		snapshots = append(snapshots, Snapshot{State: state, Budget: budget})
		if _, ok := state.(Done); ok {
			return snapshots
		}

		next, sideMsg, stepErr := step(state)
		if stepErr != nil {
			idx := failingNodeIndex(state)
			kind := diagnostics.KindTypeMismatch
			if _, ok := stepErr.(outOfBoundsTagError); ok {
				kind = diagnostics.KindOutOfBoundsTag
			}
			if _, ok := stepErr.(freeVariableError); ok {
				kind = diagnostics.KindFreeVariable
			}
			report.Report(diagnostics.Diagnostic{Kind: kind, Message: stepErr.Error(), NodeIndex: idx})
			state = Done{Term: errorTermAt(idx)}
			continue
		}

		newBudget, _, ok := chargeFor(state, next, budget)
		if !ok {
			report.Report(diagnostics.Diagnostic{Kind: diagnostics.KindBudget, Message: "budget exhausted", NodeIndex: failingNodeIndex(state)})
			state = Done{Term: errorTermAt(failingNodeIndex(state))}
			continue
		}
		budget = newBudget
		state = next

		if msg, ok := sideMsg.(builtin.TracedMessage); ok {
			report.Report(diagnostics.Diagnostic{Kind: diagnostics.KindTypeMismatch, Message: "trace: " + msg.Message})
		}
	}
}

// freeVariableError and outOfBoundsTagError let Execute classify a step
// failure's diagnostic Kind without step() having to depend on package
// diagnostics directly.
type freeVariableError struct{ error }
type outOfBoundsTagError struct{ error }

func failingNodeIndex(s State) *int64 {
	c, ok := s.(Compute)
	if !ok {
		return nil
	}
	return c.Term.NodeIndex()
}

func errorTermAt(idx *int64) term.Term {
	return term.NewErrorTerm(idx)
}

// ruleFor identifies which fixed per-rule charge applies to the
// transition about to be taken from prev.
func ruleFor(prev State) cost.Rule {
	switch s := prev.(type) {
	case Compute:
		switch s.Term.(type) {
		case term.Var:
			return cost.RuleComputeVar
		case term.Const:
			return cost.RuleComputeConst
		case term.Builtin:
			return cost.RuleComputeBuiltin
		case term.Lambda:
			return cost.RuleComputeLambda
		case term.Delay:
			return cost.RuleComputeDelay
		case term.Force:
			return cost.RuleComputeForce
		case term.Apply:
			return cost.RuleComputeApply
		case term.Constr:
			return cost.RuleComputeConstr
		case term.Case:
			return cost.RuleComputeCase
		case term.ErrorTerm:
			return cost.RuleComputeError
		}
	case Return:
		switch s.Context.(type) {
		case context.AwaitFun:
			return cost.RuleReturnAwaitFun
		case context.AwaitArg:
			return cost.RuleReturnAwaitArg
		case context.Force:
			return cost.RuleReturnForce
		case context.Constr:
			return cost.RuleReturnConstr
		case context.Cases:
			return cost.RuleReturnCases
		}
	}
	return cost.RuleComputeVar
}

func argSize(v value.Value) int64 {
	if c, ok := v.(value.Constant); ok {
		return cost.ArgSize(c.Value)
	}
	return 1
}

// builtinDispatchCharge reports the additional (steps, mem) charge a
// builtin invocation incurs the moment it saturates, on top of the
// generic per-rule charge ruleFor already accounts for.
func builtinDispatchCharge(prev State) (cost.Charge, bool) {
	r, ok := prev.(Return)
	if !ok {
		return cost.Charge{}, false
	}
	switch k := r.Context.(type) {
	case context.AwaitArg:
		bip, ok := k.Fun.(value.BuiltinInProgress)
		if !ok || bip.ForcesRemaining != 0 || len(bip.Args)+1 != bip.Arity {
			return cost.Charge{}, false
		}
		sizes := make([]int64, 0, bip.Arity)
		for _, a := range bip.Args {
			sizes = append(sizes, argSize(a))
		}
		sizes = append(sizes, argSize(r.Value))
		return cost.BuiltinCharge(bip.ID, sizes), true
	case context.Force:
		bip, ok := r.Value.(value.BuiltinInProgress)
		if !ok || bip.ForcesRemaining != 1 || len(bip.Args) != bip.Arity {
			return cost.Charge{}, false
		}
		sizes := make([]int64, 0, bip.Arity)
		for _, a := range bip.Args {
			sizes = append(sizes, argSize(a))
		}
		return cost.BuiltinCharge(bip.ID, sizes), true
	default:
		return cost.Charge{}, false
	}
}

// chargeFor prices the transition out of prev and applies it to budget.
func chargeFor(prev State, next State, budget cost.Budget) (cost.Budget, cost.Rule, bool) {
	_ = next
	rule := ruleFor(prev)
	charge := cost.ChargeFor(rule)
	if extra, ok := builtinDispatchCharge(prev); ok {
		charge.Steps += extra.Steps
		charge.Mem += extra.Mem
	}
	nb, ok := budget.Apply(charge)
	return nb, rule, ok
}

// step computes the single successor state for s, per the Compute/Return
// transition tables. The second return value is an optional side effect
// (currently only a traced message) the caller should forward to the
// diagnostic side channel without treating it as a failure.
func step(s State) (State, error, error) {
	switch st := s.(type) {
	case Compute:
		return stepCompute(st)
	case Return:
		return stepReturn(st)
	case Done:
		return st, nil, nil
	default:
		return nil, nil, fmt.Errorf("internal invariant: unknown state %T", s)
	}
}

func stepCompute(c Compute) (State, error, error) {
	switch t := c.Term.(type) {
	case term.ErrorTerm:
		return nil, nil, fmt.Errorf("explicit error term")

	case term.Var:
		v, err := c.Env.Get(t.DeBruijn)
		if err != nil {
			return nil, nil, freeVariableError{fmt.Errorf("%w", err)}
		}
		return Return{Context: c.Context, Value: v}, nil, nil

	case term.Const:
		return Return{Context: c.Context, Value: value.Constant{Value: t.Value}}, nil, nil

	case term.Builtin:
		return Return{Context: c.Context, Value: builtin.New(t.Name)}, nil, nil

	case term.Lambda:
		return Return{Context: c.Context, Value: value.LambdaClosure{Body: t.Body, Env: c.Env}}, nil, nil

	case term.Delay:
		return Return{Context: c.Context, Value: value.DelayClosure{Body: t.Body, Env: c.Env}}, nil, nil

	case term.Force:
		return Compute{Context: context.Force{Parent: c.Context}, Env: c.Env, Term: t.Body}, nil, nil

	case term.Apply:
		return Compute{
			Context: context.AwaitFun{Env: c.Env, Argument: t.Argument, Parent: c.Context},
			Env:     c.Env,
			Term:    t.Function,
		}, nil, nil

	case term.Constr:
		if len(t.Fields) == 0 {
			return Return{Context: c.Context, Value: value.ConstrValue{Tag: t.Tag}}, nil, nil
		}
		return Compute{
			Context: context.Constr{Tag: t.Tag, Remaining: t.Fields[1:], Done: nil, Env: c.Env, Parent: c.Context},
			Env:     c.Env,
			Term:    t.Fields[0],
		}, nil, nil

	case term.Case:
		return Compute{
			Context: context.Cases{Env: c.Env, Branches: t.Branches, Parent: c.Context},
			Env:     c.Env,
			Term:    t.Scrutinee,
		}, nil, nil

	default:
		return nil, nil, fmt.Errorf("internal invariant: unknown term %T", t)
	}
}

func stepReturn(r Return) (State, error, error) {
	switch k := r.Context.(type) {
	case context.Empty:
		return Done{Term: Discharge(r.Value)}, nil, nil

	case context.AwaitFun:
		return Compute{
			Context: context.AwaitArg{Fun: r.Value, Parent: k.Parent},
			Env:     k.Env,
			Term:    k.Argument,
		}, nil, nil

	case context.AwaitArg:
		return applyFunction(k.Parent, k.Fun, r.Value)

	case context.Force:
		return applyForce(k.Parent, r.Value)

	case context.Constr:
		done := append(append([]value.Value(nil), k.Done...), r.Value)
		if len(k.Remaining) == 0 {
			return Return{Context: k.Parent, Value: value.ConstrValue{Tag: k.Tag, Fields: done}}, nil, nil
		}
		return Compute{
			Context: context.Constr{Tag: k.Tag, Remaining: k.Remaining[1:], Done: done, Env: k.Env, Parent: k.Parent},
			Env:     k.Env,
			Term:    k.Remaining[0],
		}, nil, nil

	case context.Cases:
		cv, ok := r.Value.(value.ConstrValue)
		if !ok {
			return nil, nil, fmt.Errorf("type mismatch: case scrutinee is not a constructor value")
		}
		if int(cv.Tag) >= len(k.Branches) {
			return nil, nil, outOfBoundsTagError{fmt.Errorf("case: tag %d has no matching branch", cv.Tag)}
		}
		env := k.Env
		for _, f := range cv.Fields {
			env = env.Extend(f)
		}
		return Compute{Context: k.Parent, Env: env, Term: k.Branches[cv.Tag]}, nil, nil

	default:
		return nil, nil, fmt.Errorf("internal invariant: unknown context %T", k)
	}
}

func applyForce(parent context.Context, v value.Value) (State, error, error) {
	switch fv := v.(type) {
	case value.DelayClosure:
		return Compute{Context: parent, Env: fv.Env, Term: fv.Body}, nil, nil
	case value.BuiltinInProgress:
		result, err := builtin.ApplyForce(fv)
		if traced, ok := err.(builtin.TracedMessage); ok {
			return Return{Context: parent, Value: result}, traced, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return Return{Context: parent, Value: result}, nil, nil
	default:
		return nil, nil, fmt.Errorf("type mismatch: forcing a non-polymorphic value")
	}
}

func applyFunction(parent context.Context, fn value.Value, arg value.Value) (State, error, error) {
	switch f := fn.(type) {
	case value.LambdaClosure:
		return Compute{Context: parent, Env: f.Env.Extend(arg), Term: f.Body}, nil, nil
	case value.BuiltinInProgress:
		result, err := builtin.ApplyArg(f, arg)
		if traced, ok := err.(builtin.TracedMessage); ok {
			return Return{Context: parent, Value: result}, traced, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return Return{Context: parent, Value: result}, nil, nil
	default:
		return nil, nil, fmt.Errorf("type mismatch: applying a non-function value")
	}
}

// Discharge converts a Value into a displayable Term. Constructor fields
// are discharged recursively; closures become a Delay or Lambda around
// their bare body, without substituting the captured environment, so
// variables bound outside the closure remain de-Bruijn references. It
// never mutates machine state.
func Discharge(v value.Value) term.Term {
	switch val := v.(type) {
	case value.Constant:
		return term.Const{Value: val.Value}
	case value.DelayClosure:
		return term.Delay{Body: val.Body}
	case value.LambdaClosure:
		return term.Lambda{Body: val.Body}
	case value.ConstrValue:
		fields := make([]term.Term, len(val.Fields))
		for i, f := range val.Fields {
			fields[i] = Discharge(f)
		}
		return term.Constr{Tag: val.Tag, Fields: fields}
	case value.BuiltinInProgress:
		return term.Builtin{Name: val.ID}
	default:
		return term.ErrorTerm{}
	}
}
