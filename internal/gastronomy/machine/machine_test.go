package machine

import (
	"math/big"
	"testing"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/diagnostics"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/value"
)

func constInt(n int64) term.Term {
	return term.Const{Value: term.NewInteger(big.NewInt(n))}
}

// (lam #0) 5 should reduce straight to the constant 5.
func TestExecuteIdentityApplication(t *testing.T) {
	program := term.Apply{
		Function: term.Lambda{Body: term.Var{DeBruijn: 0}},
		Argument: constInt(5),
	}
	snaps := Execute(program, diagnostics.Discard)

	last := snaps[len(snaps)-1].State
	done, ok := last.(Done)
	if !ok {
		t.Fatalf("final state = %T, want Done", last)
	}
	got, ok := done.Term.(term.Const)
	if !ok {
		t.Fatalf("Done.Term = %T, want term.Const", done.Term)
	}
	if got.Value.Integer.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("result = %s, want 5", got.Value.Integer)
	}
}

// [[(builtin addInteger) 2] 3] should reduce to 5.
func TestExecuteAddIntegerBuiltin(t *testing.T) {
	program := term.Apply{
		Function: term.Apply{
			Function: term.Builtin{Name: term.AddInteger},
			Argument: constInt(2),
		},
		Argument: constInt(3),
	}
	snaps := Execute(program, diagnostics.Discard)

	done, ok := snaps[len(snaps)-1].State.(Done)
	if !ok {
		t.Fatalf("final state = %T, want Done", snaps[len(snaps)-1].State)
	}
	got, ok := done.Term.(term.Const)
	if !ok {
		t.Fatalf("Done.Term = %T, want term.Const", done.Term)
	}
	if got.Value.Integer.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("result = %s, want 5", got.Value.Integer)
	}
}

// A free variable reference fails and surfaces as Done(ErrorTerm), with
// a diagnostic reported rather than Execute itself erroring.
func TestExecuteFreeVariableProducesErrorTerm(t *testing.T) {
	recorder := diagnostics.NewRecorder()

	program := term.Var{DeBruijn: 0}
	snaps := Execute(program, recorder)

	done, ok := snaps[len(snaps)-1].State.(Done)
	if !ok {
		t.Fatalf("final state = %T, want Done", snaps[len(snaps)-1].State)
	}
	if _, ok := done.Term.(term.ErrorTerm); !ok {
		t.Errorf("Done.Term = %T, want term.ErrorTerm", done.Term)
	}
	entries := recorder.Entries()
	if len(entries) != 1 {
		t.Fatalf("reported %d diagnostics, want 1", len(entries))
	}
	if entries[0].Kind != diagnostics.KindFreeVariable {
		t.Errorf("diagnostic Kind = %v, want KindFreeVariable", entries[0].Kind)
	}
}

// A Case whose scrutinee is a constructor whose tag has no matching branch
// (tag 3 against one branch) fails as an out-of-bounds tag, absorbed the
// same way.
func TestExecuteOutOfBoundsTag(t *testing.T) {
	program := term.Case{
		Scrutinee: term.Constr{Tag: 3, Fields: nil},
		Branches:  []term.Term{constInt(1)},
	}

	recorder := diagnostics.NewRecorder()
	snaps := Execute(program, recorder)

	done, ok := snaps[len(snaps)-1].State.(Done)
	if !ok {
		t.Fatalf("final state = %T, want Done", snaps[len(snaps)-1].State)
	}
	if _, ok := done.Term.(term.ErrorTerm); !ok {
		t.Errorf("Done.Term = %T, want term.ErrorTerm", done.Term)
	}
	entries := recorder.Entries()
	if len(entries) != 1 || entries[0].Kind != diagnostics.KindOutOfBoundsTag {
		t.Errorf("reported = %+v, want a single KindOutOfBoundsTag diagnostic", entries)
	}
}

func TestDischargeConstant(t *testing.T) {
	v := value.Constant{Value: term.NewInteger(big.NewInt(7))}
	got := Discharge(v)
	c, ok := got.(term.Const)
	if !ok {
		t.Fatalf("Discharge(Constant) = %T, want term.Const", got)
	}
	if c.Value.Integer.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("Discharge(Constant) = %s, want 7", c.Value.Integer)
	}
}

func TestDischargeConstrValue(t *testing.T) {
	v := value.ConstrValue{Tag: 1, Fields: []value.Value{value.Constant{Value: term.NewInteger(big.NewInt(9))}}}
	got := Discharge(v)
	c, ok := got.(term.Constr)
	if !ok {
		t.Fatalf("Discharge(ConstrValue) = %T, want term.Constr", got)
	}
	if c.Tag != 1 || len(c.Fields) != 1 {
		t.Errorf("Discharge(ConstrValue) = %+v, want Tag=1 with one field", c)
	}
}
