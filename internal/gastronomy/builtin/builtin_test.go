package builtin

import (
	"math/big"
	"testing"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/value"
)

func intV(n int64) value.Value  { return value.Constant{Value: term.NewInteger(big.NewInt(n))} }
func boolV(b bool) value.Value  { return value.Constant{Value: term.NewBool(b)} }
func bytesV(b []byte) value.Value { return value.Constant{Value: term.NewByteString(b)} }

func asInt(t *testing.T, v value.Value) *big.Int {
	t.Helper()
	c, ok := v.(value.Constant)
	if !ok || c.Value.Tag != term.TagInteger {
		t.Fatalf("value = %v, want an integer constant", v)
	}
	return c.Value.Integer
}

func asBoolValue(t *testing.T, v value.Value) bool {
	t.Helper()
	c, ok := v.(value.Constant)
	if !ok || c.Value.Tag != term.TagBool {
		t.Fatalf("value = %v, want a bool constant", v)
	}
	return c.Value.Bool
}

// New(AddInteger) starts with no arguments and no forces owed; two
// ApplyArg calls saturate it straight to a result.
func TestNewAndApplyArgSaturates(t *testing.T) {
	b := New(term.AddInteger)
	if b.Arity != 2 || b.ForcesRemaining != 0 {
		t.Fatalf("New(AddInteger) = %+v, want Arity=2 ForcesRemaining=0", b)
	}

	partial, err := ApplyArg(b, intV(2))
	if err != nil {
		t.Fatalf("ApplyArg: %v", err)
	}
	bip, ok := partial.(value.BuiltinInProgress)
	if !ok {
		t.Fatalf("after one arg: %T, want still BuiltinInProgress", partial)
	}

	result, err := ApplyArg(bip, intV(3))
	if err != nil {
		t.Fatalf("ApplyArg: %v", err)
	}
	if got := asInt(t, result); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("AddInteger(2,3) = %s, want 5", got)
	}
}

// A too-many-arguments call is rejected rather than silently dropped.
func TestApplyArgRejectsOverSaturation(t *testing.T) {
	// AddInteger has arity 2; hand it three arguments directly by
	// pre-filling Args, simulating a caller that mis-tracked saturation.
	bip := value.BuiltinInProgress{ID: term.AddInteger, Arity: 2, Args: []value.Value{intV(1), intV(2)}}
	if _, err := ApplyArg(bip, intV(3)); err == nil {
		t.Error("ApplyArg beyond arity: want error, got nil")
	}
}

// IfThenElse needs one force before its three arguments can be supplied.
func TestApplyForceThenArgsForIfThenElse(t *testing.T) {
	b := New(term.IfThenElse)
	if b.Arity != 3 || b.ForcesRemaining != 1 {
		t.Fatalf("New(IfThenElse) = %+v, want Arity=3 ForcesRemaining=1", b)
	}

	forced, err := ApplyForce(b)
	if err != nil {
		t.Fatalf("ApplyForce: %v", err)
	}
	bip, ok := forced.(value.BuiltinInProgress)
	if !ok || bip.ForcesRemaining != 0 {
		t.Fatalf("after force: %+v, want ForcesRemaining=0", forced)
	}

	step1, err := ApplyArg(bip, boolV(true))
	if err != nil {
		t.Fatalf("ApplyArg(cond): %v", err)
	}
	step2, err := ApplyArg(step1.(value.BuiltinInProgress), intV(10))
	if err != nil {
		t.Fatalf("ApplyArg(then): %v", err)
	}
	result, err := ApplyArg(step2.(value.BuiltinInProgress), intV(20))
	if err != nil {
		t.Fatalf("ApplyArg(else): %v", err)
	}
	if got := asInt(t, result); got.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("IfThenElse(true,10,20) = %s, want 10", got)
	}
}

// A force applied to an already-saturated-on-forces builtin is rejected.
func TestApplyForceRejectsOverForcing(t *testing.T) {
	b := New(term.AddInteger) // zero forces owed
	if _, err := ApplyForce(b); err == nil {
		t.Error("ApplyForce on a zero-forces builtin: want error, got nil")
	}
}

func TestEvalEqualsByteString(t *testing.T) {
	result, err := Eval(term.EqualsByteString, []value.Value{bytesV([]byte("abc")), bytesV([]byte("abc"))})
	if err != nil {
		t.Fatalf("Eval(EqualsByteString): %v", err)
	}
	if !asBoolValue(t, result) {
		t.Error("EqualsByteString(abc,abc) = false, want true")
	}
}

func TestEvalLessThanIntegerFalse(t *testing.T) {
	result, err := Eval(term.LessThanInteger, []value.Value{intV(5), intV(3)})
	if err != nil {
		t.Fatalf("Eval(LessThanInteger): %v", err)
	}
	if asBoolValue(t, result) {
		t.Error("LessThanInteger(5,3) = true, want false")
	}
}

func TestSignatureOfUnknownIDFallsBackToZero(t *testing.T) {
	sig := SignatureOf(term.BuiltinID(-1))
	if sig.Arity != 0 || sig.Forces != 0 {
		t.Errorf("SignatureOf(unknown) = %+v, want the zero signature", sig)
	}
}
