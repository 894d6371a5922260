package cost

import (
	"testing"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
)

func TestNewBudgetStartsAtCeiling(t *testing.T) {
	b := NewBudget()
	if b.CumulativeSteps() != 0 {
		t.Errorf("CumulativeSteps() = %d, want 0", b.CumulativeSteps())
	}
	if b.CumulativeMem() != 0 {
		t.Errorf("CumulativeMem() = %d, want 0", b.CumulativeMem())
	}
}

func TestBudgetApplySuccess(t *testing.T) {
	b := NewBudget()
	next, ok := b.Apply(Charge{Steps: 10, Mem: 2})
	if !ok {
		t.Fatal("Apply: want ok, got false")
	}
	if next.CumulativeSteps() != 10 {
		t.Errorf("CumulativeSteps() = %d, want 10", next.CumulativeSteps())
	}
	if next.CumulativeMem() != 2 {
		t.Errorf("CumulativeMem() = %d, want 2", next.CumulativeMem())
	}
}

func TestBudgetApplyExhaustion(t *testing.T) {
	b := Budget{RemainingSteps: 5, RemainingMem: 5}
	next, ok := b.Apply(Charge{Steps: 10, Mem: 0})
	if ok {
		t.Fatal("Apply: want exhaustion, got ok")
	}
	if next != b {
		t.Errorf("Apply on failure returned %+v, want unmodified %+v", next, b)
	}
}

func TestChargeForKnownRule(t *testing.T) {
	c := ChargeFor(RuleComputeLambda)
	if c.Steps != 1 || c.Mem != 1 {
		t.Errorf("ChargeFor(RuleComputeLambda) = %+v, want {1 1}", c)
	}
}

func TestChargeForUnreferencedRule(t *testing.T) {
	// RuleReturnAwaitFunValue is never produced by ruleFor but still
	// carries a table entry.
	c := ChargeFor(RuleReturnAwaitFunValue)
	if c.Steps != 1 || c.Mem != 1 {
		t.Errorf("ChargeFor(RuleReturnAwaitFunValue) = %+v, want {1 1}", c)
	}
}

func TestBuiltinChargeKnownScalesWithArgSize(t *testing.T) {
	small := BuiltinCharge(term.AddInteger, []int64{1, 1})
	large := BuiltinCharge(term.AddInteger, []int64{10, 10})
	if large.Steps <= small.Steps {
		t.Errorf("BuiltinCharge should scale with argument size: small=%+v large=%+v", small, large)
	}
}

func TestBuiltinChargeUnknownIDFallsBack(t *testing.T) {
	c := BuiltinCharge(term.BuiltinID(-1), nil)
	if c.Steps != 100 || c.Mem != 1 {
		t.Errorf("BuiltinCharge(unknown) = %+v, want the default {100 1}", c)
	}
}

func TestArgSizeInteger(t *testing.T) {
	c := &term.Constant{Tag: term.TagInteger}
	if got := ArgSize(c); got < 1 {
		t.Errorf("ArgSize(nil-valued integer) = %d, want >= 1", got)
	}
}

func TestArgSizeByteString(t *testing.T) {
	c := &term.Constant{Tag: term.TagByteString, ByteString: make([]byte, 16)}
	if got := ArgSize(c); got != 2 {
		t.Errorf("ArgSize(16-byte string) = %d, want 2", got)
	}
}
