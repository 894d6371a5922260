package value

import (
	"math/big"
	"testing"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
)

func constValue(i int64) Constant {
	return Constant{Value: term.NewInteger(big.NewInt(i))}
}

func TestEnvEmpty(t *testing.T) {
	var e *Env
	if e.Len() != 0 {
		t.Errorf("Len() on nil env = %d, want 0", e.Len())
	}
	if bindings := e.Bindings(); len(bindings) != 0 {
		t.Errorf("Bindings() on nil env = %v, want empty", bindings)
	}
	if _, err := e.Get(0); err == nil {
		t.Errorf("Get(0) on empty env: want error, got nil")
	}
}

func TestEnvExtendAndGet(t *testing.T) {
	v0 := constValue(0)
	v1 := constValue(1)
	v2 := constValue(2)

	e := Empty.Extend(v0).Extend(v1).Extend(v2)

	if got := e.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	got, err := e.Get(0)
	if err != nil {
		t.Fatalf("Get(0) error: %v", err)
	}
	if got != Value(v2) {
		t.Errorf("Get(0) = %v, want the most recently bound value", got)
	}

	got, err = e.Get(2)
	if err != nil {
		t.Fatalf("Get(2) error: %v", err)
	}
	if got != Value(v0) {
		t.Errorf("Get(2) = %v, want the first bound value", got)
	}
}

func TestEnvGetOutOfRange(t *testing.T) {
	e := Empty.Extend(constValue(0))
	if _, err := e.Get(1); err == nil {
		t.Error("Get(1) on a depth-1 env: want error, got nil")
	}
}

func TestEnvExtendDoesNotMutateParent(t *testing.T) {
	base := Empty.Extend(constValue(0))
	child := base.Extend(constValue(1))

	if base.Len() != 1 {
		t.Errorf("parent Len() = %d after child Extend, want unchanged 1", base.Len())
	}
	if child.Len() != 2 {
		t.Errorf("child Len() = %d, want 2", child.Len())
	}
}

func TestEnvBindingsOrder(t *testing.T) {
	v0, v1 := constValue(0), constValue(1)
	e := Empty.Extend(v0).Extend(v1)

	bindings := e.Bindings()
	if len(bindings) != 2 {
		t.Fatalf("Bindings() length = %d, want 2", len(bindings))
	}
	if bindings[0] != Value(v1) || bindings[1] != Value(v0) {
		t.Errorf("Bindings() = %v, want innermost-first [v1, v0]", bindings)
	}
}
