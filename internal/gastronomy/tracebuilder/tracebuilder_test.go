package tracebuilder

import (
	"testing"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/context"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/cost"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/machine"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/sourcemap"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/value"
)

func idx(i int64) *term.Index { return term.WithIndex(i) }

func budgetAfter(steps, mem int64) cost.Budget {
	b := cost.NewBudget()
	b, _ = b.Apply(cost.Charge{Steps: steps, Mem: mem})
	return b
}

func TestBuildFramesComputeTakesOwnLocation(t *testing.T) {
	sm := sourcemap.New()
	sm.Set(1, sourcemap.Location{File: "v.ak", Line: 3, Column: 1})

	v := term.Var{Base: term.Base{Idx: idx(1)}, DeBruijn: 0}
	snaps := []machine.Snapshot{
		{State: machine.Compute{Context: context.Empty{}, Env: nil, Term: v}, Budget: budgetAfter(1, 0)},
	}

	frames := BuildFrames(snaps, sm)
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
	if frames[0].Label != LabelCompute {
		t.Errorf("Label = %v, want LabelCompute", frames[0].Label)
	}
	if frames[0].Location != "v.ak:3:1" {
		t.Errorf("Location = %q, want %q", frames[0].Location, "v.ak:3:1")
	}
}

func TestBuildFramesReturnBorrowsFromLastCompute(t *testing.T) {
	sm := sourcemap.New()
	sm.Set(1, sourcemap.Location{File: "v.ak", Line: 3, Column: 1})

	computeTerm := term.Var{Base: term.Base{Idx: idx(1)}, DeBruijn: 0}
	env := value.Empty.Extend(value.Constant{Value: term.NewInteger(nil)})
	producedValue := value.Constant{Value: term.NewInteger(nil)}

	snaps := []machine.Snapshot{
		{State: machine.Compute{Context: context.Empty{}, Env: env, Term: computeTerm}, Budget: budgetAfter(1, 0)},
		{State: machine.Return{Context: context.Force{}, Value: producedValue}, Budget: budgetAfter(2, 0)},
	}

	frames := BuildFrames(snaps, sm)
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	ret := frames[1]
	if ret.Label != LabelReturn {
		t.Fatalf("Label = %v, want LabelReturn", ret.Label)
	}
	if ret.Env != env {
		t.Errorf("Return frame's Env = %v, want borrowed from the Compute frame", ret.Env)
	}
	if ret.Term != computeTerm {
		t.Errorf("Return frame's Term = %v, want borrowed from the Compute frame", ret.Term)
	}
	if ret.Location != "v.ak:3:1" {
		t.Errorf("Return frame's Location = %q, want borrowed %q", ret.Location, "v.ak:3:1")
	}
	if ret.Context != (context.Force{}) {
		t.Errorf("Return frame's Context = %v, want its own Force context, not borrowed", ret.Context)
	}
	if ret.ProducedValue != producedValue {
		t.Errorf("Return frame's ProducedValue = %v, want %v", ret.ProducedValue, producedValue)
	}
}

func TestBuildFramesDonePrefersOwnLocation(t *testing.T) {
	sm := sourcemap.New()
	sm.Set(1, sourcemap.Location{File: "v.ak", Line: 3, Column: 1})
	sm.Set(2, sourcemap.Location{File: "v.ak", Line: 9, Column: 2})

	computeTerm := term.Var{Base: term.Base{Idx: idx(1)}, DeBruijn: 0}
	env := value.Empty.Extend(value.Constant{Value: term.NewInteger(nil)})
	doneTerm := term.Const{Base: term.Base{Idx: idx(2)}, Value: term.NewInteger(nil)}

	snaps := []machine.Snapshot{
		{State: machine.Compute{Context: context.Empty{}, Env: env, Term: computeTerm}, Budget: budgetAfter(1, 0)},
		{State: machine.Done{Term: doneTerm}, Budget: budgetAfter(2, 0)},
	}

	frames := BuildFrames(snaps, sm)
	done := frames[1]
	if done.Label != LabelDone {
		t.Fatalf("Label = %v, want LabelDone", done.Label)
	}
	if done.Env != env {
		t.Errorf("Done frame's Env = %v, want inherited from the Compute frame", done.Env)
	}
	if done.Location != "v.ak:9:2" {
		t.Errorf("Done frame's Location = %q, want its own node's location %q", done.Location, "v.ak:9:2")
	}
}

func TestBuildFramesDoneFallsBackWhenUnindexed(t *testing.T) {
	sm := sourcemap.New()
	sm.Set(1, sourcemap.Location{File: "v.ak", Line: 3, Column: 1})

	computeTerm := term.Var{Base: term.Base{Idx: idx(1)}, DeBruijn: 0}
	doneTerm := term.NewErrorTerm(nil)

	snaps := []machine.Snapshot{
		{State: machine.Compute{Context: context.Empty{}, Term: computeTerm}, Budget: budgetAfter(1, 0)},
		{State: machine.Done{Term: doneTerm}, Budget: budgetAfter(1, 0)},
	}

	frames := BuildFrames(snaps, sm)
	done := frames[1]
	if done.Location != "v.ak:3:1" {
		t.Errorf("Done frame's Location = %q, want the inherited fallback %q", done.Location, "v.ak:3:1")
	}
}

func TestBuildFramesBudgetDeltas(t *testing.T) {
	sm := sourcemap.New()
	computeTerm := term.Var{DeBruijn: 0}

	snaps := []machine.Snapshot{
		{State: machine.Compute{Term: computeTerm}, Budget: budgetAfter(1, 1)},
		{State: machine.Compute{Term: computeTerm}, Budget: budgetAfter(4, 2)},
	}

	frames := BuildFrames(snaps, sm)
	if frames[0].Budget.StepDelta != 1 || frames[0].Budget.MemDelta != 1 {
		t.Errorf("first frame delta = %+v, want {StepDelta:1 MemDelta:1 ...}", frames[0].Budget)
	}
	if frames[1].Budget.StepDelta != 3 || frames[1].Budget.MemDelta != 1 {
		t.Errorf("second frame delta = %+v, want {StepDelta:3 MemDelta:1 ...}", frames[1].Budget)
	}
	if frames[1].Budget.CumulativeSteps != 4 || frames[1].Budget.CumulativeMem != 2 {
		t.Errorf("second frame cumulative = %+v, want {CumulativeSteps:4 CumulativeMem:2 ...}", frames[1].Budget)
	}
}

func TestFindSourceTokenIndices(t *testing.T) {
	frames := []RawFrame{
		{Location: "a.ak:1:1"},
		{Location: "a.ak:1:1"},
		{Location: "a.ak:2:1"},
		{Location: "a.ak:2:1"},
		{Location: "b.ak:1:1"},
	}
	got := FindSourceTokenIndices(frames)
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("FindSourceTokenIndices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindSourceTokenIndices[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
