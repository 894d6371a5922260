// Package tracebuilder turns a raw machine.Snapshot sequence into the
// frame sequence a debugger front-end steps through: one frame per
// transition, with the Return and Done cases borrowing environment, term
// and location from the most recent Compute frame, and each frame
// carrying the budget delta the preceding transition charged.
package tracebuilder

import (
	"github.com/plutus-tools/gastronomy/internal/gastronomy/context"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/cost"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/machine"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/sourcemap"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/value"
)

// Label identifies which of the three machine states a frame was built
// from.
type Label int

const (
	LabelCompute Label = iota
	LabelReturn
	LabelDone
)

func (l Label) String() string {
	switch l {
	case LabelCompute:
		return "Compute"
	case LabelReturn:
		return "Return"
	case LabelDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// BudgetDelta reports both the running totals and the cost the single
// transition producing this frame incurred.
type BudgetDelta struct {
	CumulativeSteps int64
	CumulativeMem   int64
	StepDelta       int64
	MemDelta        int64
}

// RawFrame is one step of a built trace. Return frames borrow Env, Term
// and Location from the most recent Compute frame; Done frames borrow Env
// but keep their own Term, per the borrowing rules documented on
// BuildFrames.
type RawFrame struct {
	Label         Label
	Context       context.Context
	Env           *value.Env
	Term          term.Term
	ProducedValue value.Value
	Location      string
	Budget        BudgetDelta
}

// BuildFrames walks a machine.Execute snapshot sequence into RawFrames.
//
// On Compute(ctx,env,t): the frame takes ctx, env and t verbatim; its
// location is source_map[t.index] if the node carries an index present
// in sm, else the previous frame's location.
//
// On Return(ctx,v): the frame's Context is the Return state's own ctx
// (what it is about to hand v to), but Env, Term and Location are
// borrowed from the most recently emitted Compute frame; ProducedValue
// is v.
//
// On Done(t): Context and Env are inherited from the most recent Compute
// frame; Term is the Done state's own discharged term. Location prefers
// source_map[t.index], falling back to the inherited location.
//
// Every frame's Budget is the cumulative (steps, mem) the snapshot
// carries, alongside the delta against the previous frame's cumulative
// totals.
func BuildFrames(snapshots []machine.Snapshot, sm *sourcemap.SourceMap) []RawFrame {
	frames := make([]RawFrame, 0, len(snapshots))
	var prevSteps, prevMem int64
	var lastCompute *RawFrame

	for _, snap := range snapshots {
		delta := deltaFor(snap.Budget, &prevSteps, &prevMem)

		switch s := snap.State.(type) {
		case machine.Compute:
			loc := ""
			if lastCompute != nil {
				loc = lastCompute.Location
			}
			loc = locationFor(sm, s.Term.NodeIndex(), loc)
			f := RawFrame{
				Label:    LabelCompute,
				Context:  s.Context,
				Env:      s.Env,
				Term:     s.Term,
				Location: loc,
				Budget:   delta,
			}
			frames = append(frames, f)
			lastCompute = &frames[len(frames)-1]

		case machine.Return:
			f := RawFrame{
				Label:         LabelReturn,
				Context:       s.Context,
				ProducedValue: s.Value,
				Budget:        delta,
			}
			if lastCompute != nil {
				f.Env = lastCompute.Env
				f.Term = lastCompute.Term
				f.Location = lastCompute.Location
			}
			frames = append(frames, f)

		case machine.Done:
			f := RawFrame{
				Label:  LabelDone,
				Term:   s.Term,
				Budget: delta,
			}
			fallback := ""
			if lastCompute != nil {
				f.Context = lastCompute.Context
				f.Env = lastCompute.Env
				fallback = lastCompute.Location
			}
			f.Location = locationFor(sm, s.Term.NodeIndex(), fallback)
			frames = append(frames, f)
		}
	}
	return frames
}

// locationFor looks up idx in sm, returning its string location if
// present and falling back to fallback otherwise.
func locationFor(sm *sourcemap.SourceMap, idx *term.Index, fallback string) string {
	if sm == nil || idx == nil {
		return fallback
	}
	loc, ok := sm.Lookup(*idx)
	if !ok {
		return fallback
	}
	return loc.String()
}

// deltaFor computes the cumulative/delta budget pair for b, advancing
// prevSteps and prevMem to b's cumulative totals.
func deltaFor(b cost.Budget, prevSteps, prevMem *int64) BudgetDelta {
	steps := b.CumulativeSteps()
	mem := b.CumulativeMem()
	d := BudgetDelta{
		CumulativeSteps: steps,
		CumulativeMem:   mem,
		StepDelta:       steps - *prevSteps,
		MemDelta:        mem - *prevMem,
	}
	*prevSteps = steps
	*prevMem = mem
	return d
}

// FindSourceTokenIndices returns the ordered frame positions where
// Location differs from the previous frame's (or appears for the first
// time): the positions a source-level stepper should stop at.
func FindSourceTokenIndices(frames []RawFrame) []int {
	var out []int
	prev := ""
	for i, f := range frames {
		if i == 0 || f.Location != prev {
			out = append(out, i)
		}
		prev = f.Location
	}
	return out
}
