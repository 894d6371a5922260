package gastronomy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/loader"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/machine"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/tracebuilder"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/value"
)

// Debug loads req.Path, applies req.ParameterHex in order, executes each
// resulting program to completion, and builds the display trace for
// each. A transaction-shape path yields one ExecutionTrace per
// script-executing redeemer; every other shape yields exactly one.
func Debug(ctx context.Context, req DebugRequest) ([]ExecutionTrace, error) {
	programs, err := loader.Load(ctx, req.Path, req.Provider, req.Overrides)
	if err != nil {
		return nil, wrapLoadError(err)
	}

	parameters := make([]*term.PlutusData, 0, len(req.ParameterHex))
	for i, hexStr := range req.ParameterHex {
		p, err := loader.ParseParameter(i, hexStr)
		if err != nil {
			return nil, newError(KindBadParameter, fmt.Sprintf("parameter %d", i), err)
		}
		parameters = append(parameters, p)
	}

	traces := make([]ExecutionTrace, 0, len(programs))
	for _, program := range programs {
		applied := program
		if len(parameters) > 0 {
			applied, err = loader.ApplyParameters(program, parameters)
			if err != nil {
				return nil, newError(KindBadParameter, "applying parameters", err)
			}
		}

		reporter := req.Reporter
		snapshots := machine.Execute(applied.Root, reporter)
		frames := tracebuilder.BuildFrames(snapshots, applied.SourceMap)

		traces = append(traces, ExecutionTrace{
			Identifier:         uuid.NewString(),
			Filename:           applied.Filename,
			Frames:             projectFrames(frames),
			SourceTokenIndices: tracebuilder.FindSourceTokenIndices(frames),
		})
	}
	return traces, nil
}

func projectFrames(frames []tracebuilder.RawFrame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		produced := ""
		if f.ProducedValue != nil {
			produced = f.ProducedValue.String()
		}
		ctxStr := ""
		if f.Context != nil {
			ctxStr = f.Context.String()
		}
		termStr := ""
		if f.Term != nil {
			termStr = f.Term.String()
		}
		out[i] = Frame{
			Label:         f.Label.String(),
			Context:       ctxStr,
			Env:           envStrings(f.Env),
			Term:          termStr,
			ProducedValue: produced,
			Location:      f.Location,
			Budget: BudgetDelta{
				CumulativeSteps: f.Budget.CumulativeSteps,
				CumulativeMem:   f.Budget.CumulativeMem,
				StepDelta:       f.Budget.StepDelta,
				MemDelta:        f.Budget.MemDelta,
			},
		}
	}
	return out
}

func envStrings(env *value.Env) []string {
	bindings := env.Bindings()
	out := make([]string, len(bindings))
	for i, v := range bindings {
		out[i] = v.String()
	}
	return out
}
