package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/chainquery"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/config"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/diagnostics"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/loader"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/machine"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/tracebuilder"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/worker"
)

// server owns the registry of traces created by create_traces, each
// fronted by its own worker.Trace. The registry itself is the only
// piece needing a mutex: every request past creation goes straight to
// the named trace's own worker goroutine.
type server struct {
	cfg      *config.Config
	provider chainquery.Provider

	mu     sync.Mutex
	traces map[string]*worker.Trace
}

func newServer(cfg *config.Config, provider chainquery.Provider) *server {
	return &server{
		cfg:      cfg,
		provider: provider,
		traces:   make(map[string]*worker.Trace),
	}
}

// createTracesRequest is create_traces's JSON body.
type createTracesRequest struct {
	File       string   `json:"file"`
	Parameters []string `json:"parameters"`
}

// createTracesImpl loads file, applies parameters, executes every
// resulting program, and registers one worker per program.
func (s *server) createTracesImpl(ctx context.Context, req createTracesRequest) ([]string, error) {
	overrides, err := s.overrides()
	if err != nil {
		return nil, err
	}
	programs, err := loader.Load(ctx, req.File, s.provider, overrides)
	if err != nil {
		return nil, err
	}

	parameters := make([]*term.PlutusData, 0, len(req.Parameters))
	for i, hexStr := range req.Parameters {
		p, err := loader.ParseParameter(i, hexStr)
		if err != nil {
			return nil, fmt.Errorf("bad parameter %d: %w", i, err)
		}
		parameters = append(parameters, p)
	}

	var identifiers []string
	for _, program := range programs {
		applied := program
		if len(parameters) > 0 {
			applied, err = loader.ApplyParameters(program, parameters)
			if err != nil {
				return nil, err
			}
		}

		snapshots := machine.Execute(applied.Root, diagnostics.Discard)
		frames := tracebuilder.BuildFrames(snapshots, applied.SourceMap)

		id := uuid.NewString()
		s.mu.Lock()
		s.traces[id] = worker.NewTrace(id, applied.Filename, frames)
		s.mu.Unlock()
		identifiers = append(identifiers, id)
	}
	return identifiers, nil
}

func (s *server) overrides() (map[string]loader.ScriptOverride, error) {
	overrides := make(map[string]loader.ScriptOverride)
	for _, sc := range s.cfg.ScriptOverrides {
		data, err := os.ReadFile(sc.FilePath)
		if err != nil {
			return nil, fmt.Errorf("script override: reading %s: %w", sc.FilePath, err)
		}
		overrides[sc.FromHash] = loader.ScriptOverride{ReplacementBytes: data, ScriptVersion: sc.ScriptVersion}
	}
	return overrides, nil
}

func (s *server) lookup(id string) (*worker.Trace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.traces[id]
	return t, ok
}
