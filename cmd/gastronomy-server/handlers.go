package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/tracebuilder"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/value"
)

// errorResponse is how every handler reports a failure: a stringified
// diagnostic, per §6's "errors are returned as stringified diagnostics".
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// POST /traces — create_traces(file, parameters) -> {identifiers}
func (s *server) createTraces(w http.ResponseWriter, r *http.Request) {
	var req createTracesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	identifiers, err := s.createTracesImpl(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Identifiers []string `json:"identifiers"`
	}{Identifiers: identifiers})
}

// GET /traces/{id}/summary — get_trace_summary(identifier) -> {frame_count, source_token_indices}
func (s *server) getTraceSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := s.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownTrace(id))
		return
	}
	summary, err := t.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		FrameCount         int   `json:"frame_count"`
		SourceTokenIndices []int `json:"source_token_indices"`
	}{FrameCount: summary.FrameCount, SourceTokenIndices: summary.SourceTokenIndices})
}

// GET /traces/{id}/frames/{index} — get_frame(identifier, frame_index) -> {frame}
func (s *server) getFrame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := s.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownTrace(id))
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	frame, err := t.Frame(r.Context(), index)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, renderFrame(frame))
}

// GET /traces/{id}/source?root=... — get_source(identifier, source_root) -> {files}
func (s *server) getSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := s.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownTrace(id))
		return
	}
	root := r.URL.Query().Get("root")
	files, err := t.ReadSource(r.Context(), root)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rendered := make(map[string]string, len(files))
	for name, content := range files {
		rendered[name] = string(content)
	}
	writeJSON(w, http.StatusOK, struct {
		Files map[string]string `json:"files"`
	}{Files: rendered})
}

func errUnknownTrace(id string) error {
	return fmt.Errorf("no such trace %q", id)
}

// renderedFrame is the JSON shape get_frame responds with: every field
// of tracebuilder.RawFrame except the numeric Budget rendered to a
// display string, since the
// service API's consumers are never other Go processes sharing the
// borrow-scoped internal types.
type renderedFrame struct {
	Label         string `json:"label"`
	Context       string `json:"context"`
	Env           string `json:"env"`
	Term          string `json:"term"`
	ProducedValue string `json:"produced_value,omitempty"`
	Location      string `json:"location"`
	Budget        struct {
		CumulativeSteps int64 `json:"cumulative_steps"`
		CumulativeMem   int64 `json:"cumulative_mem"`
		StepDelta       int64 `json:"step_delta"`
		MemDelta        int64 `json:"mem_delta"`
	} `json:"budget"`
}

// envString renders an environment's bindings innermost-first, as a
// bracketed comma-separated list.
func envString(env *value.Env) string {
	bindings := env.Bindings()
	s := "["
	for i, v := range bindings {
		if i > 0 {
			s += ", "
		}
		s += v.String()
	}
	return s + "]"
}

func renderFrame(f tracebuilder.RawFrame) renderedFrame {
	out := renderedFrame{
		Label:    f.Label.String(),
		Location: f.Location,
	}
	if f.Context != nil {
		out.Context = f.Context.String()
	}
	out.Env = envString(f.Env)
	if f.Term != nil {
		out.Term = f.Term.String()
	}
	if f.ProducedValue != nil {
		out.ProducedValue = f.ProducedValue.String()
	}
	out.Budget.CumulativeSteps = f.Budget.CumulativeSteps
	out.Budget.CumulativeMem = f.Budget.CumulativeMem
	out.Budget.StepDelta = f.Budget.StepDelta
	out.Budget.MemDelta = f.Budget.MemDelta
	return out
}
