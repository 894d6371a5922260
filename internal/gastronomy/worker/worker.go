// Package worker gives each built trace a dedicated goroutine that owns
// its snapshot-derived frames exclusively and services summary/frame/
// source-read requests over a bounded queue with one-shot reply
// channels. This is the concurrency primitive behind a request/response
// front-end: the machine driver itself stays single-threaded and
// synchronous, producing the full frame list before any worker exists.
package worker

import (
	"context"
	"fmt"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/sourceresolver"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/tracebuilder"
)

// queueDepth bounds how many requests may be outstanding against a trace
// worker before callers block submitting more.
const queueDepth = 16

// Summary is the cheap, whole-trace view get_trace_summary returns.
type Summary struct {
	FrameCount         int
	SourceTokenIndices []int
}

type requestKind int

const (
	requestSummary requestKind = iota
	requestFrame
	requestSource
)

type request struct {
	kind       requestKind
	frameIndex int
	sourceRoot string
	reply      chan response
}

type response struct {
	summary Summary
	frame   tracebuilder.RawFrame
	files   map[string][]byte
	err     error
}

// Trace owns one built trace's frames and services requests against
// them from a single goroutine, so the frames themselves never need
// synchronization.
type Trace struct {
	Identifier string
	Filename   string

	queue chan request
	done  chan struct{}
}

// NewTrace starts a worker owning frames and returns a handle to it. The
// caller must call Close when the trace is no longer needed, releasing
// the worker goroutine.
func NewTrace(identifier, filename string, frames []tracebuilder.RawFrame) *Trace {
	t := &Trace{
		Identifier: identifier,
		Filename:   filename,
		queue:      make(chan request, queueDepth),
		done:       make(chan struct{}),
	}
	go t.run(frames)
	return t
}

func (t *Trace) run(frames []tracebuilder.RawFrame) {
	defer close(t.done)
	tokenIndices := tracebuilder.FindSourceTokenIndices(frames)

	for req := range t.queue {
		switch req.kind {
		case requestSummary:
			req.reply <- response{summary: Summary{
				FrameCount:         len(frames),
				SourceTokenIndices: tokenIndices,
			}}

		case requestFrame:
			if req.frameIndex < 0 || req.frameIndex >= len(frames) {
				req.reply <- response{err: fmt.Errorf("frame index %d out of range [0,%d)", req.frameIndex, len(frames))}
				continue
			}
			req.reply <- response{frame: frames[req.frameIndex]}

		case requestSource:
			files, err := sourceresolver.ReadSourceFiles(req.sourceRoot, filenamesOf(frames))
			req.reply <- response{files: files, err: err}
		}
	}
}

// Close stops the worker goroutine. Pending requests submitted before
// Close is called are still serviced; no new request may be submitted
// afterward.
func (t *Trace) Close() {
	close(t.queue)
	<-t.done
}

// Summary returns the trace's frame count and derived source-token
// indices.
func (t *Trace) Summary(ctx context.Context) (Summary, error) {
	resp, err := t.do(ctx, request{kind: requestSummary})
	if err != nil {
		return Summary{}, err
	}
	return resp.summary, resp.err
}

// Frame returns the frame at index i.
func (t *Trace) Frame(ctx context.Context, i int) (tracebuilder.RawFrame, error) {
	resp, err := t.do(ctx, request{kind: requestFrame, frameIndex: i})
	if err != nil {
		return tracebuilder.RawFrame{}, err
	}
	if resp.err != nil {
		return tracebuilder.RawFrame{}, resp.err
	}
	return resp.frame, nil
}

// ReadSource resolves every filename the trace's frames reference
// against root, per sourceresolver's search path.
func (t *Trace) ReadSource(ctx context.Context, root string) (map[string][]byte, error) {
	resp, err := t.do(ctx, request{kind: requestSource, sourceRoot: root})
	if err != nil {
		return nil, err
	}
	return resp.files, resp.err
}

// do submits req to the worker and waits for its one-shot reply,
// honoring ctx cancellation on both submission and receipt.
func (t *Trace) do(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)
	select {
	case t.queue <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func filenamesOf(frames []tracebuilder.RawFrame) []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range frames {
		name := sourceresolver.FilenameOfLocation(f.Location)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
