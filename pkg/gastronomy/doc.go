// Package gastronomy provides a small-step debugger for Untyped Plutus
// Core programs: load a compiled script, a structured export, or a
// transaction, apply its parameters, and step it through the CEK
// machine to a fully materialized execution trace.
//
// # Quick Start
//
//	traces, err := gastronomy.Debug(ctx, gastronomy.DebugRequest{
//		Path: "validator.uplc",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, trace := range traces {
//		fmt.Printf("%s: %d frames\n", trace.Filename, len(trace.Frames))
//	}
//
// Debugging a transaction's scripts against a chain-query provider:
//
//	traces, err := gastronomy.Debug(ctx, gastronomy.DebugRequest{
//		Path:     "4f3a9c...64hexchars",
//		Provider: chainquery.NewHTTPProvider(baseURL, "project_id", apiKey),
//	})
//
// # Architecture
//
// gastronomy uses a hybrid public/private layout:
//
//   - pkg/gastronomy/: public API (this package)
//   - internal/gastronomy/: loader, machine, cost model, trace builder,
//     source resolver and worker — not importable outside this module
//
// The public API exposes whole, owned ExecutionTrace and Frame values
// rather than the internal tracebuilder's borrow-scoped RawFrame: a
// caller across the package boundary cannot be trusted to respect the
// evaluator's single-owner lifetime discipline, so Debug pays the copy
// once and hands back self-contained results.
//
// For a concurrent request/response surface over a trace once built
// (summary, single-frame lookup, source-file reads), see
// cmd/gastronomy-server, which builds traces with the same internal
// loader, machine and trace builder that Debug uses and wraps
// internal/gastronomy/worker around them.
package gastronomy
