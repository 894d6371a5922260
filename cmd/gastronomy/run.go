package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/chainquery"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/config"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/diagnostics"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/sourceresolver"
	"github.com/plutus-tools/gastronomy/pkg/gastronomy"
)

func newRunCommand() *cobra.Command {
	var frameIndex int
	var sourceRoot string
	var scriptOverrides []string
	var params []string

	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Load and step a program, printing its trace",
		Long: `Load a .uplc, .flat, .json or .tx file (or a 64-character hex
transaction id), apply any --param values, execute it to completion, and
print the resulting trace. A machine failure during stepping is reported
as a diagnostic and still exits cleanly: the trace is printed either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(args[0], frameIndex, sourceRoot, scriptOverrides, params)
		},
	}

	cmd.Flags().IntVar(&frameIndex, "index", -1, "print only the frame at this index (default: print every frame)")
	cmd.Flags().StringVar(&sourceRoot, "source-root", "", "project root to resolve frame source locations against")
	cmd.Flags().StringArrayVar(&scriptOverrides, "script-override", nil, "FROM_HASH:FILE_PATH:SCRIPT_VERSION, repeatable")
	cmd.Flags().StringArrayVar(&params, "param", nil, "hex-encoded CBOR Plutus Data parameter, applied in order, repeatable")

	return cmd
}

func runDebug(path string, frameIndex int, sourceRoot string, rawOverrides, params []string) error {
	cfg, err := config.Load()
	if err != nil {
		return gastronomy.WrapConfigError("loading configuration", err)
	}
	if sourceRoot == "" {
		sourceRoot = cfg.SourceRoot
	}

	overrides, err := buildOverrides(cfg, rawOverrides)
	if err != nil {
		return err
	}

	var provider chainquery.Provider
	if cfg.ChainProvider != nil {
		provider = chainquery.NewHTTPProvider(cfg.ChainProvider.BaseURL, cfg.ChainProvider.APIKeyName, cfg.ChainProvider.APIKey)
	}

	reporter := diagnostics.NewStreamReporter(os.Stderr)

	traces, err := gastronomy.Debug(context.Background(), gastronomy.DebugRequest{
		Path:         path,
		ParameterHex: params,
		Provider:     provider,
		Overrides:    overrides,
		Reporter:     reporter,
	})
	if err != nil {
		return err
	}

	for _, trace := range traces {
		printTrace(trace, frameIndex)
	}
	if sourceRoot != "" {
		printSources(traces, sourceRoot)
	}
	return nil
}

func printTrace(trace gastronomy.ExecutionTrace, frameIndex int) {
	fmt.Printf("=== %s (%s) — %d frames ===\n", trace.Filename, trace.Identifier, len(trace.Frames))
	if frameIndex >= 0 {
		if frameIndex >= len(trace.Frames) {
			fmt.Fprintf(os.Stderr, "gastronomy: frame index %d out of range [0,%d)\n", frameIndex, len(trace.Frames))
			return
		}
		printFrame(frameIndex, trace.Frames[frameIndex])
		return
	}
	for i, f := range trace.Frames {
		printFrame(i, f)
	}
}

func printFrame(i int, f gastronomy.Frame) {
	fmt.Printf("[%4d] %-8s %-24s %s\n", i, f.Label, f.Location, f.Term)
	if f.ProducedValue != "" {
		fmt.Printf("       => %s\n", f.ProducedValue)
	}
	fmt.Printf("       steps=%d (+%d) mem=%d (+%d)\n", f.Budget.CumulativeSteps, f.Budget.StepDelta, f.Budget.CumulativeMem, f.Budget.MemDelta)
}

func printSources(traces []gastronomy.ExecutionTrace, sourceRoot string) {
	names := frameFilenames(traces)
	if len(names) == 0 {
		return
	}
	files, err := sourceresolver.ReadSourceFiles(sourceRoot, names)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gastronomy: reading source files: %v\n", err)
		return
	}
	for _, name := range names {
		content, ok := files[name]
		if !ok {
			fmt.Printf("--- %s (not found) ---\n", name)
			continue
		}
		fmt.Printf("--- %s ---\n%s\n", name, content)
	}
}

// frameFilenames collects the distinct file portion of every frame
// location across traces, in first-seen order.
func frameFilenames(traces []gastronomy.ExecutionTrace) []string {
	seen := make(map[string]bool)
	var names []string
	for _, trace := range traces {
		for _, f := range trace.Frames {
			name := sourceresolver.FilenameOfLocation(f.Location)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func buildOverrides(cfg *config.Config, rawOverrides []string) (map[string]gastronomy.ScriptOverride, error) {
	overrides := make(map[string]gastronomy.ScriptOverride)
	for _, sc := range cfg.ScriptOverrides {
		ov, err := readOverrideFile(sc.FilePath, sc.ScriptVersion)
		if err != nil {
			return nil, err
		}
		overrides[sc.FromHash] = ov
	}
	for _, raw := range rawOverrides {
		sc, err := config.ParseOverrideFlag(raw)
		if err != nil {
			return nil, err
		}
		ov, err := readOverrideFile(sc.FilePath, sc.ScriptVersion)
		if err != nil {
			return nil, err
		}
		overrides[sc.FromHash] = ov
	}
	return overrides, nil
}

func readOverrideFile(path string, version int) (gastronomy.ScriptOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gastronomy.ScriptOverride{}, fmt.Errorf("script override: reading %s: %w", path, err)
	}
	return gastronomy.ScriptOverride{ReplacementBytes: data, ScriptVersion: version}, nil
}
