// Package loader normalizes the four on-disk encodings of a bytecode
// program (textual .uplc, binary .flat, structured .json export, and
// transaction envelopes, including bare transaction-id lookups) into a
// single in-memory LoadedProgram, and implements parameter application
// and its source-map rebasing.
package loader

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/chainquery"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/sourcemap"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
)

// LoadedProgram is a normalized program plus the source map describing
// its node indices, and any parameters already applied.
type LoadedProgram struct {
	Root       term.Term
	SourceMap  *sourcemap.SourceMap
	Filename   string
	Parameters []*term.PlutusData
}

// Shape identifies which on-disk encoding a path or transaction-id
// string names.
type Shape int

const (
	ShapeUPLC Shape = iota
	ShapeFlat
	ShapeJSON
	ShapeTransaction
	ShapeTransactionID
)

// IdentifyShape decides a shape from path: a 64-character lowercase hex
// string is a transaction id; otherwise the extension decides.
func IdentifyShape(path string) (Shape, error) {
	if isTransactionID(path) {
		return ShapeTransactionID, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".uplc":
		return ShapeUPLC, nil
	case ".flat":
		return ShapeFlat, nil
	case ".json":
		return ShapeJSON, nil
	case ".tx":
		return ShapeTransaction, nil
	default:
		return 0, fmt.Errorf("unsupported format: %q has no recognized extension", path)
	}
}

func isTransactionID(path string) bool {
	if len(path) != 64 || strings.ToLower(path) != path {
		return false
	}
	_, err := hex.DecodeString(path)
	return err == nil
}

// Load turns path into one or more LoadedPrograms. File shapes (uplc,
// flat, json) always produce exactly one program. Transaction shapes
// (tx file or bare transaction id) produce one program per
// script-executing redeemer and always resolve their inputs through the
// chain query provider; with a nil provider they fail with a chain
// failure.
func Load(ctx context.Context, path string, provider chainquery.Provider, overrides map[string]ScriptOverride) ([]LoadedProgram, error) {
	shape, err := IdentifyShape(path)
	if err != nil {
		return nil, err
	}

	switch shape {
	case ShapeUPLC:
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		root, sm, err := ParseText(string(src))
		if err != nil {
			return nil, fmt.Errorf("parse failure: %w", err)
		}
		return []LoadedProgram{{Root: root, SourceMap: sm, Filename: path}}, nil

	case ShapeFlat:
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		root, sm, err := DecodeFlat(src)
		if err != nil {
			return nil, fmt.Errorf("parse failure: %w", err)
		}
		return []LoadedProgram{{Root: root, SourceMap: sm, Filename: path}}, nil

	case ShapeJSON:
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		root, sm, err := ParseJSON(src)
		if err != nil {
			return nil, fmt.Errorf("parse failure: %w", err)
		}
		return []LoadedProgram{{Root: root, SourceMap: sm, Filename: path}}, nil

	case ShapeTransaction:
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return loadTransaction(ctx, src, path, provider, overrides)

	case ShapeTransactionID:
		if provider == nil {
			return nil, fmt.Errorf("chain failure: no chain query provider configured")
		}
		var txID [32]byte
		raw, _ := hex.DecodeString(path)
		copy(txID[:], raw)
		bytes, err := provider.GetTxBytes(ctx, txID)
		if err != nil {
			return nil, fmt.Errorf("chain failure: %w", err)
		}
		return loadTransaction(ctx, bytes, path, provider, overrides)

	default:
		return nil, fmt.Errorf("unsupported format: unrecognized shape")
	}
}

// ApplyParameters wraps program.Root in one Application per parameter, in
// order. Each wrapping application shifts every existing node index up by
// one, so the source map is rebased by len(parameters) to match.
func ApplyParameters(program LoadedProgram, parameters []*term.PlutusData) (LoadedProgram, error) {
	root := program.Root
	for _, p := range parameters {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("bad parameter: nil datum")
		}
		root = term.Apply{
			Function: root,
			Argument: term.Const{Value: term.NewData(p)},
		}
	}
	shifted := program.SourceMap
	if shifted != nil {
		shifted = shifted.Rebase(int64(len(parameters)))
	}
	return LoadedProgram{
		Root:       root,
		SourceMap:  shifted,
		Filename:   program.Filename,
		Parameters: append(append([]*term.PlutusData(nil), program.Parameters...), parameters...),
	}, nil
}

// ParseParameter hex-decodes and structurally parses a PlutusData datum
// for parameter index (used only in error messages).
func ParseParameter(index int, hexStr string) (*term.PlutusData, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil {
		return nil, fmt.Errorf("bad parameter: could not hex-decode parameter %d: %w", index, err)
	}
	data, _, err := decodeCBORData(raw, 0)
	if err != nil {
		return nil, fmt.Errorf("bad parameter: could not decode plutus data for parameter %d: %w", index, err)
	}
	return data, nil
}
