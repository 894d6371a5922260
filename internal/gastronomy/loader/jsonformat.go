package loader

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/sourcemap"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
)

// jsonExport is the structured `.json` shape: a hex-encoded `compiledCode`
// (the flat-encoded term, possibly CBOR-wrapped as a byte string the way a
// cborHex script envelope would carry it) and an optional `sourceMap`
// overriding the flat decode's synthetic node locations.
type jsonExport struct {
	CompiledCode string            `json:"compiledCode"`
	SourceMap    map[string]string `json:"sourceMap"`
}

// ParseJSON decodes the structured export shape: hex-decode compiledCode,
// strip a CBOR byte-string wrapper if present, flat-decode the result, and
// replace the flat decoder's synthetic locations with the supplied
// sourceMap entries when present.
func ParseJSON(src []byte) (term.Term, *sourcemap.SourceMap, error) {
	var doc jsonExport
	if err := json.Unmarshal(src, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing json export: %w", err)
	}
	if doc.CompiledCode == "" {
		return nil, nil, fmt.Errorf("json export missing compiledCode field")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(doc.CompiledCode, "0x"))
	if err != nil {
		return nil, nil, fmt.Errorf("json export compiledCode is not valid hex: %w", err)
	}

	flatBytes, err := unwrapCBORBytesIfPresent(raw)
	if err != nil {
		return nil, nil, err
	}

	root, sm, err := DecodeFlat(flatBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("json export compiledCode did not decode as flat: %w", err)
	}

	if len(doc.SourceMap) > 0 {
		sm, err = parseExplicitSourceMap(doc.SourceMap)
		if err != nil {
			return nil, nil, err
		}
	}
	return root, sm, nil
}

// unwrapCBORBytesIfPresent strips one layer of CBOR byte-string wrapping
// (major type 2) around the flat payload, when present. A bare flat
// payload can also begin with what looks like a CBOR byte-string head:
// flat's first four bits are a term tag in [0,9], and tags 4 and 5 share
// the top three bits of major type 2 — so this is a best-effort sniff: it tries the CBOR
// interpretation first and falls back to the raw bytes if that fails to
// consume the entire input.
func unwrapCBORBytesIfPresent(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	if raw[0]>>5 != cborMajorBytes {
		return raw, nil
	}
	inner, consumed, err := decodeCBORBytes(raw, 0)
	if err != nil || consumed != len(raw) {
		return raw, nil
	}
	return inner, nil
}

func parseExplicitSourceMap(entries map[string]string) (*sourcemap.SourceMap, error) {
	sm := sourcemap.New()
	for key, loc := range entries {
		idx, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("json export sourceMap key %q is not a 64-bit index: %w", key, err)
		}
		parsed, err := parseLocation(loc)
		if err != nil {
			return nil, fmt.Errorf("json export sourceMap[%q]: %w", key, err)
		}
		sm.Set(idx, parsed)
	}
	return sm, nil
}

// parseLocation parses a "file:line:column" string, where file may itself
// contain colons (e.g. a Windows drive letter or URI scheme): line and
// column are always the last two colon-separated fields.
func parseLocation(s string) (sourcemap.Location, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return sourcemap.Location{}, fmt.Errorf("expected \"file:line:column\", got %q", s)
	}
	n := len(parts)
	line, err := strconv.Atoi(parts[n-2])
	if err != nil {
		return sourcemap.Location{}, fmt.Errorf("bad line number in %q: %w", s, err)
	}
	column, err := strconv.Atoi(parts[n-1])
	if err != nil {
		return sourcemap.Location{}, fmt.Errorf("bad column number in %q: %w", s, err)
	}
	file := strings.Join(parts[:n-2], ":")
	return sourcemap.Location{File: file, Line: line, Column: column}, nil
}
