package loader

import (
	"fmt"
	"math/big"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
)

// This file is a minimal, hand-rolled CBOR reader sufficient for the two
// shapes gastronomy needs to decode: a PlutusData datum (for CLI/service
// --param arguments) and the handful of array/map/bytes/uint fields a
// transaction envelope's body carries. It does not attempt to be a general
// CBOR library: indefinite-length byte strings, arrays and maps are
// accepted, but text strings, floats, and tags beyond the bignum and
// constructor-alternative ones Cardano's Data encoding uses are left
// unsupported and surface as decode errors.

const (
	cborMajorUnsigned = 0
	cborMajorNegative = 1
	cborMajorBytes    = 2
	cborMajorText     = 3
	cborMajorArray    = 4
	cborMajorMap      = 5
	cborMajorTag      = 6
	cborMajorSimple   = 7
)

// cborHead reads one item's major type, argument value, and the offset of
// the first byte after the head.
func cborHead(raw []byte, pos int) (major byte, arg uint64, next int, err error) {
	if pos >= len(raw) {
		return 0, 0, 0, fmt.Errorf("cbor: unexpected end of input at byte %d", pos)
	}
	b := raw[pos]
	major = b >> 5
	info := b & 0x1f
	pos++
	switch {
	case info < 24:
		return major, uint64(info), pos, nil
	case info == 24:
		if pos+1 > len(raw) {
			return 0, 0, 0, fmt.Errorf("cbor: truncated 1-byte argument at %d", pos)
		}
		return major, uint64(raw[pos]), pos + 1, nil
	case info == 25:
		if pos+2 > len(raw) {
			return 0, 0, 0, fmt.Errorf("cbor: truncated 2-byte argument at %d", pos)
		}
		return major, uint64(raw[pos])<<8 | uint64(raw[pos+1]), pos + 2, nil
	case info == 26:
		if pos+4 > len(raw) {
			return 0, 0, 0, fmt.Errorf("cbor: truncated 4-byte argument at %d", pos)
		}
		v := uint64(0)
		for i := 0; i < 4; i++ {
			v = v<<8 | uint64(raw[pos+i])
		}
		return major, v, pos + 4, nil
	case info == 27:
		if pos+8 > len(raw) {
			return 0, 0, 0, fmt.Errorf("cbor: truncated 8-byte argument at %d", pos)
		}
		v := uint64(0)
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(raw[pos+i])
		}
		return major, v, pos + 8, nil
	case info == 31:
		return major, 0, pos, nil // indefinite length marker; arg is meaningless
	default:
		return 0, 0, 0, fmt.Errorf("cbor: unsupported additional info %d at byte %d", info, pos-1)
	}
}

func cborIsBreak(raw []byte, pos int) bool {
	return pos < len(raw) && raw[pos] == 0xff
}

// decodeCBORBytes decodes a definite or indefinite-length byte string.
func decodeCBORBytes(raw []byte, pos int) ([]byte, int, error) {
	major, arg, next, err := cborHead(raw, pos)
	if err != nil {
		return nil, 0, err
	}
	if major != cborMajorBytes {
		return nil, 0, fmt.Errorf("cbor: expected byte string at %d, got major type %d", pos, major)
	}
	if raw[pos]&0x1f == 31 {
		var out []byte
		p := next
		for !cborIsBreak(raw, p) {
			chunk, np, err := decodeCBORBytes(raw, p)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, chunk...)
			p = np
		}
		return out, p + 1, nil
	}
	end := next + int(arg)
	if end > len(raw) {
		return nil, 0, fmt.Errorf("cbor: byte string at %d overruns input", pos)
	}
	return append([]byte(nil), raw[next:end]...), end, nil
}

// decodeCBORUint decodes an unsigned integer item.
func decodeCBORUint(raw []byte, pos int) (uint64, int, error) {
	major, arg, next, err := cborHead(raw, pos)
	if err != nil {
		return 0, 0, err
	}
	if major != cborMajorUnsigned {
		return 0, 0, fmt.Errorf("cbor: expected unsigned int at %d, got major type %d", pos, major)
	}
	return arg, next, nil
}

// decodeCBORArrayLen reads an array header and returns its declared length
// (or -1 for indefinite length, terminated by a break byte).
func decodeCBORArrayLen(raw []byte, pos int) (length int, next int, err error) {
	major, arg, next, err := cborHead(raw, pos)
	if err != nil {
		return 0, 0, err
	}
	if major != cborMajorArray {
		return 0, 0, fmt.Errorf("cbor: expected array at %d, got major type %d", pos, major)
	}
	if raw[pos]&0x1f == 31 {
		return -1, next, nil
	}
	return int(arg), next, nil
}

// decodeCBORData parses a PlutusData value per Cardano's Data encoding:
// constructor alternatives 0..6 as tag 121..127, alternatives 7..127 as
// tag 1280..1400 each followed directly by the fields array, bignums
// via tags 2/3, maps as major type 5, lists as major type 4 (untagged),
// and integers/bytestrings directly.
func decodeCBORData(raw []byte, pos int) (*term.PlutusData, int, error) {
	if pos >= len(raw) {
		return nil, 0, fmt.Errorf("cbor: unexpected end of input decoding plutus data")
	}
	major, arg, next, err := cborHead(raw, pos)
	if err != nil {
		return nil, 0, err
	}

	switch major {
	case cborMajorUnsigned:
		return &term.PlutusData{Kind: "int", Int: new(big.Int).SetUint64(arg)}, next, nil

	case cborMajorNegative:
		n := new(big.Int).SetUint64(arg)
		n.Add(n, big.NewInt(1))
		n.Neg(n)
		return &term.PlutusData{Kind: "int", Int: n}, next, nil

	case cborMajorBytes:
		b, n, err := decodeCBORBytes(raw, pos)
		if err != nil {
			return nil, 0, err
		}
		return &term.PlutusData{Kind: "bytes", Bytes: b}, n, nil

	case cborMajorArray:
		length, p, err := decodeCBORArrayLen(raw, pos)
		if err != nil {
			return nil, 0, err
		}
		var fields []*term.PlutusData
		if length < 0 {
			for !cborIsBreak(raw, p) {
				f, np, err := decodeCBORData(raw, p)
				if err != nil {
					return nil, 0, err
				}
				fields = append(fields, f)
				p = np
			}
			p++
		} else {
			for i := 0; i < length; i++ {
				f, np, err := decodeCBORData(raw, p)
				if err != nil {
					return nil, 0, err
				}
				fields = append(fields, f)
				p = np
			}
		}
		return &term.PlutusData{Kind: "list", Fields: fields}, p, nil

	case cborMajorMap:
		length, p, err := decodeCBORArrayLenAsMap(raw, pos, arg)
		if err != nil {
			return nil, 0, err
		}
		var pairs []term.PlutusDataPair
		if length < 0 {
			for !cborIsBreak(raw, p) {
				k, np, err := decodeCBORData(raw, p)
				if err != nil {
					return nil, 0, err
				}
				v, np2, err := decodeCBORData(raw, np)
				if err != nil {
					return nil, 0, err
				}
				pairs = append(pairs, term.PlutusDataPair{Key: k, Value: v})
				p = np2
			}
			p++
		} else {
			for i := 0; i < length; i++ {
				k, np, err := decodeCBORData(raw, p)
				if err != nil {
					return nil, 0, err
				}
				v, np2, err := decodeCBORData(raw, np)
				if err != nil {
					return nil, 0, err
				}
				pairs = append(pairs, term.PlutusDataPair{Key: k, Value: v})
				p = np2
			}
		}
		return &term.PlutusData{Kind: "map", MapPairs: pairs}, p, nil

	case cborMajorTag:
		return decodeCBORTaggedData(raw, arg, next)

	default:
		return nil, 0, fmt.Errorf("cbor: unsupported major type %d decoding plutus data at %d", major, pos)
	}
}

func decodeCBORArrayLenAsMap(raw []byte, pos int, arg uint64) (int, int, error) {
	_, _, next, err := cborHead(raw, pos)
	if err != nil {
		return 0, 0, err
	}
	if raw[pos]&0x1f == 31 {
		return -1, next, nil
	}
	return int(arg), next, nil
}

func decodeCBORTaggedData(raw []byte, tag uint64, pos int) (*term.PlutusData, int, error) {
	switch {
	case tag == 2 || tag == 3: // positive/negative bignum, encoded as a byte string
		b, next, err := decodeCBORBytes(raw, pos)
		if err != nil {
			return nil, 0, err
		}
		n := new(big.Int).SetBytes(b)
		if tag == 3 {
			n.Add(n, big.NewInt(1))
			n.Neg(n)
		}
		return &term.PlutusData{Kind: "int", Int: n}, next, nil

	case tag >= 121 && tag <= 127:
		return decodeCBORConstr(raw, tag-121, pos)

	case tag >= 1280 && tag <= 1400:
		return decodeCBORConstr(raw, tag-1280+7, pos)

	case tag == 102: // generic constructor tag: [alternative, fields]
		length, p, err := decodeCBORArrayLen(raw, pos)
		if err != nil || length != 2 {
			return nil, 0, fmt.Errorf("cbor: malformed generic constructor tag at %d", pos)
		}
		altUint, p2, err := decodeCBORUint(raw, p)
		if err != nil {
			return nil, 0, err
		}
		return decodeCBORConstrFields(raw, altUint, p2)

	default:
		return nil, 0, fmt.Errorf("cbor: unsupported tag %d decoding plutus data at %d", tag, pos)
	}
}

func decodeCBORConstr(raw []byte, alt uint64, pos int) (*term.PlutusData, int, error) {
	length, p, err := decodeCBORArrayLen(raw, pos)
	if err != nil {
		return nil, 0, err
	}
	if length < 0 {
		return nil, 0, fmt.Errorf("cbor: indefinite-length constructor fields unsupported")
	}
	var fields []*term.PlutusData
	for i := 0; i < length; i++ {
		f, np, err := decodeCBORData(raw, p)
		if err != nil {
			return nil, 0, err
		}
		fields = append(fields, f)
		p = np
	}
	return &term.PlutusData{Kind: "constr", Tag: alt, Fields: fields}, p, nil
}

func decodeCBORConstrFields(raw []byte, alt uint64, pos int) (*term.PlutusData, int, error) {
	return decodeCBORConstr(raw, alt, pos)
}
