package loader

import (
	"fmt"
	"math/big"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/sourcemap"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
)

// DecodeFlat decodes the bit-packed binary encoding of a program: a term
// tree followed by a trailing version triple (the version is read after
// the term rather than before it). Flat carries no textual source
// positions, so the returned source map records, for every assigned node
// index, a synthetic "<flat>:0:<index>" location — enough to keep
// node-index bookkeeping uniform across all four loader shapes.
func DecodeFlat(src []byte) (term.Term, *sourcemap.SourceMap, error) {
	r := &bitReader{src: src}
	fr := &flatReader{bits: r, sm: sourcemap.New()}
	root, err := fr.decodeTerm()
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < 3; i++ {
		if _, err := r.readWord(); err != nil {
			return nil, nil, fmt.Errorf("flat: reading version triple: %w", err)
		}
	}
	return root, fr.sm, nil
}

type flatReader struct {
	bits    *bitReader
	sm      *sourcemap.SourceMap
	nextIdx int64
}

func (fr *flatReader) assignIndex() *term.Index {
	idx := fr.nextIdx
	fr.nextIdx++
	fr.sm.Set(idx, sourcemap.Location{File: "<flat>", Line: 0, Column: int(idx)})
	return term.WithIndex(idx)
}

const (
	flatTagVar = iota
	flatTagDelay
	flatTagLambda
	flatTagApply
	flatTagConstant
	flatTagForce
	flatTagError
	flatTagBuiltin
	flatTagConstr
	flatTagCase
)

func (fr *flatReader) decodeTerm() (term.Term, error) {
	idx := fr.assignIndex()
	tag, err := fr.bits.readBits(4)
	if err != nil {
		return nil, fmt.Errorf("flat: reading term tag: %w", err)
	}
	base := term.Base{Idx: idx}

	switch tag {
	case flatTagVar:
		n, err := fr.bits.readWord()
		if err != nil {
			return nil, fmt.Errorf("flat: reading variable index: %w", err)
		}
		return term.Var{Base: base, DeBruijn: n}, nil

	case flatTagDelay:
		body, err := fr.decodeTerm()
		if err != nil {
			return nil, err
		}
		return term.Delay{Base: base, Body: body}, nil

	case flatTagLambda:
		body, err := fr.decodeTerm()
		if err != nil {
			return nil, err
		}
		return term.Lambda{Base: base, Body: body}, nil

	case flatTagApply:
		fn, err := fr.decodeTerm()
		if err != nil {
			return nil, err
		}
		arg, err := fr.decodeTerm()
		if err != nil {
			return nil, err
		}
		return term.Apply{Base: base, Function: fn, Argument: arg}, nil

	case flatTagConstant:
		c, err := fr.decodeConstant()
		if err != nil {
			return nil, err
		}
		return term.Const{Base: base, Value: c}, nil

	case flatTagForce:
		body, err := fr.decodeTerm()
		if err != nil {
			return nil, err
		}
		return term.Force{Base: base, Body: body}, nil

	case flatTagError:
		return term.ErrorTerm{Base: base}, nil

	case flatTagBuiltin:
		id, err := fr.bits.readBits(7)
		if err != nil {
			return nil, fmt.Errorf("flat: reading builtin tag: %w", err)
		}
		if int(id) >= term.Count() {
			return nil, fmt.Errorf("flat: builtin tag %d out of range", id)
		}
		return term.Builtin{Base: base, Name: term.BuiltinID(id)}, nil

	case flatTagConstr:
		constrTag, err := fr.bits.readWord()
		if err != nil {
			return nil, fmt.Errorf("flat: reading constr tag: %w", err)
		}
		fields, err := fr.decodeTermList()
		if err != nil {
			return nil, err
		}
		return term.Constr{Base: base, Tag: constrTag, Fields: fields}, nil

	case flatTagCase:
		scrutinee, err := fr.decodeTerm()
		if err != nil {
			return nil, err
		}
		branches, err := fr.decodeTermList()
		if err != nil {
			return nil, err
		}
		return term.Case{Base: base, Scrutinee: scrutinee, Branches: branches}, nil

	default:
		return nil, fmt.Errorf("flat: unknown term tag %d", tag)
	}
}

// decodeTermList reads a flat list: a 1-bit "more" marker before each
// element, terminated by a 0 bit.
func (fr *flatReader) decodeTermList() ([]term.Term, error) {
	var out []term.Term
	for {
		more, err := fr.bits.readBits(1)
		if err != nil {
			return nil, fmt.Errorf("flat: reading list continuation bit: %w", err)
		}
		if more == 0 {
			return out, nil
		}
		t, err := fr.decodeTerm()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}

// flatType is the parsed shape of a constant's type annotation.
type flatType struct {
	tag      term.ConstantTag
	elem     *flatType
	fst, snd *flatType
}

const (
	flatTypeInteger = 0
	flatTypeByteStr = 1
	flatTypeString  = 2
	flatTypeUnit    = 3
	flatTypeBool    = 4
	flatTypeList    = 5
	flatTypePair    = 6
	flatTypeApply   = 7
	flatTypeData    = 8
)

// decodeType parses the type-tag tree for one constant: a simple tag, or
// an "apply" marker (7) whose operand builds up a list or pair type.
func (fr *flatReader) decodeType() (*flatType, error) {
	tag, err := fr.bits.readBits(4)
	if err != nil {
		return nil, fmt.Errorf("flat: reading type tag: %w", err)
	}
	switch tag {
	case flatTypeInteger:
		return &flatType{tag: term.TagInteger}, nil
	case flatTypeByteStr:
		return &flatType{tag: term.TagByteString}, nil
	case flatTypeString:
		return &flatType{tag: term.TagString}, nil
	case flatTypeUnit:
		return &flatType{tag: term.TagUnit}, nil
	case flatTypeBool:
		return &flatType{tag: term.TagBool}, nil
	case flatTypeData:
		return &flatType{tag: term.TagData}, nil
	case flatTypeApply:
		op, err := fr.bits.readBits(4)
		if err != nil {
			return nil, fmt.Errorf("flat: reading type operator: %w", err)
		}
		switch op {
		case flatTypeList:
			elem, err := fr.decodeType()
			if err != nil {
				return nil, err
			}
			return &flatType{tag: term.TagList, elem: elem}, nil
		case flatTypeApply:
			op2, err := fr.bits.readBits(4)
			if err != nil {
				return nil, fmt.Errorf("flat: reading nested pair operator: %w", err)
			}
			if op2 != flatTypePair {
				return nil, fmt.Errorf("flat: expected pair operator, got %d", op2)
			}
			fst, err := fr.decodeType()
			if err != nil {
				return nil, err
			}
			snd, err := fr.decodeType()
			if err != nil {
				return nil, err
			}
			return &flatType{tag: term.TagPair, fst: fst, snd: snd}, nil
		default:
			return nil, fmt.Errorf("flat: unsupported type operator %d", op)
		}
	default:
		return nil, fmt.Errorf("flat: unsupported type tag %d", tag)
	}
}

// decodeConstant reads a type-tagged constant: a flat list of type-tag
// groups describing the (possibly nested) type, then the value itself.
func (fr *flatReader) decodeConstant() (*term.Constant, error) {
	var types []*flatType
	for {
		more, err := fr.bits.readBits(1)
		if err != nil {
			return nil, fmt.Errorf("flat: reading constant type-list bit: %w", err)
		}
		if more == 0 {
			break
		}
		t, err := fr.decodeType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if len(types) != 1 {
		return nil, fmt.Errorf("flat: constant must carry exactly one type, got %d", len(types))
	}
	return fr.decodeValue(types[0])
}

func (fr *flatReader) decodeValue(t *flatType) (*term.Constant, error) {
	switch t.tag {
	case term.TagInteger:
		n, err := fr.bits.readBigWord()
		if err != nil {
			return nil, fmt.Errorf("flat: reading integer constant: %w", err)
		}
		return term.NewInteger(zigzagDecodeBig(n)), nil

	case term.TagByteString:
		b, err := fr.bits.readByteBlocks()
		if err != nil {
			return nil, fmt.Errorf("flat: reading bytestring constant: %w", err)
		}
		return term.NewByteString(b), nil

	case term.TagString:
		b, err := fr.bits.readByteBlocks()
		if err != nil {
			return nil, fmt.Errorf("flat: reading string constant: %w", err)
		}
		return term.NewString(string(b)), nil

	case term.TagUnit:
		return term.NewUnit(), nil

	case term.TagBool:
		bit, err := fr.bits.readBits(1)
		if err != nil {
			return nil, fmt.Errorf("flat: reading bool constant: %w", err)
		}
		return term.NewBool(bit == 1), nil

	case term.TagData:
		b, err := fr.bits.readByteBlocks()
		if err != nil {
			return nil, fmt.Errorf("flat: reading data constant: %w", err)
		}
		d, _, err := decodeCBORData(b, 0)
		if err != nil {
			return nil, fmt.Errorf("flat: decoding embedded plutus data: %w", err)
		}
		return term.NewData(d), nil

	case term.TagList:
		var elems []*term.Constant
		for {
			more, err := fr.bits.readBits(1)
			if err != nil {
				return nil, fmt.Errorf("flat: reading list-constant continuation bit: %w", err)
			}
			if more == 0 {
				break
			}
			c, err := fr.decodeValue(t.elem)
			if err != nil {
				return nil, err
			}
			elems = append(elems, c)
		}
		return &term.Constant{Tag: term.TagList, List: elems, ListType: elemType(t.elem)}, nil

	case term.TagPair:
		fst, err := fr.decodeValue(t.fst)
		if err != nil {
			return nil, err
		}
		snd, err := fr.decodeValue(t.snd)
		if err != nil {
			return nil, err
		}
		return &term.Constant{Tag: term.TagPair, Fst: fst, Snd: snd}, nil

	default:
		return nil, fmt.Errorf("flat: unsupported constant type tag %d", t.tag)
	}
}

func elemType(t *flatType) *term.ValueType {
	if t == nil {
		return nil
	}
	vt := &term.ValueType{Tag: t.tag}
	if t.elem != nil {
		vt.Elem = elemType(t.elem)
	}
	if t.fst != nil {
		vt.Fst = elemType(t.fst)
	}
	if t.snd != nil {
		vt.Snd = elemType(t.snd)
	}
	return vt
}

// bitReader reads a byte slice as a single MSB-first bit stream, the shape
// every field of the flat encoding is packed into.
type bitReader struct {
	src    []byte
	bitPos int
}

func (r *bitReader) readBits(n int) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		byteIdx := r.bitPos / 8
		if byteIdx >= len(r.src) {
			return 0, fmt.Errorf("flat: unexpected end of input")
		}
		shift := 7 - uint(r.bitPos%8)
		bit := (r.src[byteIdx] >> shift) & 1
		v = v<<1 | uint64(bit)
		r.bitPos++
	}
	return v, nil
}

func (r *bitReader) alignToByte() {
	if r.bitPos%8 != 0 {
		r.bitPos += 8 - r.bitPos%8
	}
}

// readWord decodes an unsigned variable-length integer: 8-bit groups, high
// bit set meaning "more groups follow", least-significant group first.
func (r *bitReader) readWord() (uint64, error) {
	var result uint64
	shift := uint(0)
	for {
		group, err := r.readBits(8)
		if err != nil {
			return 0, err
		}
		result |= (group & 0x7f) << shift
		if group&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// readBigWord is readWord without a 64-bit ceiling, for arbitrary
// precision integer constants.
func (r *bitReader) readBigWord() (*big.Int, error) {
	result := big.NewInt(0)
	shift := uint(0)
	for {
		group, err := r.readBits(8)
		if err != nil {
			return nil, err
		}
		chunk := new(big.Int).SetUint64(group & 0x7f)
		chunk.Lsh(chunk, shift)
		result.Or(result, chunk)
		if group&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// readByteBlocks reads a byte-aligned sequence of length-prefixed chunks,
// terminated by a zero-length chunk — the encoding bytestrings, strings,
// and embedded data payloads all share.
func (r *bitReader) readByteBlocks() ([]byte, error) {
	r.alignToByte()
	var out []byte
	for {
		n, err := r.readBits(8)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return out, nil
		}
		for i := uint64(0); i < n; i++ {
			b, err := r.readBits(8)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(b))
		}
	}
}

// zigzagDecodeBig undoes flat's zigzag mapping from an unsigned word back
// to a signed integer.
func zigzagDecodeBig(u *big.Int) *big.Int {
	if u.Bit(0) == 0 {
		return new(big.Int).Rsh(u, 1)
	}
	t := new(big.Int).Rsh(u, 1)
	t.Add(t, big.NewInt(1))
	return t.Neg(t)
}
