package term

import (
	"fmt"
	"math/big"
	"strings"
)

// ConstantTag identifies the shape of a Constant's payload.
type ConstantTag int

const (
	TagInteger ConstantTag = iota
	TagByteString
	TagString
	TagUnit
	TagBool
	TagList
	TagPair
	TagData
)

// ValueType annotates the element type(s) of a list or pair constant, needed
// to reconstruct an empty list's element type and to print types.
type ValueType struct {
	Tag ConstantTag
	// Elem is the list element type, set only when Tag == TagList.
	Elem *ValueType
	// Fst/Snd are the pair component types, set only when Tag == TagPair.
	Fst *ValueType
	Snd *ValueType
}

func (t *ValueType) String() string {
	if t == nil {
		return "?"
	}
	switch t.Tag {
	case TagList:
		return "(list " + t.Elem.String() + ")"
	case TagPair:
		return "(pair " + t.Fst.String() + " " + t.Snd.String() + ")"
	case TagInteger:
		return "integer"
	case TagByteString:
		return "bytestring"
	case TagString:
		return "string"
	case TagUnit:
		return "unit"
	case TagBool:
		return "bool"
	case TagData:
		return "data"
	default:
		return "?"
	}
}

// PlutusData is the structured-data constant shape used by parameters and
// by the Data constant tag. It mirrors the tagged Constr/Map/List/I/B shape
// of the underlying bytecode's structured-data encoding.
type PlutusData struct {
	// Kind is one of "constr", "map", "list", "int", "bytes".
	Kind     string
	Tag      uint64 // meaningful when Kind == "constr"
	Fields   []*PlutusData
	MapPairs []PlutusDataPair
	Int      *big.Int
	Bytes    []byte
}

type PlutusDataPair struct {
	Key   *PlutusData
	Value *PlutusData
}

func (d *PlutusData) String() string {
	if d == nil {
		return "<nil>"
	}
	switch d.Kind {
	case "constr":
		parts := make([]string, len(d.Fields))
		for i, f := range d.Fields {
			parts[i] = f.String()
		}
		return fmt.Sprintf("Constr %d [%s]", d.Tag, strings.Join(parts, ","))
	case "map":
		parts := make([]string, len(d.MapPairs))
		for i, p := range d.MapPairs {
			parts[i] = p.Key.String() + "=>" + p.Value.String()
		}
		return "Map {" + strings.Join(parts, ",") + "}"
	case "list":
		parts := make([]string, len(d.Fields))
		for i, f := range d.Fields {
			parts[i] = f.String()
		}
		return "List [" + strings.Join(parts, ",") + "]"
	case "int":
		return d.Int.String()
	case "bytes":
		return fmt.Sprintf("#%x", d.Bytes)
	default:
		return "<invalid PlutusData>"
	}
}

// Constant is a literal value: the payload a Const term carries and the
// terminal shape a Value::Constant reduces to.
type Constant struct {
	Tag ConstantTag

	Integer    *big.Int
	ByteString []byte
	Str        string
	Bool       bool

	// List holds the elements when Tag == TagList; ListType is the
	// element type (needed to print/represent an empty list).
	List     []*Constant
	ListType *ValueType

	// Pair components when Tag == TagPair.
	Fst *Constant
	Snd *Constant

	// Data holds the payload when Tag == TagData.
	Data *PlutusData
}

func NewInteger(v *big.Int) *Constant { return &Constant{Tag: TagInteger, Integer: v} }
func NewByteString(b []byte) *Constant {
	return &Constant{Tag: TagByteString, ByteString: append([]byte(nil), b...)}
}
func NewString(s string) *Constant  { return &Constant{Tag: TagString, Str: s} }
func NewUnit() *Constant            { return &Constant{Tag: TagUnit} }
func NewBool(b bool) *Constant      { return &Constant{Tag: TagBool, Bool: b} }
func NewData(d *PlutusData) *Constant { return &Constant{Tag: TagData, Data: d} }

func (c *Constant) String() string {
	if c == nil {
		return "<nil>"
	}
	switch c.Tag {
	case TagInteger:
		return c.Integer.String()
	case TagByteString:
		return fmt.Sprintf("#%x", c.ByteString)
	case TagString:
		return fmt.Sprintf("%q", c.Str)
	case TagUnit:
		return "()"
	case TagBool:
		if c.Bool {
			return "True"
		}
		return "False"
	case TagList:
		parts := make([]string, len(c.List))
		for i, e := range c.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case TagPair:
		return "(" + c.Fst.String() + ", " + c.Snd.String() + ")"
	case TagData:
		return c.Data.String()
	default:
		return "<invalid constant>"
	}
}

// Type returns the ValueType describing this constant's shape.
func (c *Constant) Type() *ValueType {
	switch c.Tag {
	case TagList:
		return &ValueType{Tag: TagList, Elem: c.ListType}
	case TagPair:
		return &ValueType{Tag: TagPair, Fst: c.Fst.Type(), Snd: c.Snd.Type()}
	default:
		return &ValueType{Tag: c.Tag}
	}
}
