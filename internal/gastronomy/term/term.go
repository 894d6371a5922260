// Package term defines the in-memory syntax tree of the bytecode after
// loading: a tagged sum over Variable/Lambda/Application/Force/Delay/
// Constant/Builtin/Constr/Case/Error, each node optionally carrying a
// stable node index used to key the source map.
package term

import (
	"fmt"
	"strings"
)

// Index is a stable 64-bit key into a SourceMap. A nil *Index means the
// node has no recorded source location.
type Index = int64

// Term is a node of the bytecode's abstract syntax tree. The step relation
// in package machine dispatches over this interface with a flat type
// switch, never a visitor.
type Term interface {
	termNode()
	// NodeIndex returns the node's stable index, or nil if it was not
	// assigned one (e.g. a node synthesized after loading).
	NodeIndex() *Index
	String() string
}

// Base is embedded by every concrete Term to carry the optional node index.
type Base struct {
	Idx *Index
}

func (b Base) NodeIndex() *Index { return b.Idx }

// Var is a de-Bruijn-indexed variable reference.
type Var struct {
	Base
	DeBruijn uint64
}

func (Var) termNode() {}
func (v Var) String() string { return fmt.Sprintf("#%d", v.DeBruijn) }

// Lambda is a single-parameter abstraction.
type Lambda struct {
	Base
	Body Term
}

func (Lambda) termNode() {}
func (l Lambda) String() string { return "(lam " + l.Body.String() + ")" }

// Apply applies Function to Argument.
type Apply struct {
	Base
	Function Term
	Argument Term
}

func (Apply) termNode() {}
func (a Apply) String() string {
	return "[" + a.Function.String() + " " + a.Argument.String() + "]"
}

// Force instantiates a delayed or builtin value.
type Force struct {
	Base
	Body Term
}

func (Force) termNode() {}
func (f Force) String() string { return "(force " + f.Body.String() + ")" }

// Delay suspends a term until forced.
type Delay struct {
	Base
	Body Term
}

func (Delay) termNode() {}
func (d Delay) String() string { return "(delay " + d.Body.String() + ")" }

// Const wraps a literal constant.
type Const struct {
	Base
	Value *Constant
}

func (Const) termNode() {}
func (c Const) String() string { return "(con " + c.Value.String() + ")" }

// Builtin references one of the fixed set of primitive operations by id.
type Builtin struct {
	Base
	Name BuiltinID
}

func (Builtin) termNode() {}
func (b Builtin) String() string { return "(builtin " + b.Name.String() + ")" }

// Constr constructs a tagged value from ordered field terms.
type Constr struct {
	Base
	Tag    uint64
	Fields []Term
}

func (Constr) termNode() {}
func (c Constr) String() string {
	parts := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("(constr %d %s)", c.Tag, strings.Join(parts, " "))
}

// Case scrutinizes a constructor value and dispatches to one of Branches
// by tag.
type Case struct {
	Base
	Scrutinee Term
	Branches  []Term
}

func (Case) termNode() {}
func (c Case) String() string {
	parts := make([]string, len(c.Branches))
	for i, b := range c.Branches {
		parts[i] = b.String()
	}
	return "(case " + c.Scrutinee.String() + " " + strings.Join(parts, " ") + ")"
}

// ErrorTerm is the bottom term: evaluating it is always a failure.
type ErrorTerm struct {
	Base
}

func (ErrorTerm) termNode() {}
func (ErrorTerm) String() string { return "(error)" }

// NewErrorTerm returns an ErrorTerm carrying idx as its node index. idx
// may be nil, when a failure is reported with no associated source node.
func NewErrorTerm(idx *Index) ErrorTerm {
	return ErrorTerm{Base: Base{Idx: idx}}
}

// WithIndex returns a copy of idx as a *Index, for populating Base.Idx.
func WithIndex(idx Index) *Index {
	i := idx
	return &i
}

// BuiltinID identifies one of the fixed primitive operations. The
// dispatch protocol around it lives in package builtin; this package only
// needs identity and a display name.
type BuiltinID int

//go:generate stringer -type=BuiltinID
const (
	AddInteger BuiltinID = iota
	SubtractInteger
	MultiplyInteger
	DivideInteger
	QuotientInteger
	RemainderInteger
	ModInteger
	EqualsInteger
	LessThanInteger
	LessThanEqualsInteger
	AppendByteString
	ConsByteString
	SliceByteString
	LengthOfByteString
	IndexByteString
	EqualsByteString
	LessThanByteString
	LessThanEqualsByteString
	Sha2_256
	Sha3_256
	Blake2b_256
	Blake2b_224
	Keccak_256
	VerifyEd25519Signature
	VerifyEcdsaSecp256k1Signature
	VerifySchnorrSecp256k1Signature
	AppendString
	EqualsString
	EncodeUtf8
	DecodeUtf8
	IfThenElse
	ChooseUnit
	Trace
	FstPair
	SndPair
	ChooseList
	MkCons
	HeadList
	TailList
	NullList
	ChooseData
	ConstrData
	MapData
	ListData
	IData
	BData
	UnConstrData
	UnMapData
	UnListData
	UnIData
	UnBData
	EqualsData
	SerialiseData
	MkPairData
	MkNilData
	MkNilPairData
	IntegerToByteString
	ByteStringToInteger
	numBuiltins
)

var builtinNames = [numBuiltins]string{
	"AddInteger", "SubtractInteger", "MultiplyInteger", "DivideInteger",
	"QuotientInteger", "RemainderInteger", "ModInteger", "EqualsInteger",
	"LessThanInteger", "LessThanEqualsInteger", "AppendByteString",
	"ConsByteString", "SliceByteString", "LengthOfByteString",
	"IndexByteString", "EqualsByteString", "LessThanByteString",
	"LessThanEqualsByteString", "Sha2_256", "Sha3_256", "Blake2b_256",
	"Blake2b_224", "Keccak_256", "VerifyEd25519Signature",
	"VerifyEcdsaSecp256k1Signature", "VerifySchnorrSecp256k1Signature",
	"AppendString", "EqualsString", "EncodeUtf8", "DecodeUtf8", "IfThenElse",
	"ChooseUnit", "Trace", "FstPair", "SndPair", "ChooseList", "MkCons",
	"HeadList", "TailList", "NullList", "ChooseData", "ConstrData",
	"MapData", "ListData", "IData", "BData", "UnConstrData", "UnMapData",
	"UnListData", "UnIData", "UnBData", "EqualsData", "SerialiseData",
	"MkPairData", "MkNilData", "MkNilPairData", "IntegerToByteString",
	"ByteStringToInteger",
}

func (b BuiltinID) String() string {
	if b < 0 || int(b) >= len(builtinNames) {
		return fmt.Sprintf("BuiltinID(%d)", int(b))
	}
	return builtinNames[b]
}

// Count is the number of known builtin identifiers.
func Count() int { return int(numBuiltins) }

// BuiltinIDFromName resolves a builtin's textual name (as it appears in
// the `.uplc` and `.json` encodings, lowerCamelCase, e.g. "addInteger")
// back to its BuiltinID.
func BuiltinIDFromName(name string) (BuiltinID, bool) {
	for i, n := range builtinNames {
		if lowerCamel(n) == name {
			return BuiltinID(i), true
		}
	}
	return 0, false
}

// lowerCamel lowercases the leading rune of an UpperCamelCase identifier,
// turning e.g. "AddInteger" into "addInteger".
func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
