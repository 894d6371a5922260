package loader

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/sourcemap"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/term"
)

// ParseText parses the textual S-expression encoding of a program, e.g.
// `(program 1.0.0 (lam x [x (con integer 42)]))`, resolving named binders
// to de-Bruijn indices by lexical scope and assigning a node index plus a
// source-map entry to every node via a structural walk in parse order.
// In a multi-argument application `[f a b ...]` only the outermost of the
// nested applications it expands to gets an index; the inner ones carry
// none.
func ParseText(src string) (term.Term, *sourcemap.SourceMap, error) {
	p := &textParser{src: src, pos: 0, line: 1, col: 1, sm: sourcemap.New(), filename: "<uplc>"}
	p.skipSpace()
	if !p.consumeLit("(") {
		return nil, nil, fmt.Errorf("expected '(' at start of program")
	}
	p.skipSpace()
	if !p.consumeKeyword("program") {
		return nil, nil, fmt.Errorf("expected 'program' keyword")
	}
	p.skipSpace()
	p.consumeVersion() // version triple, e.g. 1.0.0, informational only
	p.skipSpace()
	root, err := p.parseTerm(nil)
	if err != nil {
		return nil, nil, err
	}
	p.skipSpace()
	if !p.consumeLit(")") {
		return nil, nil, fmt.Errorf("expected closing ')' for program")
	}
	return root, p.sm, nil
}

type textParser struct {
	src      string
	pos      int
	line     int
	col      int
	sm       *sourcemap.SourceMap
	filename string
	nextIdx  int64
}

func (p *textParser) here() sourcemap.Location {
	return sourcemap.Location{File: p.filename, Line: p.line, Column: p.col}
}

func (p *textParser) assignIndex() *term.Index {
	idx := p.nextIdx
	p.nextIdx++
	p.sm.Set(idx, p.here())
	return term.WithIndex(idx)
}

// baseAt builds the embedded Base carrying a node's source-map index.
func baseAt(idx *term.Index) term.Base {
	return term.Base{Idx: idx}
}

func (p *textParser) advance() byte {
	c := p.src[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

func (p *textParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *textParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.peek()
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.advance()
			continue
		}
		if c == ';' {
			for p.pos < len(p.src) && p.peek() != '\n' {
				p.advance()
			}
			continue
		}
		break
	}
}

func (p *textParser) consumeLit(lit string) bool {
	if strings.HasPrefix(p.src[p.pos:], lit) {
		for range lit {
			p.advance()
		}
		return true
	}
	return false
}

func (p *textParser) consumeKeyword(kw string) bool {
	if !strings.HasPrefix(p.src[p.pos:], kw) {
		return false
	}
	end := p.pos + len(kw)
	if end < len(p.src) && isIdentChar(p.src[end]) {
		return false
	}
	for range kw {
		p.advance()
	}
	return true
}

func (p *textParser) consumeVersion() {
	for p.pos < len(p.src) && (unicode.IsDigit(rune(p.peek())) || p.peek() == '.') {
		p.advance()
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '\'' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *textParser) readIdent() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.peek()) {
		p.advance()
	}
	return p.src[start:p.pos]
}

// parseTerm parses one term node; scope maps a binder name to its
// de-Bruijn depth at the point it was introduced (innermost last).
func (p *textParser) parseTerm(scope []string) (term.Term, error) {
	p.skipSpace()
	idx := p.assignIndex()

	switch {
	case p.consumeLit("["):
		// application sugar: [f a1 a2 ...] == nested applications.
		p.skipSpace()
		fn, err := p.parseTerm(scope)
		if err != nil {
			return nil, err
		}
		var result term.Term = fn
		for {
			p.skipSpace()
			if p.consumeLit("]") {
				break
			}
			arg, err := p.parseTerm(scope)
			if err != nil {
				return nil, err
			}
			result = term.Apply{Function: result, Argument: arg}
		}
		return applyIndex(result, idx), nil

	case p.consumeLit("("):
		p.skipSpace()
		kw := p.readIdent()
		p.skipSpace()
		switch kw {
		case "lam":
			name := p.readIdent()
			p.skipSpace()
			body, err := p.parseTerm(append(scope, name))
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if !p.consumeLit(")") {
				return nil, fmt.Errorf("expected ')' closing lam")
			}
			return term.Lambda{Base: baseAt(idx), Body: body}, nil

		case "force":
			body, err := p.parseTerm(scope)
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if !p.consumeLit(")") {
				return nil, fmt.Errorf("expected ')' closing force")
			}
			return term.Force{Base: baseAt(idx), Body: body}, nil

		case "delay":
			body, err := p.parseTerm(scope)
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if !p.consumeLit(")") {
				return nil, fmt.Errorf("expected ')' closing delay")
			}
			return term.Delay{Base: baseAt(idx), Body: body}, nil

		case "con":
			c, err := p.parseConstant()
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if !p.consumeLit(")") {
				return nil, fmt.Errorf("expected ')' closing con")
			}
			return term.Const{Base: baseAt(idx), Value: c}, nil

		case "builtin":
			name := p.readIdent()
			id, ok := lookupBuiltinName(name)
			if !ok {
				return nil, fmt.Errorf("unknown builtin %q", name)
			}
			p.skipSpace()
			if !p.consumeLit(")") {
				return nil, fmt.Errorf("expected ')' closing builtin")
			}
			return term.Builtin{Base: baseAt(idx), Name: id}, nil

		case "error":
			if !p.consumeLit(")") {
				return nil, fmt.Errorf("expected ')' closing error")
			}
			return term.ErrorTerm{Base: baseAt(idx)}, nil

		case "constr":
			tagStr := p.readIdent()
			tag, err := strconv.ParseUint(tagStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("constr: bad tag %q", tagStr)
			}
			var fields []term.Term
			for {
				p.skipSpace()
				if p.consumeLit(")") {
					break
				}
				f, err := p.parseTerm(scope)
				if err != nil {
					return nil, err
				}
				fields = append(fields, f)
			}
			return term.Constr{Base: baseAt(idx), Tag: tag, Fields: fields}, nil

		case "case":
			scrutinee, err := p.parseTerm(scope)
			if err != nil {
				return nil, err
			}
			var branches []term.Term
			for {
				p.skipSpace()
				if p.consumeLit(")") {
					break
				}
				b, err := p.parseTerm(scope)
				if err != nil {
					return nil, err
				}
				branches = append(branches, b)
			}
			return term.Case{Base: baseAt(idx), Scrutinee: scrutinee, Branches: branches}, nil

		default:
			return nil, fmt.Errorf("unknown term form %q", kw)
		}

	default:
		name := p.readIdent()
		if name == "" {
			return nil, fmt.Errorf("unexpected character %q at %d:%d", p.peek(), p.line, p.col)
		}
		depth, ok := resolveDeBruijn(scope, name)
		if !ok {
			return nil, fmt.Errorf("free variable: %q is not bound", name)
		}
		return term.Var{Base: baseAt(idx), DeBruijn: depth}, nil
	}
}

// resolveDeBruijn converts a binder name to a de-Bruijn index: the
// innermost (last-appended) matching name is index 0, counting outward.
func resolveDeBruijn(scope []string, name string) (uint64, bool) {
	for i := len(scope) - 1; i >= 0; i-- {
		if scope[i] == name {
			return uint64(len(scope) - 1 - i), true
		}
	}
	return 0, false
}

func (p *textParser) parseConstant() (*term.Constant, error) {
	typeName := p.readIdent()
	p.skipSpace()
	switch typeName {
	case "integer":
		start := p.pos
		if p.peek() == '-' {
			p.advance()
		}
		for p.pos < len(p.src) && unicode.IsDigit(rune(p.peek())) {
			p.advance()
		}
		n, ok := new(big.Int).SetString(p.src[start:p.pos], 10)
		if !ok {
			return nil, fmt.Errorf("bad integer constant")
		}
		return term.NewInteger(n), nil
	case "bool":
		if p.consumeKeyword("True") {
			return term.NewBool(true), nil
		}
		if p.consumeKeyword("False") {
			return term.NewBool(false), nil
		}
		return nil, fmt.Errorf("bad bool constant")
	case "unit":
		p.consumeLit("()")
		return term.NewUnit(), nil
	case "bytestring":
		if !p.consumeLit("#") {
			return nil, fmt.Errorf("expected '#' before bytestring hex digits")
		}
		start := p.pos
		for p.pos < len(p.src) && isHexDigit(p.peek()) {
			p.advance()
		}
		raw := p.src[start:p.pos]
		b, err := hexDecode(raw)
		if err != nil {
			return nil, fmt.Errorf("bad bytestring constant: %w", err)
		}
		return term.NewByteString(b), nil
	case "string":
		if !p.consumeLit("\"") {
			return nil, fmt.Errorf("expected opening quote for string constant")
		}
		start := p.pos
		for p.pos < len(p.src) && p.peek() != '"' {
			p.advance()
		}
		s := p.src[start:p.pos]
		p.consumeLit("\"")
		return term.NewString(s), nil
	default:
		return nil, fmt.Errorf("unsupported constant type %q", typeName)
	}
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexNibble(s[2*i])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(s[2*i+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}

func lookupBuiltinName(name string) (term.BuiltinID, bool) {
	return term.BuiltinIDFromName(name)
}

func applyIndex(t term.Term, idx *term.Index) term.Term {
	switch v := t.(type) {
	case term.Apply:
		v.Idx = idx
		return v
	default:
		return t
	}
}
