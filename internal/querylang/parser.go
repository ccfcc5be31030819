package querylang

import (
	"strconv"
	"strings"

	"anibridge/internal/capability"
)

// maxDepth bounds group nesting so hostile input cannot exhaust the stack.
const maxDepth = 64

// Parse parses input into an expression tree, resolving fields through reg.
// An empty or whitespace-only query yields a nil node and no error.
func Parse(input string, reg *capability.Registry) (Node, error) {
	if reg == nil {
		reg = capability.Static()
	}
	toks, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, reg: reg}
	if p.peek().Kind == TokEOF {
		return nil, nil
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != TokEOF {
		if tok.Kind == TokRParen {
			return nil, errorf(tok.Pos, "unmatched ')'")
		}
		return nil, errorf(tok.Pos, "unexpected %s", tok.Kind)
	}
	return root, nil
}

type parser struct {
	toks  []Token
	pos   int
	reg   *capability.Registry
	depth int
}

func (p *parser) peek() Token { return p.peekAt(0) }

func (p *parser) peekAt(offset int) Token {
	if i := p.pos + offset; i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAndRun()
	if err != nil {
		return nil, err
	}
	runs := []Node{first}
	for p.peek().Kind == TokPipe {
		pipe := p.next()
		switch p.peek().Kind {
		case TokEOF, TokPipe, TokRParen:
			return nil, errorf(pipe.Pos, "expected term after '|'")
		}
		run, err := p.parseAndRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if len(runs) == 1 {
		return runs[0], nil
	}
	return &Or{Children: runs}, nil
}

// parseAndRun collects terms up to the next top-level '|' or ')'. Terms
// prefixed with '~' are lifted into one OR group that is ANDed with the rest.
func (p *parser) parseAndRun() (Node, error) {
	var anyOf, allOf []Node
loop:
	for {
		switch p.peek().Kind {
		case TokEOF, TokPipe, TokRParen:
			break loop
		}
		term, lifted, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if lifted {
			anyOf = append(anyOf, term)
		} else {
			allOf = append(allOf, term)
		}
	}
	if len(anyOf)+len(allOf) == 0 {
		return nil, errorf(p.peek().Pos, "expected term")
	}
	children := allOf
	if len(anyOf) > 0 {
		var group Node = &Or{Children: anyOf}
		if len(anyOf) == 1 {
			group = anyOf[0]
		}
		children = append([]Node{group}, allOf...)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &And{Children: children}, nil
}

func (p *parser) parseTerm() (Node, bool, error) {
	var negate, lift bool
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokMinus:
			if negate {
				return nil, false, errorf(tok.Pos, "repeated '-'")
			}
			negate = true
			p.next()
			continue
		case TokTilde:
			if lift {
				return nil, false, errorf(tok.Pos, "repeated '~'")
			}
			lift = true
			p.next()
			continue
		}
		break
	}
	atom, err := p.parseAtom()
	if err != nil {
		return nil, false, err
	}
	if negate {
		atom = &Not{Child: atom}
	}
	return atom, lift, nil
}

func (p *parser) parseAtom() (Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokLParen:
		p.next()
		if p.peek().Kind == TokRParen {
			return nil, errorf(tok.Pos, "empty group")
		}
		p.depth++
		if p.depth > maxDepth {
			return nil, errorf(tok.Pos, "groups nested deeper than %d", maxDepth)
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.depth--
		if p.peek().Kind != TokRParen {
			return nil, errorf(tok.Pos, "unterminated group")
		}
		p.next()
		return inner, nil
	case TokQuoted:
		p.next()
		text := strings.TrimSpace(tok.Text)
		if text == "" {
			return nil, errorf(tok.Pos, "empty title search")
		}
		return &Title{Text: text, Pos: tok.Pos}, nil
	case TokWord:
		if p.peekAt(1).Kind == TokColon {
			return p.parseFieldTerm()
		}
		p.next()
		return &Title{Text: tok.Text, Pos: tok.Pos}, nil
	case TokEOF:
		return nil, errorf(tok.Pos, "unexpected end of query")
	}
	return nil, errorf(tok.Pos, "unexpected %s", tok.Kind)
}

func (p *parser) parseFieldTerm() (Node, error) {
	nameTok := p.next()
	p.next() // ':'
	if strings.EqualFold(nameTok.Text, "has") {
		target := p.peek()
		if target.Kind != TokWord {
			return nil, errorf(target.Pos, "expected field name after 'has:'")
		}
		p.next()
		c, ok := p.reg.Lookup(target.Text)
		if !ok {
			return nil, errorf(target.Pos, "unknown field %q", target.Text)
		}
		return &Predicate{Field: c.ID, Op: capability.OpHas, Pos: nameTok.Pos}, nil
	}
	c, ok := p.reg.Lookup(nameTok.Text)
	if !ok {
		return nil, errorf(nameTok.Pos, "unknown field %q", nameTok.Text)
	}
	return p.parseValue(c, nameTok.Pos)
}

func (p *parser) parseValue(c capability.Capability, pos int) (Node, error) {
	tok := p.peek()
	if op, ok := comparisonOp(tok.Kind); ok {
		p.next()
		operand := p.peek()
		if !isValueToken(operand) {
			return nil, errorf(tok.Pos, "expected value after %s", tok.Kind)
		}
		p.next()
		pred := &Predicate{Field: c.ID, Op: op, Values: []string{operand.Text}, Pos: pos}
		if c.Type == capability.TypeInt {
			n, err := parseInt(operand.Text)
			if err != nil {
				return nil, errorf(operand.Pos, "comparison bound %q is not an integer", operand.Text)
			}
			pred.Ints = []int64{n}
		}
		return pred, nil
	}
	if !isValueToken(tok) {
		return nil, errorf(tok.Pos, "expected value for field %s", c.Key)
	}
	first := p.next()

	if p.peek().Kind == TokDotDot {
		dots := p.next()
		hiTok := p.peek()
		if !isValueToken(hiTok) {
			return nil, errorf(dots.Pos, "expected upper bound after '..'")
		}
		p.next()
		pred := &Predicate{
			Field:  c.ID,
			Op:     capability.OpRange,
			Values: []string{first.Text, hiTok.Text},
			Pos:    pos,
		}
		if c.Type != capability.TypeInt {
			return pred, nil
		}
		lo, err := parseInt(first.Text)
		if err != nil {
			return nil, errorf(first.Pos, "range bound %q is not an integer", first.Text)
		}
		hi, err := parseInt(hiTok.Text)
		if err != nil {
			return nil, errorf(hiTok.Pos, "range bound %q is not an integer", hiTok.Text)
		}
		if lo > hi {
			return nil, errorf(first.Pos, "range lower bound %d exceeds upper bound %d", lo, hi)
		}
		pred.Ints = []int64{lo, hi}
		return pred, nil
	}

	operands := []Token{first}
	for p.peek().Kind == TokComma {
		comma := p.next()
		next := p.peek()
		if !isValueToken(next) {
			return nil, errorf(comma.Pos, "expected value after ','")
		}
		operands = append(operands, p.next())
	}

	if len(operands) == 1 && first.Kind == TokWord && first.Wild {
		return &Predicate{Field: c.ID, Op: capability.OpWildcard, Values: []string{first.Text}, Pos: pos}, nil
	}

	pred := &Predicate{Field: c.ID, Op: capability.OpEq, Pos: pos}
	if len(operands) > 1 {
		pred.Op = capability.OpIn
	}
	for _, operand := range operands {
		if operand.Kind == TokWord && operand.Wild {
			return nil, errorf(operand.Pos, "wildcards are not allowed in lists")
		}
		value := operand.Text
		switch c.Type {
		case capability.TypeInt:
			n, err := parseInt(value)
			if err != nil {
				return nil, errorf(operand.Pos, "value %q for %s is not an integer", value, c.Key)
			}
			pred.Ints = append(pred.Ints, n)
		case capability.TypeEnum:
			canonical, ok := c.CanonicalValue(value)
			if !ok {
				return nil, errorf(operand.Pos, "invalid value %q for %s (expected one of %s)", value, c.Key, strings.Join(c.Values, ", "))
			}
			value = canonical
		}
		pred.Values = append(pred.Values, value)
	}
	return pred, nil
}

func comparisonOp(kind Kind) (capability.Operator, bool) {
	switch kind {
	case TokLt:
		return capability.OpLt, true
	case TokLte:
		return capability.OpLte, true
	case TokGt:
		return capability.OpGt, true
	case TokGte:
		return capability.OpGte, true
	}
	return "", false
}

func isValueToken(tok Token) bool {
	return tok.Kind == TokWord || tok.Kind == TokQuoted
}

func parseInt(text string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(text), 10, 64)
}
