package graph

import (
	"strconv"
	"strings"
	"unicode"
)

// Dependency expressions are a small boolean grammar over integer atoms,
// e.g. "(5 && 7) || 8", where each atom is a project sequence number that
// evaluates to the completion truth of the referenced task.
//
//	expr  := or
//	or    := and ('||' and)*
//	and   := unary ('&&' unary)*
//	unary := '!' unary | '(' expr ')' | atom
//
// Unknown or unparseable atoms evaluate to false.

// Expression is a parsed dependency expression.
type Expression struct {
	source string
	root   exprNode
}

// ParseExpression parses a dependency expression with a recursive descent
// parser. A structurally invalid expression (unbalanced parens, dangling
// operator) returns an ExpressionError; a syntactically sound expression
// whose atoms are not integers parses fine, with those atoms fixed to false.
func ParseExpression(source string) (*Expression, error) {
	p := &exprParser{input: source}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, &ExpressionError{Expression: source, Reason: "unexpected trailing input at position " + strconv.Itoa(p.pos)}
	}
	return &Expression{source: source, root: node}, nil
}

// Eval evaluates the expression against a truth function mapping sequence
// numbers to completion truth.
func (e *Expression) Eval(truth func(int64) bool) bool {
	return e.root.eval(truth)
}

// Atoms returns every integer atom referenced by the expression, in source
// order, duplicates included.
func (e *Expression) Atoms() []int64 {
	var atoms []int64
	e.root.collect(&atoms)
	return atoms
}

// String returns the original source text.
func (e *Expression) String() string {
	return e.source
}

type exprNode interface {
	eval(truth func(int64) bool) bool
	collect(atoms *[]int64)
}

type atomNode struct {
	sequence int64
	valid    bool // false for unparseable atoms, which always evaluate false
}

func (n atomNode) eval(truth func(int64) bool) bool {
	if !n.valid {
		return false
	}
	return truth(n.sequence)
}

func (n atomNode) collect(atoms *[]int64) {
	if n.valid {
		*atoms = append(*atoms, n.sequence)
	}
}

type notNode struct{ operand exprNode }

func (n notNode) eval(truth func(int64) bool) bool { return !n.operand.eval(truth) }
func (n notNode) collect(atoms *[]int64)           { n.operand.collect(atoms) }

type binaryNode struct {
	op          string // "&&" or "||"
	left, right exprNode
}

func (n binaryNode) eval(truth func(int64) bool) bool {
	if n.op == "&&" {
		return n.left.eval(truth) && n.right.eval(truth)
	}
	return n.left.eval(truth) || n.right.eval(truth)
}

func (n binaryNode) collect(atoms *[]int64) {
	n.left.collect(atoms)
	n.right.collect(atoms)
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek(lit string) bool {
	p.skipSpace()
	return strings.HasPrefix(p.input[p.pos:], lit)
}

func (p *exprParser) consume(lit string) bool {
	if p.peek(lit) {
		p.pos += len(lit)
		return true
	}
	return false
}

func (p *exprParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.consume("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		// Do not let "&&" consumption eat the first '&' of a malformed "&".
		if !p.peek("&&") {
			break
		}
		p.consume("&&")
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (exprNode, error) {
	if p.consume("!") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{operand: operand}, nil
	}

	if p.consume("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.consume(")") {
			return nil, &ExpressionError{Expression: p.input, Reason: "missing closing parenthesis"}
		}
		return inner, nil
	}

	return p.parseAtom()
}

func (p *exprParser) parseAtom() (exprNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && !isAtomBoundary(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil, &ExpressionError{Expression: p.input, Reason: "expected an atom at position " + strconv.Itoa(start)}
	}

	text := p.input[start:p.pos]
	seq, err := strconv.ParseInt(text, 10, 64)
	if err != nil || seq <= 0 {
		// Unparseable atom: structurally accepted, always false.
		return atomNode{valid: false}, nil
	}
	return atomNode{sequence: seq, valid: true}, nil
}

func isAtomBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '&', '|', '!':
		return true
	default:
		return false
	}
}
