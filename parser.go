package flatex

import (
	"fmt"
)

// maxDepth bounds parser recursion on pathologically nested input.
const maxDepth = 2000

type nodeKind int

const (
	nodeConst nodeKind = iota
	nodeVar
	nodeUnary
	nodeBinary
)

// node is the intermediate tree produced by the parser. Every subtree has
// exactly one parent.
type node[T Float] struct {
	kind  nodeKind
	value T
	index int
	op    *Operator[T]
	left  *node[T]
	right *node[T]
}

type parser[T Float] struct {
	table *OperatorTable[T]
	toks  []Token
	pos   int
	depth int
	names []string
	index map[string]int
}

// parse builds the intermediate tree for toks and returns the variable
// names in order of first appearance.
func parse[T Float](table *OperatorTable[T], toks []Token) (*node[T], []string, error) {
	p := &parser[T]{table: table, toks: toks, index: map[string]int{}}
	if p.peek().Kind == TokEOF {
		return nil, nil, &ParseError{Pos: p.peek().Pos, Msg: "empty expression"}
	}
	root, err := p.parseExpr(0)
	if err != nil {
		return nil, nil, err
	}
	if t := p.peek(); t.Kind != TokEOF {
		if t.Kind == TokRParen {
			return nil, nil, &ParseError{Pos: t.Pos, Token: t.Text, Msg: "unmatched closing parenthesis"}
		}
		return nil, nil, &ParseError{Pos: t.Pos, Token: t.Text, Msg: fmt.Sprintf("unexpected %s", t.Kind)}
	}
	return root, p.names, nil
}

func (p *parser[T]) peek() Token {
	if p.pos >= len(p.toks) {
		end := 0
		if n := len(p.toks); n > 0 {
			end = p.toks[n-1].Pos
		}
		return Token{Kind: TokEOF, Pos: end}
	}
	return p.toks[p.pos]
}

func (p *parser[T]) advance() Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// parseExpr is precedence climbing over the binary operators of the table.
func (p *parser[T]) parseExpr(minPrec int) (*node[T], error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		t := p.peek()
		return nil, &ParseError{Pos: t.Pos, Token: t.Text, Msg: "expression nested too deeply"}
	}

	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != TokOperator {
			return lhs, nil
		}
		op, ok := p.table.BinaryOp(t.Text)
		if !ok || op.Named {
			return nil, &ParseError{Pos: t.Pos, Token: t.Text, Msg: "not a binary operator"}
		}
		if op.Prec < minPrec {
			return lhs, nil
		}
		p.advance()
		next := op.Prec + 1
		if op.Assoc == RightAssoc {
			next = op.Prec
		}
		rhs, err := p.parseExpr(next)
		if err != nil {
			return nil, err
		}
		lhs = &node[T]{kind: nodeBinary, op: op, left: lhs, right: rhs}
	}
}

// parseUnary handles prefix operators, function applications and primaries.
// Prefix operators bind tighter than every binary operator.
func (p *parser[T]) parseUnary() (*node[T], error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		t := p.peek()
		return nil, &ParseError{Pos: t.Pos, Token: t.Text, Msg: "expression nested too deeply"}
	}

	t := p.peek()
	switch t.Kind {
	case TokOperator:
		op, ok := p.table.UnaryOp(t.Text)
		if !ok || op.Named {
			return nil, &ParseError{Pos: t.Pos, Token: t.Text, Msg: "operator is missing its left operand"}
		}
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &node[T]{kind: nodeUnary, op: op, left: operand}, nil

	case TokIdent:
		if op, ok := p.table.Function(t.Text); ok {
			return p.parseCall(op)
		}
		p.advance()
		if v, ok := p.table.Constant(t.Text); ok {
			return &node[T]{kind: nodeConst, value: v}, nil
		}
		return &node[T]{kind: nodeVar, index: p.intern(t.Text)}, nil

	case TokNumber:
		p.advance()
		v, err := parseLiteral[T](t.Text)
		if err != nil {
			return nil, &ParseError{Pos: t.Pos, Token: t.Text, Msg: "invalid number"}
		}
		return &node[T]{kind: nodeConst, value: v}, nil

	case TokLParen:
		p.advance()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.closeParen(t); err != nil {
			return nil, err
		}
		return inner, nil

	case TokEOF:
		if p.pos > 0 {
			prev := p.toks[p.pos-1]
			if prev.Kind == TokOperator {
				return nil, &ParseError{Pos: prev.Pos, Token: prev.Text, Msg: "operator is missing its right operand"}
			}
			if prev.Kind == TokLParen {
				return nil, &ParseError{Pos: prev.Pos, Token: prev.Text, Msg: "missing closing parenthesis"}
			}
		}
		return nil, &ParseError{Pos: t.Pos, Msg: "unexpected end of input"}
	}
	return nil, &ParseError{Pos: t.Pos, Token: t.Text, Msg: fmt.Sprintf("unexpected %s, expected an operand", t.Kind)}
}

// parseCall parses a named operator either as name(arg, ...) or, for unary
// ones, in prefix form: round 2.3.
func (p *parser[T]) parseCall(op *Operator[T]) (*node[T], error) {
	name := p.advance()
	if p.peek().Kind == TokLParen {
		open := p.advance()
		var args []*node[T]
		if p.peek().Kind != TokRParen {
			for {
				arg, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().Kind != TokComma {
					break
				}
				p.advance()
			}
		}
		if err := p.closeParen(open); err != nil {
			return nil, err
		}
		if len(args) != int(op.Arity) {
			return nil, &ParseError{Pos: name.Pos, Token: name.Text,
				Msg: fmt.Sprintf("%s expects %d argument(s), got %d", op.Symbol, op.Arity, len(args))}
		}
		if op.Arity == Unary {
			return &node[T]{kind: nodeUnary, op: op, left: args[0]}, nil
		}
		return &node[T]{kind: nodeBinary, op: op, left: args[0], right: args[1]}, nil
	}

	if op.Arity == Binary {
		return nil, &ParseError{Pos: name.Pos, Token: name.Text,
			Msg: fmt.Sprintf("%s expects 2 arguments in parentheses", op.Symbol)}
	}
	if !p.startsOperand(p.peek()) {
		return nil, &ParseError{Pos: name.Pos, Token: name.Text,
			Msg: fmt.Sprintf("function %s used without an argument", op.Symbol)}
	}
	arg, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &node[T]{kind: nodeUnary, op: op, left: arg}, nil
}

func (p *parser[T]) closeParen(open Token) error {
	t := p.peek()
	if t.Kind == TokRParen {
		p.advance()
		return nil
	}
	if t.Kind == TokEOF {
		return &ParseError{Pos: open.Pos, Token: open.Text, Msg: "missing closing parenthesis"}
	}
	return &ParseError{Pos: t.Pos, Token: t.Text, Msg: fmt.Sprintf("unexpected %s, expected ')'", t.Kind)}
}

func (p *parser[T]) startsOperand(t Token) bool {
	switch t.Kind {
	case TokNumber, TokIdent, TokLParen:
		return true
	case TokOperator:
		op, ok := p.table.UnaryOp(t.Text)
		return ok && !op.Named
	}
	return false
}

func (p *parser[T]) intern(name string) int {
	if i, ok := p.index[name]; ok {
		return i
	}
	i := len(p.names)
	p.names = append(p.names, name)
	p.index[name] = i
	return i
}
