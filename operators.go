package flatex

import (
	"fmt"
	"math"
	"sort"
	"unicode"
)

// ============================================================
// Operator descriptors
// ============================================================

// Arity is the number of operands an operator takes.
type Arity int

const (
	Unary  Arity = 1
	Binary Arity = 2
)

// Assoc is the associativity of a binary operator.
type Assoc int

const (
	LeftAssoc Assoc = iota
	RightAssoc
)

// Ref addresses a slot inside a Builder.
type Ref int

// Operand is one argument of an operation as seen by a derivative rule:
// the slot holding its value and the slot holding its derivative.
type Operand struct {
	Value Ref
	Deriv Ref
}

// DerivRule builds the derivative of one operation slot. self is the slot
// of the operation itself, u and v its operands (v is zero for unary
// operators).
type DerivRule[T Float] func(b *Builder[T], self Ref, u, v Operand) Ref

// Operator describes one entry of an OperatorTable.
type Operator[T Float] struct {
	Symbol string
	Arity  Arity
	Prec   int
	Assoc  Assoc
	// Named operators are written like functions: sin(x), atan2(y, x).
	Named  bool
	Unary  func(T) T
	Binary func(T, T) T
	// Deriv is nil for operators that cannot be differentiated.
	Deriv DerivRule[T]
	// TeX is the LaTeX command used for named operators, e.g. `\sin`.
	TeX string
}

// Precedence levels of the default table.
const (
	PrecAdditive       = 1
	PrecMultiplicative = 2
	PrecPower          = 4
	PrecPrefix         = 5
)

// ============================================================
// OperatorTable
// ============================================================

// OperatorTable is a read-only registry of operators, aliases and named
// constants. It is safe for concurrent use once constructed.
type OperatorTable[T Float] struct {
	unary   map[string]*Operator[T]
	binary  map[string]*Operator[T]
	aliases map[string]string
	consts  map[string]T
	// symbolic (non-named) spellings, longest first
	symbols []string
}

// TableOption configures NewOperatorTable.
type TableOption func(*tableConfig)

type tableConfig struct {
	aliases map[string]string
	consts  map[string]float64
}

// WithAlias makes alias lex as symbol, e.g. "**" for "^".
func WithAlias(alias, symbol string) TableOption {
	return func(c *tableConfig) { c.aliases[alias] = symbol }
}

// WithConstant registers an identifier that parses to a literal.
func WithConstant(name string, v float64) TableOption {
	return func(c *tableConfig) { c.consts[name] = v }
}

// NewOperatorTable validates ops and builds a table from them.
func NewOperatorTable[T Float](ops []Operator[T], opts ...TableOption) (*OperatorTable[T], error) {
	cfg := tableConfig{aliases: map[string]string{}, consts: map[string]float64{}}
	for _, o := range opts {
		o(&cfg)
	}
	t := &OperatorTable[T]{
		unary:   map[string]*Operator[T]{},
		binary:  map[string]*Operator[T]{},
		aliases: map[string]string{},
		consts:  map[string]T{},
	}
	seen := map[string]bool{}
	for i := range ops {
		o := ops[i]
		op := &o
		if op.Symbol == "" {
			return nil, fmt.Errorf("flatex: operator %d has no symbol", i)
		}
		if op.Named != isIdentifier(op.Symbol) {
			return nil, fmt.Errorf("flatex: operator %q: named operators must be identifiers and symbolic ones must not", op.Symbol)
		}
		switch op.Arity {
		case Unary:
			if op.Unary == nil {
				return nil, fmt.Errorf("flatex: unary operator %q has no function", op.Symbol)
			}
			if _, dup := t.unary[op.Symbol]; dup {
				return nil, fmt.Errorf("flatex: duplicate unary operator %q", op.Symbol)
			}
			t.unary[op.Symbol] = op
		case Binary:
			if op.Binary == nil {
				return nil, fmt.Errorf("flatex: binary operator %q has no function", op.Symbol)
			}
			if _, dup := t.binary[op.Symbol]; dup {
				return nil, fmt.Errorf("flatex: duplicate binary operator %q", op.Symbol)
			}
			t.binary[op.Symbol] = op
		default:
			return nil, fmt.Errorf("flatex: operator %q has invalid arity %d", op.Symbol, op.Arity)
		}
		if op.Named {
			if _, clash := t.unary[op.Symbol]; clash && op.Arity == Binary {
				return nil, fmt.Errorf("flatex: named operator %q declared with two arities", op.Symbol)
			}
			if _, clash := t.binary[op.Symbol]; clash && op.Arity == Unary {
				return nil, fmt.Errorf("flatex: named operator %q declared with two arities", op.Symbol)
			}
		} else if !seen[op.Symbol] {
			seen[op.Symbol] = true
			t.symbols = append(t.symbols, op.Symbol)
		}
	}
	for alias, sym := range cfg.aliases {
		if !seen[sym] {
			return nil, fmt.Errorf("flatex: alias %q refers to unknown symbol %q", alias, sym)
		}
		t.aliases[alias] = sym
		t.symbols = append(t.symbols, alias)
	}
	for name, v := range cfg.consts {
		if !isIdentifier(name) {
			return nil, fmt.Errorf("flatex: constant name %q is not an identifier", name)
		}
		if t.IsFunction(name) {
			return nil, fmt.Errorf("flatex: constant %q shadows an operator", name)
		}
		t.consts[name] = T(v)
	}
	sort.SliceStable(t.symbols, func(i, j int) bool {
		if len(t.symbols[i]) != len(t.symbols[j]) {
			return len(t.symbols[i]) > len(t.symbols[j])
		}
		return t.symbols[i] < t.symbols[j]
	})
	return t, nil
}

// UnaryOp looks up a unary operator by symbol.
func (t *OperatorTable[T]) UnaryOp(symbol string) (*Operator[T], bool) {
	op, ok := t.unary[symbol]
	return op, ok
}

// BinaryOp looks up a binary operator by symbol.
func (t *OperatorTable[T]) BinaryOp(symbol string) (*Operator[T], bool) {
	op, ok := t.binary[symbol]
	return op, ok
}

// Function returns the named operator called name, if any.
func (t *OperatorTable[T]) Function(name string) (*Operator[T], bool) {
	if op, ok := t.unary[name]; ok && op.Named {
		return op, true
	}
	if op, ok := t.binary[name]; ok && op.Named {
		return op, true
	}
	return nil, false
}

func (t *OperatorTable[T]) IsFunction(name string) bool {
	_, ok := t.Function(name)
	return ok
}

// Constant returns the value of a named constant such as PI.
func (t *OperatorTable[T]) Constant(name string) (T, bool) {
	v, ok := t.consts[name]
	return v, ok
}

// Symbols lists every symbolic operator spelling, aliases included,
// longest first.
func (t *OperatorTable[T]) Symbols() []string {
	return append([]string(nil), t.symbols...)
}

// matchSymbol finds the longest operator spelling at the start of src and
// returns the canonical symbol plus the matched byte length.
func (t *OperatorTable[T]) matchSymbol(src string) (string, int) {
	for _, s := range t.symbols {
		if len(s) <= len(src) && src[:len(s)] == s {
			if canon, ok := t.aliases[s]; ok {
				return canon, len(s)
			}
			return s, len(s)
		}
	}
	return "", 0
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }

func isIdentPart(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

// ============================================================
// Default table
// ============================================================

var (
	defaultTable32 = mustTable(NewOperatorTable(defaultOperators[float32](), defaultOptions()...))
	defaultTable64 = mustTable(NewOperatorTable(defaultOperators[float64](), defaultOptions()...))
)

// DefaultOperators returns the process-wide operator table for T.
func DefaultOperators[T Float]() *OperatorTable[T] {
	var t any = defaultTable64
	if bits[T]() == 32 {
		t = defaultTable32
	}
	return t.(*OperatorTable[T])
}

func mustTable[T Float](t *OperatorTable[T], err error) *OperatorTable[T] {
	if err != nil {
		panic(err)
	}
	return t
}

func defaultOptions() []TableOption {
	return []TableOption{
		WithAlias("**", "^"),
		WithConstant("PI", math.Pi),
		WithConstant("π", math.Pi),
		WithConstant("E", math.E),
		WithConstant("TAU", 2*math.Pi),
	}
}

func fn[T Float](symbol, tex string, f func(float64) float64, d DerivRule[T]) Operator[T] {
	return Operator[T]{Symbol: symbol, Arity: Unary, Prec: PrecPrefix, Assoc: RightAssoc, Named: true, Unary: lift[T](f), Deriv: d, TeX: tex}
}

func fn2[T Float](symbol, tex string, f func(float64, float64) float64, d DerivRule[T]) Operator[T] {
	return Operator[T]{Symbol: symbol, Arity: Binary, Prec: PrecPrefix, Named: true, Binary: lift2[T](f), Deriv: d, TeX: tex}
}

func defaultOperators[T Float]() []Operator[T] {
	return []Operator[T]{
		{Symbol: "+", Arity: Binary, Prec: PrecAdditive, Binary: func(a, b T) T { return a + b }, Deriv: dAdd[T]},
		{Symbol: "-", Arity: Binary, Prec: PrecAdditive, Binary: func(a, b T) T { return a - b }, Deriv: dSub[T]},
		{Symbol: "*", Arity: Binary, Prec: PrecMultiplicative, Binary: func(a, b T) T { return a * b }, Deriv: dMul[T]},
		{Symbol: "/", Arity: Binary, Prec: PrecMultiplicative, Binary: func(a, b T) T { return a / b }, Deriv: dDiv[T]},
		{Symbol: "%", Arity: Binary, Prec: PrecMultiplicative, Binary: lift2[T](math.Mod)},
		{Symbol: "^", Arity: Binary, Prec: PrecPower, Assoc: RightAssoc, Binary: lift2[T](math.Pow), Deriv: dPow[T]},
		{Symbol: "-", Arity: Unary, Prec: PrecPrefix, Assoc: RightAssoc, Unary: func(a T) T { return -a }, Deriv: dNeg[T]},
		{Symbol: "+", Arity: Unary, Prec: PrecPrefix, Assoc: RightAssoc, Unary: func(a T) T { return a }, Deriv: dPos[T]},

		fn[T]("sin", `\sin`, math.Sin, dSin[T]),
		fn[T]("cos", `\cos`, math.Cos, dCos[T]),
		fn[T]("tan", `\tan`, math.Tan, dTan[T]),
		fn[T]("asin", `\arcsin`, math.Asin, dAsin[T]),
		fn[T]("acos", `\arccos`, math.Acos, dAcos[T]),
		fn[T]("atan", `\arctan`, math.Atan, dAtan[T]),
		fn[T]("sinh", `\sinh`, math.Sinh, dSinh[T]),
		fn[T]("cosh", `\cosh`, math.Cosh, dCosh[T]),
		fn[T]("tanh", `\tanh`, math.Tanh, dTanh[T]),
		fn[T]("exp", `\exp`, math.Exp, dExp[T]),
		fn[T]("ln", `\ln`, math.Log, dLn[T]),
		fn[T]("log", `\log`, math.Log, dLn[T]),
		fn[T]("log2", `\log_2`, math.Log2, dLogBase[T](math.Ln2)),
		fn[T]("log10", `\log_{10}`, math.Log10, dLogBase[T](math.Ln10)),
		fn[T]("sqrt", `\sqrt`, math.Sqrt, dSqrt[T]),
		fn[T]("cbrt", `\sqrt[3]`, math.Cbrt, dCbrt[T]),
		fn[T]("abs", "", math.Abs, dAbs[T]),
		fn[T]("signum", `\operatorname{sgn}`, signum, nil),
		fn[T]("floor", `\lfloor`, math.Floor, nil),
		fn[T]("ceil", `\lceil`, math.Ceil, nil),
		fn[T]("round", `\operatorname{round}`, math.Round, nil),
		fn[T]("trunc", `\operatorname{trunc}`, math.Trunc, nil),
		fn[T]("fract", `\operatorname{fract}`, fract, nil),

		fn2[T]("atan2", `\operatorname{atan2}`, math.Atan2, dAtan2[T]),
		fn2[T]("hypot", `\operatorname{hypot}`, math.Hypot, dHypot[T]),
		fn2[T]("min", `\min`, math.Min, nil),
		fn2[T]("max", `\max`, math.Max, nil),
	}
}

// ============================================================
// Derivative rules
// ============================================================

func dAdd[T Float](b *Builder[T], _ Ref, u, v Operand) Ref {
	return b.Binary("+", u.Deriv, v.Deriv)
}

func dSub[T Float](b *Builder[T], _ Ref, u, v Operand) Ref {
	return b.Binary("-", u.Deriv, v.Deriv)
}

func dMul[T Float](b *Builder[T], _ Ref, u, v Operand) Ref {
	return b.Binary("+", b.Binary("*", u.Deriv, v.Value), b.Binary("*", u.Value, v.Deriv))
}

func dDiv[T Float](b *Builder[T], _ Ref, u, v Operand) Ref {
	if b.IsConst(v.Deriv, 0) {
		return b.Binary("/", u.Deriv, v.Value)
	}
	num := b.Binary("-", b.Binary("*", u.Deriv, v.Value), b.Binary("*", u.Value, v.Deriv))
	return b.Binary("/", num, b.Binary("^", v.Value, b.Const(2)))
}

// dPow uses the power rule when the exponent does not depend on the
// variable, so negative bases stay finite.
func dPow[T Float](b *Builder[T], self Ref, u, v Operand) Ref {
	if b.IsConst(v.Deriv, 0) {
		lowered := b.Binary("^", u.Value, b.Binary("-", v.Value, b.Const(1)))
		return b.Binary("*", b.Binary("*", v.Value, lowered), u.Deriv)
	}
	inner := b.Binary("+",
		b.Binary("*", v.Deriv, b.Unary("ln", u.Value)),
		b.Binary("/", b.Binary("*", v.Value, u.Deriv), u.Value))
	return b.Binary("*", self, inner)
}

func dNeg[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref { return b.Unary("-", u.Deriv) }

func dPos[T Float](_ *Builder[T], _ Ref, u, _ Operand) Ref { return u.Deriv }

// chain multiplies an outer derivative by the inner one.
func chain[T Float](b *Builder[T], outer Ref, u Operand) Ref {
	return b.Binary("*", outer, u.Deriv)
}

func dSin[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref {
	return chain(b, b.Unary("cos", u.Value), u)
}

func dCos[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref {
	return chain(b, b.Unary("-", b.Unary("sin", u.Value)), u)
}

func dTan[T Float](b *Builder[T], self Ref, u, _ Operand) Ref {
	return chain(b, b.Binary("+", b.Const(1), b.Binary("^", self, b.Const(2))), u)
}

func dAsin[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref {
	root := b.Unary("sqrt", b.Binary("-", b.Const(1), b.Binary("^", u.Value, b.Const(2))))
	return b.Binary("/", u.Deriv, root)
}

func dAcos[T Float](b *Builder[T], self Ref, u, v Operand) Ref {
	return b.Unary("-", dAsin(b, self, u, v))
}

func dAtan[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref {
	return b.Binary("/", u.Deriv, b.Binary("+", b.Const(1), b.Binary("^", u.Value, b.Const(2))))
}

func dSinh[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref {
	return chain(b, b.Unary("cosh", u.Value), u)
}

func dCosh[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref {
	return chain(b, b.Unary("sinh", u.Value), u)
}

func dTanh[T Float](b *Builder[T], self Ref, u, _ Operand) Ref {
	return chain(b, b.Binary("-", b.Const(1), b.Binary("^", self, b.Const(2))), u)
}

func dExp[T Float](b *Builder[T], self Ref, u, _ Operand) Ref { return chain(b, self, u) }

func dLn[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref {
	return b.Binary("/", u.Deriv, u.Value)
}

func dLogBase[T Float](lnBase float64) DerivRule[T] {
	return func(b *Builder[T], _ Ref, u, _ Operand) Ref {
		return b.Binary("/", u.Deriv, b.Binary("*", u.Value, b.Const(lnBase)))
	}
}

func dSqrt[T Float](b *Builder[T], self Ref, u, _ Operand) Ref {
	return b.Binary("/", u.Deriv, b.Binary("*", b.Const(2), self))
}

func dCbrt[T Float](b *Builder[T], self Ref, u, _ Operand) Ref {
	return b.Binary("/", u.Deriv, b.Binary("*", b.Const(3), b.Binary("^", self, b.Const(2))))
}

func dAbs[T Float](b *Builder[T], _ Ref, u, _ Operand) Ref {
	return chain(b, b.Unary("signum", u.Value), u)
}

// d atan2(y, x) = (x*y' - y*x') / (x^2 + y^2)
func dAtan2[T Float](b *Builder[T], _ Ref, y, x Operand) Ref {
	num := b.Binary("-", b.Binary("*", x.Value, y.Deriv), b.Binary("*", y.Value, x.Deriv))
	den := b.Binary("+", b.Binary("^", x.Value, b.Const(2)), b.Binary("^", y.Value, b.Const(2)))
	return b.Binary("/", num, den)
}

func dHypot[T Float](b *Builder[T], self Ref, u, v Operand) Ref {
	num := b.Binary("+", b.Binary("*", u.Value, u.Deriv), b.Binary("*", v.Value, v.Deriv))
	return b.Binary("/", num, self)
}
