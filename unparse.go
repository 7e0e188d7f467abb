package flatex

import (
	"math"
	"strings"
)

// precAtom marks text that never needs parentheses.
const precAtom = 1 << 20

// piece is the rendering of one slot: its text, the precedence of its
// outermost construct and whether that construct is a binary operation.
type piece struct {
	text   string
	prec   int
	binary bool
	neg    bool
}

// Unparse renders the expression so that parsing the result yields an
// expression that evaluates identically.
//
// The text names only the variables the slots use, and parsing numbers
// variables by first appearance. A derivative that no longer mentions a
// variable of its parent, or an expression whose variable order differs
// from the order of appearance, therefore parses back with different input
// positions. Map inputs by name through Variables() in that case.
func (e *Expression[T]) Unparse() (string, error) {
	return e.UnparseWith(e.table)
}

// UnparseWith renders the expression using the symbols and precedences of
// table. It fails with *UnparseError if the expression uses an operator the
// table does not define.
func (e *Expression[T]) UnparseWith(table *OperatorTable[T]) (string, error) {
	return render(e, table, textStyle{})
}

// LaTeX renders the expression as a LaTeX math fragment.
func (e *Expression[T]) LaTeX() (string, error) {
	return render(e, e.table, texStyle{})
}

// style turns already-rendered operands into the text of one slot.
type style interface {
	constant(v float64, text string) piece
	variable(name string) piece
	prefix(op string, prec int, arg string) piece
	call(op, tex string, args []string) piece
	infix(op string, prec int, l, r string) piece
	wrap(text string) string
}

// render walks the slots forward once; each slot's text is built from the
// texts of its operands, which precede it.
func render[T Float](e *Expression[T], table *OperatorTable[T], st style) (string, error) {
	out := make([]piece, len(e.slots))
	for i, s := range e.slots {
		switch s.Kind {
		case ConstSlot:
			out[i] = st.constant(float64(s.Value), formatLiteral(s.Value))
		case VarSlot:
			out[i] = st.variable(e.names[s.Var])
		default:
			var op *Operator[T]
			var ok bool
			if s.Arity == Unary {
				op, ok = table.UnaryOp(s.Symbol)
			} else {
				op, ok = table.BinaryOp(s.Symbol)
			}
			if !ok {
				return "", &UnparseError{Symbol: s.Symbol}
			}
			out[i] = renderOp(st, op, out, s.A, s.B)
		}
	}
	return out[len(out)-1].text, nil
}

func renderOp[T Float](st style, op *Operator[T], out []piece, a, b int) piece {
	if op.Named {
		args := []string{out[a].text}
		if op.Arity == Binary {
			args = append(args, out[b].text)
		}
		return st.call(op.Symbol, op.TeX, args)
	}
	if op.Arity == Unary {
		arg := out[a]
		text := arg.text
		if arg.neg || arg.prec < op.Prec {
			text = st.wrap(text)
		}
		return st.prefix(op.Symbol, op.Prec, text)
	}

	l, r := out[a], out[b]
	lt, rt := l.text, r.text
	if l.neg || l.prec < op.Prec || (l.binary && l.prec == op.Prec && op.Assoc == RightAssoc) {
		lt = st.wrap(lt)
	}
	if r.neg || r.prec < op.Prec || (r.binary && r.prec == op.Prec && op.Assoc == LeftAssoc) {
		rt = st.wrap(rt)
	}
	return st.infix(op.Symbol, op.Prec, lt, rt)
}

// ============================================================
// Plain text
// ============================================================

type textStyle struct{}

func (textStyle) constant(v float64, text string) piece {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return piece{text: text, prec: precAtom}
	}
	return piece{text: text, prec: precAtom, neg: math.Signbit(v)}
}

func (textStyle) variable(name string) piece { return piece{text: name, prec: precAtom} }

func (textStyle) prefix(op string, prec int, arg string) piece {
	return piece{text: op + arg, prec: prec}
}

func (textStyle) call(op, _ string, args []string) piece {
	return piece{text: op + "(" + strings.Join(args, ", ") + ")", prec: precAtom}
}

func (textStyle) infix(op string, prec int, l, r string) piece {
	sep := op
	if op == "+" || op == "-" {
		sep = " " + op + " "
	}
	return piece{text: l + sep + r, prec: prec, binary: true}
}

func (textStyle) wrap(text string) string { return "(" + text + ")" }

// ============================================================
// LaTeX
// ============================================================

type texStyle struct{}

func (texStyle) constant(v float64, text string) piece {
	switch {
	case math.IsNaN(v):
		return piece{text: `\mathrm{NaN}`, prec: precAtom}
	case math.IsInf(v, 1):
		return piece{text: `\infty`, prec: precAtom}
	case math.IsInf(v, -1):
		return piece{text: `-\infty`, prec: precAtom, neg: true}
	}
	if e := strings.IndexAny(text, "eE"); e >= 0 {
		text = text[:e] + ` \cdot 10^{` + strings.TrimPrefix(text[e+1:], "+") + `}`
		return piece{text: text, prec: PrecMultiplicative, binary: true, neg: math.Signbit(v)}
	}
	return piece{text: text, prec: precAtom, neg: math.Signbit(v)}
}

func (texStyle) variable(name string) piece {
	if len([]rune(name)) > 1 {
		return piece{text: `\mathit{` + strings.ReplaceAll(name, "_", `\_`) + `}`, prec: precAtom}
	}
	return piece{text: name, prec: precAtom}
}

func (texStyle) prefix(op string, prec int, arg string) piece {
	return piece{text: op + arg, prec: prec}
}

func (texStyle) call(op, tex string, args []string) piece {
	switch op {
	case "sqrt":
		return piece{text: `\sqrt{` + args[0] + `}`, prec: precAtom}
	case "cbrt":
		return piece{text: `\sqrt[3]{` + args[0] + `}`, prec: precAtom}
	case "abs":
		return piece{text: `\left|` + args[0] + `\right|`, prec: precAtom}
	case "floor":
		return piece{text: `\left\lfloor ` + args[0] + ` \right\rfloor`, prec: precAtom}
	case "ceil":
		return piece{text: `\left\lceil ` + args[0] + ` \right\rceil`, prec: precAtom}
	}
	if tex == "" {
		tex = `\operatorname{` + op + `}`
	}
	return piece{text: tex + `\left(` + strings.Join(args, ", ") + `\right)`, prec: precAtom}
}

func (texStyle) infix(op string, prec int, l, r string) piece {
	var text string
	switch op {
	case "*":
		text = l + ` \cdot ` + r
	case "/":
		return piece{text: `\frac{` + unwrapTeX(l) + `}{` + unwrapTeX(r) + `}`, prec: precAtom}
	case "^":
		return piece{text: `{` + l + `}^{` + unwrapTeX(r) + `}`, prec: prec, binary: true}
	case "%":
		text = l + ` \bmod ` + r
	default:
		text = l + " " + op + " " + r
	}
	return piece{text: text, prec: prec, binary: true}
}

func (texStyle) wrap(text string) string { return `\left(` + text + `\right)` }

// unwrapTeX drops one level of \left( \right) where braces already group.
func unwrapTeX(s string) string {
	if strings.HasPrefix(s, `\left(`) && strings.HasSuffix(s, `\right)`) {
		inner := s[len(`\left(`) : len(s)-len(`\right)`)]
		if balancedTeX(inner) {
			return inner
		}
	}
	return s
}

func balancedTeX(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], `\left(`):
			depth++
			i += len(`\left(`) - 1
		case strings.HasPrefix(s[i:], `\right)`):
			depth--
			if depth < 0 {
				return false
			}
			i += len(`\right)`) - 1
		}
	}
	return depth == 0
}
