// Package flatex compiles textual mathematical expressions into a flat,
// index-addressed slot sequence that can be evaluated many times without
// recursion, differentiated symbolically with respect to one variable at a
// time, and rendered back to text.
//
// The engine is generic over float32 and float64. Expressions are immutable
// after construction; Evaluate, Differentiate and Unparse may be called from
// any number of goroutines on the same Expression.
//
//	e, err := flatex.Parse64("sin(x)*x")
//	d, err := e.Differentiate(0)  // cos(x)*x + sin(x)
//	v, err := d.Evaluate([]float64{0})
package flatex

import (
	"encoding/json"
	"strconv"
)

// Expression is the flat representation of a parsed expression.
type Expression[T Float] struct {
	table *OperatorTable[T]
	slots []Slot[T]
	names []string
}

// Parse compiles text using the default operator table for T.
func Parse[T Float](text string) (*Expression[T], error) {
	return ParseWith(DefaultOperators[T](), text)
}

// Parse32 is Parse instantiated for float32.
func Parse32(text string) (*Expression[float32], error) { return Parse[float32](text) }

// Parse64 is Parse instantiated for float64.
func Parse64(text string) (*Expression[float64], error) { return Parse[float64](text) }

// ParseWith compiles text against a caller-supplied operator table.
func ParseWith[T Float](table *OperatorTable[T], text string) (*Expression[T], error) {
	toks, err := tokenize(text, table)
	if err != nil {
		return nil, err
	}
	root, names, err := parse(table, toks)
	if err != nil {
		return nil, err
	}
	return &Expression[T]{table: table, slots: flatten(root), names: names}, nil
}

// VariableCount is the minimum input length Evaluate accepts.
func (e *Expression[T]) VariableCount() int { return len(e.names) }

// Variables returns the variable names; index i names input position i.
func (e *Expression[T]) Variables() []string { return append([]string(nil), e.names...) }

// Len is the number of slots.
func (e *Expression[T]) Len() int { return len(e.slots) }

// Slots returns a copy of the flat representation. The last slot is the
// result.
func (e *Expression[T]) Slots() []Slot[T] { return append([]Slot[T](nil), e.slots...) }

// Table returns the operator table the expression was built with.
func (e *Expression[T]) Table() *OperatorTable[T] { return e.table }

// ============================================================
// Evaluator
// ============================================================

// Evaluate computes the expression for x, which must hold at least
// VariableCount values. x is read, never retained. Division by zero and
// domain errors produce Inf or NaN as IEEE arithmetic does.
func (e *Expression[T]) Evaluate(x []T) (T, error) {
	return e.EvaluateBuffer(x, nil)
}

// EvaluateBuffer is Evaluate with a caller-owned scratch buffer, which
// avoids the per-call allocation when len(scratch) >= Len(). A scratch
// buffer must not be shared between concurrent calls.
func (e *Expression[T]) EvaluateBuffer(x, scratch []T) (T, error) {
	if len(x) < len(e.names) {
		return 0, &DimensionError{Required: len(e.names), Provided: len(x)}
	}
	if len(scratch) < len(e.slots) {
		scratch = make([]T, len(e.slots))
	}
	for i := range e.slots {
		s := &e.slots[i]
		switch s.Kind {
		case ConstSlot:
			scratch[i] = s.Value
		case VarSlot:
			scratch[i] = x[s.Var]
		default:
			if s.Arity == Unary {
				scratch[i] = s.op.Unary(scratch[s.A])
			} else {
				scratch[i] = s.op.Binary(scratch[s.A], scratch[s.B])
			}
		}
	}
	return scratch[len(e.slots)-1], nil
}

// ============================================================
// Differentiator
// ============================================================

// Differentiate returns the partial derivative with respect to variable i
// as a new Expression. The receiver is not modified, and the result keeps
// the receiver's variable list so further partials use the same indices.
func (e *Expression[T]) Differentiate(i int) (*Expression[T], error) {
	if i < 0 || i >= len(e.names) {
		return nil, &IndexError{Index: i, NumVars: len(e.names)}
	}
	b := newBuilder(e.table, e.slots)
	d := make([]Ref, len(e.slots))
	for k := range e.slots {
		s := &e.slots[k]
		switch s.Kind {
		case ConstSlot:
			d[k] = b.Const(0)
		case VarSlot:
			if s.Var == i {
				d[k] = b.Const(1)
			} else {
				d[k] = b.Const(0)
			}
		default:
			if s.op.Deriv == nil {
				return nil, &NotDifferentiableError{Symbol: s.Symbol}
			}
			u := Operand{Value: Ref(s.A), Deriv: d[s.A]}
			var v Operand
			if s.Arity == Binary {
				v = Operand{Value: Ref(s.B), Deriv: d[s.B]}
			}
			d[k] = s.op.Deriv(b, Ref(k), u, v)
			if err := b.Err(); err != nil {
				return nil, err
			}
		}
	}
	return &Expression[T]{
		table: e.table,
		slots: fold(b.slots, int(d[len(d)-1])),
		names: e.names,
	}, nil
}

// DifferentiateByName is Differentiate addressed by variable name.
func (e *Expression[T]) DifferentiateByName(name string) (*Expression[T], error) {
	for i, n := range e.names {
		if n == name {
			return e.Differentiate(i)
		}
	}
	return nil, &NameError{Name: name}
}

// ============================================================
// Formatting
// ============================================================

// String returns the unparsed text, or the error text if rendering fails.
func (e *Expression[T]) String() string {
	s, err := e.Unparse()
	if err != nil {
		return err.Error()
	}
	return s
}

type jsonSlot struct {
	Const string `json:"const,omitempty"`
	Var   *int   `json:"var,omitempty"`
	Name  string `json:"name,omitempty"`
	Op    string `json:"op,omitempty"`
	Args  []int  `json:"args,omitempty"`
}

// MarshalJSON encodes the variables, the slots and the unparsed text.
func (e *Expression[T]) MarshalJSON() ([]byte, error) {
	slots := make([]jsonSlot, len(e.slots))
	for i, s := range e.slots {
		switch s.Kind {
		case ConstSlot:
			slots[i].Const = strconv.FormatFloat(float64(s.Value), 'g', -1, bits[T]())
		case VarSlot:
			v := s.Var
			slots[i].Var = &v
			slots[i].Name = e.names[v]
		default:
			slots[i].Op = s.Symbol
			slots[i].Args = []int{s.A}
			if s.Arity == Binary {
				slots[i].Args = append(slots[i].Args, s.B)
			}
		}
	}
	text, err := e.Unparse()
	if err != nil {
		return nil, err
	}
	names := e.names
	if names == nil {
		names = []string{}
	}
	return json.Marshal(map[string]interface{}{
		"precision": bits[T](),
		"variables": names,
		"slots":     slots,
		"text":      text,
	})
}
