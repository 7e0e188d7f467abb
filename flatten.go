package flatex

import "math"

// ============================================================
// Slots
// ============================================================

// SlotKind tags a Slot.
type SlotKind uint8

const (
	ConstSlot SlotKind = iota
	VarSlot
	OpSlot
)

// Slot is one entry of the flat representation. Operation slots refer to
// their operands by index, and operands always precede the slot that uses
// them.
type Slot[T Float] struct {
	Kind SlotKind
	// ConstSlot
	Value T
	// VarSlot: position in the input vector
	Var int
	// OpSlot
	Symbol string
	Arity  Arity
	A, B   int

	op *Operator[T]
}

func constSlot[T Float](v T) Slot[T] { return Slot[T]{Kind: ConstSlot, Value: v, A: -1, B: -1} }

func varSlot[T Float](i int) Slot[T] { return Slot[T]{Kind: VarSlot, Var: i, A: -1, B: -1} }

func opSlot[T Float](op *Operator[T], a, b int) Slot[T] {
	return Slot[T]{Kind: OpSlot, Symbol: op.Symbol, Arity: op.Arity, A: a, B: b, op: op}
}

// ============================================================
// Flattener
// ============================================================

// flatten linearizes the tree in post-order, then folds constants.
// Equal subtrees are emitted once per occurrence.
func flatten[T Float](root *node[T]) []Slot[T] {
	var slots []Slot[T]
	var emit func(n *node[T]) int
	emit = func(n *node[T]) int {
		switch n.kind {
		case nodeConst:
			slots = append(slots, constSlot(n.value))
		case nodeVar:
			slots = append(slots, varSlot[T](n.index))
		case nodeUnary:
			a := emit(n.left)
			slots = append(slots, opSlot(n.op, a, -1))
		case nodeBinary:
			a := emit(n.left)
			b := emit(n.right)
			slots = append(slots, opSlot(n.op, a, b))
		}
		return len(slots) - 1
	}
	top := emit(root)
	return fold(slots, top)
}

// fold replaces every operation whose operands are all literals by its
// value, then keeps only slots reachable from root, renumbered in their
// original order. root becomes the last slot of the result.
func fold[T Float](in []Slot[T], root int) []Slot[T] {
	work := make([]Slot[T], root+1)
	copy(work, in[:root+1])
	for i := range work {
		s := &work[i]
		if s.Kind != OpSlot || work[s.A].Kind != ConstSlot {
			continue
		}
		if s.Arity == Unary {
			*s = constSlot(s.op.Unary(work[s.A].Value))
		} else if work[s.B].Kind == ConstSlot {
			*s = constSlot(s.op.Binary(work[s.A].Value, work[s.B].Value))
		}
	}

	live := make([]bool, len(work))
	live[root] = true
	for i := root; i >= 0; i-- {
		if !live[i] || work[i].Kind != OpSlot {
			continue
		}
		live[work[i].A] = true
		if work[i].Arity == Binary {
			live[work[i].B] = true
		}
	}

	remap := make([]int, len(work))
	out := make([]Slot[T], 0, len(work))
	for i, s := range work {
		if !live[i] {
			continue
		}
		if s.Kind == OpSlot {
			s.A = remap[s.A]
			if s.Arity == Binary {
				s.B = remap[s.B]
			}
		}
		remap[i] = len(out)
		out = append(out, s)
	}
	return out
}

// ============================================================
// Builder
// ============================================================

// Builder appends slots on top of an existing flat representation. It is
// what derivative rules use to emit new operations. Besides literal folding
// it applies the identities 0+a, a-0, 0*a, 1*a, a/1, 0/a, a^1 and a^0 so
// derivatives do not accumulate trivial arithmetic.
type Builder[T Float] struct {
	table  *OperatorTable[T]
	slots  []Slot[T]
	consts map[uint64]Ref
	err    error
}

func newBuilder[T Float](table *OperatorTable[T], base []Slot[T]) *Builder[T] {
	b := &Builder[T]{
		table:  table,
		slots:  make([]Slot[T], len(base), 2*len(base)+4),
		consts: map[uint64]Ref{},
	}
	copy(b.slots, base)
	return b
}

// Const returns a slot holding v, reusing an earlier one when possible.
func (b *Builder[T]) Const(v float64) Ref { return b.constT(T(v)) }

func (b *Builder[T]) constT(v T) Ref {
	key := math.Float64bits(float64(v))
	if r, ok := b.consts[key]; ok && !math.IsNaN(float64(v)) {
		return r
	}
	b.slots = append(b.slots, constSlot(v))
	r := Ref(len(b.slots) - 1)
	b.consts[key] = r
	return r
}

// IsConst reports whether r is a literal equal to v.
func (b *Builder[T]) IsConst(r Ref, v float64) bool {
	s := b.slots[r]
	return s.Kind == ConstSlot && s.Value == T(v)
}

// Unary emits symbol applied to a.
func (b *Builder[T]) Unary(symbol string, a Ref) Ref {
	op, ok := b.table.UnaryOp(symbol)
	if !ok {
		b.fail(symbol)
		return a
	}
	if s := b.slots[a]; s.Kind == ConstSlot {
		return b.constT(op.Unary(s.Value))
	}
	if symbol == "+" && !op.Named {
		return a
	}
	b.slots = append(b.slots, opSlot(op, int(a), -1))
	return Ref(len(b.slots) - 1)
}

// Binary emits symbol applied to x and y.
func (b *Builder[T]) Binary(symbol string, x, y Ref) Ref {
	op, ok := b.table.BinaryOp(symbol)
	if !ok {
		b.fail(symbol)
		return x
	}
	sx, sy := b.slots[x], b.slots[y]
	if sx.Kind == ConstSlot && sy.Kind == ConstSlot {
		return b.constT(op.Binary(sx.Value, sy.Value))
	}
	switch symbol {
	case "+":
		if b.IsConst(x, 0) {
			return y
		}
		if b.IsConst(y, 0) {
			return x
		}
	case "-":
		if b.IsConst(y, 0) {
			return x
		}
		if b.IsConst(x, 0) {
			return b.Unary("-", y)
		}
	case "*":
		if b.IsConst(x, 0) || b.IsConst(y, 0) {
			return b.Const(0)
		}
		if b.IsConst(x, 1) {
			return y
		}
		if b.IsConst(y, 1) {
			return x
		}
	case "/":
		if b.IsConst(x, 0) {
			return b.Const(0)
		}
		if b.IsConst(y, 1) {
			return x
		}
	case "^":
		if b.IsConst(y, 1) {
			return x
		}
		if b.IsConst(y, 0) {
			return b.Const(1)
		}
	}
	b.slots = append(b.slots, opSlot(op, int(x), int(y)))
	return Ref(len(b.slots) - 1)
}

func (b *Builder[T]) fail(symbol string) {
	if b.err == nil {
		b.err = &NotDifferentiableError{Symbol: symbol}
	}
}

// Err returns the first error recorded by the builder.
func (b *Builder[T]) Err() error { return b.err }
