package flatex

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// Central-difference steps used when none is given.
const (
	DefaultStep   = 1e-6
	DefaultStep32 = 1e-3
)

// Check compares a symbolic partial derivative with a central finite
// difference of the expression itself.
type Check struct {
	Index    int     `json:"index"`
	Analytic float64 `json:"analytic"`
	Numeric  float64 `json:"numeric"`
	AbsErr   float64 `json:"abs_err"`
}

// CheckPartial evaluates Differentiate(i) at x and the central difference
// of e around x[i] with the given step (a width-dependent default when
// step <= 0).
func CheckPartial[T Float](e *Expression[T], i int, x []T, step float64) (Check, error) {
	d, err := e.Differentiate(i)
	if err != nil {
		return Check{}, err
	}
	analytic, err := d.Evaluate(x)
	if err != nil {
		return Check{}, err
	}
	f, err := along(e, x)
	if err != nil {
		return Check{}, err
	}
	numeric := fd.Derivative(func(t float64) float64 {
		p := append([]float64(nil), f.origin...)
		p[i] = t
		return f.eval(p)
	}, f.origin[i], settings[T](step))
	return Check{
		Index:    i,
		Analytic: float64(analytic),
		Numeric:  numeric,
		AbsErr:   math.Abs(float64(analytic) - numeric),
	}, nil
}

// CheckGradient runs CheckPartial for every variable and also returns the
// Euclidean distance between the symbolic and numeric gradients.
func CheckGradient[T Float](e *Expression[T], x []T, step float64) ([]Check, float64, error) {
	n := e.VariableCount()
	f, err := along(e, x)
	if err != nil {
		return nil, 0, err
	}
	numeric := fd.Gradient(nil, f.eval, f.origin[:n], settings[T](step))

	checks := make([]Check, n)
	analytic := make([]float64, n)
	for i := 0; i < n; i++ {
		d, err := e.Differentiate(i)
		if err != nil {
			return nil, 0, fmt.Errorf("partial %d: %w", i, err)
		}
		v, err := d.Evaluate(x)
		if err != nil {
			return nil, 0, err
		}
		analytic[i] = float64(v)
		checks[i] = Check{Index: i, Analytic: analytic[i], Numeric: numeric[i], AbsErr: math.Abs(analytic[i] - numeric[i])}
	}
	return checks, floats.Distance(analytic, numeric, 2), nil
}

// probe adapts an Expression to the float64 callbacks gonum expects.
type probe[T Float] struct {
	e       *Expression[T]
	base    []T
	origin  []float64
	scratch []T
}

func along[T Float](e *Expression[T], x []T) (*probe[T], error) {
	if len(x) < e.VariableCount() {
		return nil, &DimensionError{Required: e.VariableCount(), Provided: len(x)}
	}
	origin := make([]float64, len(x))
	for i, v := range x {
		origin[i] = float64(v)
	}
	return &probe[T]{
		e:       e,
		base:    append([]T(nil), x...),
		origin:  origin,
		scratch: make([]T, len(x)),
	}, nil
}

// eval evaluates e with the leading coordinates replaced by x.
func (p *probe[T]) eval(x []float64) float64 {
	copy(p.scratch, p.base)
	for i, v := range x {
		p.scratch[i] = T(v)
	}
	v, _ := p.e.Evaluate(p.scratch)
	return float64(v)
}

// settings picks a central-difference step; float32 needs a coarser
// default than float64.
func settings[T Float](step float64) *fd.Settings {
	if step <= 0 {
		step = DefaultStep
		if bits[T]() == 32 {
			step = DefaultStep32
		}
	}
	return &fd.Settings{Formula: fd.Central, Step: step}
}
