package flatex

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// ============================================================
// Tool interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	String string      `json:"string,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	Error  string      `json:"error,omitempty"`
	Kind   string      `json:"kind,omitempty"`
}

// ToolOptions bounds what a single tool call may ask for.
type ToolOptions struct {
	// Precision used when a request does not name one: "f32" or "f64".
	Precision  string
	MaxExprLen int
	MaxOrder   int
	// Step for the check tool; <= 0 picks a width-dependent default.
	Step float64
}

func DefaultToolOptions() ToolOptions {
	return ToolOptions{Precision: "f64", MaxExprLen: 4096, MaxOrder: 8}
}

// ToolHandler executes tool calls. It holds no mutable state and may be
// shared between goroutines.
type ToolHandler struct {
	opts ToolOptions
}

func NewToolHandler(opts ToolOptions) *ToolHandler {
	def := DefaultToolOptions()
	if opts.Precision == "" {
		opts.Precision = def.Precision
	}
	if opts.MaxExprLen <= 0 {
		opts.MaxExprLen = def.MaxExprLen
	}
	if opts.MaxOrder <= 0 {
		opts.MaxOrder = def.MaxOrder
	}
	return &ToolHandler{opts: opts}
}

var defaultToolHandler = NewToolHandler(DefaultToolOptions())

// HandleToolCall runs req with DefaultToolOptions.
func HandleToolCall(req ToolRequest) ToolResponse { return defaultToolHandler.Handle(req) }

var toolNames = map[string]bool{
	"parse": true, "unparse": true, "latex": true, "evaluate": true, "partial": true,
	"gradient": true, "hessian": true, "check": true, "spec": true,
}

// KnownTool reports whether name is a tool Handle dispatches.
func KnownTool(name string) bool { return toolNames[name] }

// errRequest marks malformed tool parameters.
var errRequest = errors.New("bad request")

func badParam(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errRequest, fmt.Sprintf(format, args...))
}

// ErrorKind classifies err for responses and metrics labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLex):
		return "lex"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrDimension):
		return "dimension"
	case errors.Is(err, ErrIndex):
		return "index"
	case errors.Is(err, ErrNotDifferentiable):
		return "not_differentiable"
	case errors.Is(err, ErrUnparse):
		return "unparse"
	case errors.Is(err, errRequest):
		return "request"
	}
	return "internal"
}

func failure(err error) ToolResponse {
	return ToolResponse{Error: err.Error(), Kind: ErrorKind(err)}
}

// Handle dispatches req to the tool it names.
func (h *ToolHandler) Handle(req ToolRequest) ToolResponse {
	if req.Tool == "spec" {
		return ToolResponse{String: ToolSpec()}
	}
	prec := h.opts.Precision
	if v, ok := req.Params["precision"]; ok {
		s, ok := v.(string)
		if !ok {
			return failure(badParam("param precision must be a string"))
		}
		prec = s
	}
	switch prec {
	case "f32", "float32":
		return dispatch[float32](h, req)
	case "f64", "float64":
		return dispatch[float64](h, req)
	}
	return failure(badParam("unknown precision %q", prec))
}

// Number encodes non-finite values as strings, which JSON cannot carry.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func dispatch[T Float](h *ToolHandler, req ToolRequest) ToolResponse {
	p := params[T](req.Params)

	text, err := p.str("expr")
	if err != nil {
		return failure(err)
	}
	if len(text) > h.opts.MaxExprLen {
		return failure(badParam("expression longer than %d bytes", h.opts.MaxExprLen))
	}
	e, err := Parse[T](text)
	if err != nil {
		return failure(SourceSnippet(err, text))
	}

	switch req.Tool {
	case "parse":
		return describe(e, map[string]interface{}{
			"variables": e.Variables(),
			"n_vars":    e.VariableCount(),
			"slots":     e.Len(),
		})

	case "unparse":
		s, err := e.Unparse()
		if err != nil {
			return failure(err)
		}
		return ToolResponse{String: s}

	case "latex":
		s, err := e.LaTeX()
		if err != nil {
			return failure(err)
		}
		return ToolResponse{LaTeX: s}

	case "evaluate":
		x, err := p.vector("x")
		if err != nil {
			return failure(err)
		}
		v, err := e.Evaluate(x)
		if err != nil {
			return failure(err)
		}
		return ToolResponse{Result: Number(v)}

	case "partial":
		i, err := p.variable(e, "var")
		if err != nil {
			return failure(err)
		}
		order, err := p.intOr("order", 1)
		if err != nil {
			return failure(err)
		}
		if order < 1 || order > h.opts.MaxOrder {
			return failure(badParam("order must be in [1, %d]", h.opts.MaxOrder))
		}
		d := e
		for k := 0; k < order; k++ {
			if d, err = d.Differentiate(i); err != nil {
				return failure(err)
			}
		}
		result := map[string]interface{}{"variables": d.Variables(), "slots": d.Len()}
		if p.has("x") {
			x, err := p.vector("x")
			if err != nil {
				return failure(err)
			}
			v, err := d.Evaluate(x)
			if err != nil {
				return failure(err)
			}
			result["value"] = Number(v)
		}
		return describe(d, result)

	case "gradient":
		x, err := p.vector("x")
		if err != nil {
			return failure(err)
		}
		g, err := gradient(e, x)
		if err != nil {
			return failure(err)
		}
		return ToolResponse{Result: g}

	case "hessian":
		x, err := p.vector("x")
		if err != nil {
			return failure(err)
		}
		hs, err := hessian(e, x)
		if err != nil {
			return failure(err)
		}
		return ToolResponse{Result: hs}

	case "check":
		x, err := p.vector("x")
		if err != nil {
			return failure(err)
		}
		step := h.opts.Step
		if p.has("step") {
			if step, err = p.num("step"); err != nil {
				return failure(err)
			}
		}
		checks, dist, err := CheckGradient(e, x, step)
		if err != nil {
			return failure(err)
		}
		partials := make([]checkResult, len(checks))
		for i, ck := range checks {
			partials[i] = checkResult{ck.Index, Number(ck.Analytic), Number(ck.Numeric), Number(ck.AbsErr)}
		}
		return ToolResponse{Result: map[string]interface{}{"partials": partials, "distance": Number(dist)}}
	}
	return failure(badParam("unknown tool: %s", req.Tool))
}

// checkResult is Check with JSON-safe numbers.
type checkResult struct {
	Index    int    `json:"index"`
	Analytic Number `json:"analytic"`
	Numeric  Number `json:"numeric"`
	AbsErr   Number `json:"abs_err"`
}

func describe[T Float](e *Expression[T], result map[string]interface{}) ToolResponse {
	s, err := e.Unparse()
	if err != nil {
		return failure(err)
	}
	tex, err := e.LaTeX()
	if err != nil {
		return failure(err)
	}
	return ToolResponse{Result: result, String: s, LaTeX: tex}
}

// gradient evaluates one partial per variable.
func gradient[T Float](e *Expression[T], x []T) ([]Number, error) {
	n := e.VariableCount()
	out := make([]Number, n)
	for i := 0; i < n; i++ {
		d, err := e.Differentiate(i)
		if err != nil {
			return nil, err
		}
		v, err := d.Evaluate(x)
		if err != nil {
			return nil, err
		}
		out[i] = Number(v)
	}
	return out, nil
}

// hessian evaluates the upper triangle of second partials and mirrors it.
func hessian[T Float](e *Expression[T], x []T) ([][]Number, error) {
	n := e.VariableCount()
	if n == 0 {
		return [][]Number{}, nil
	}
	h := mat.NewSymDense(n, nil)
	for r := 0; r < n; r++ {
		dr, err := e.Differentiate(r)
		if err != nil {
			return nil, err
		}
		for c := r; c < n; c++ {
			drc, err := dr.Differentiate(c)
			if err != nil {
				return nil, err
			}
			v, err := drc.Evaluate(x)
			if err != nil {
				return nil, err
			}
			h.SetSym(r, c, float64(v))
		}
	}
	rows := make([][]Number, n)
	for r := range rows {
		rows[r] = make([]Number, n)
		for c := range rows[r] {
			rows[r][c] = Number(h.At(r, c))
		}
	}
	return rows, nil
}

// ============================================================
// Parameter access
// ============================================================

type params[T Float] map[string]interface{}

func (p params[T]) has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p params[T]) str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", badParam("missing param: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", badParam("param %s must be a string", key)
	}
	return s, nil
}

func (p params[T]) num(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, badParam("missing param: %s", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, badParam("param %s must be a number", key)
}

func (p params[T]) intOr(key string, def int) (int, error) {
	if !p.has(key) {
		return def, nil
	}
	f, err := p.num(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, badParam("param %s must be an integer", key)
	}
	return int(f), nil
}

func (p params[T]) vector(key string) ([]T, error) {
	v, ok := p[key]
	if !ok {
		return nil, badParam("missing param: %s", key)
	}
	switch raw := v.(type) {
	case []T:
		return raw, nil
	case []float64:
		out := make([]T, len(raw))
		for i, f := range raw {
			out[i] = T(f)
		}
		return out, nil
	case []interface{}:
		out := make([]T, len(raw))
		for i, r := range raw {
			f, err := params[T]{"v": r}.num("v")
			if err != nil {
				return nil, badParam("param %s[%d] must be a number", key, i)
			}
			out[i] = T(f)
		}
		return out, nil
	}
	return nil, badParam("param %s must be an array of numbers", key)
}

// variable resolves a variable given either by index or by name.
func (p params[T]) variable(e *Expression[T], key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, badParam("missing param: %s", key)
	}
	if name, ok := v.(string); ok {
		for i, n := range e.Variables() {
			if n == name {
				return i, nil
			}
		}
		return 0, &NameError{Name: name}
	}
	return p.intOr(key, 0)
}

// ============================================================
// Schema
// ============================================================

// ToolSpec returns the JSON schema of every tool for agent registration.
func ToolSpec() string {
	expr := map[string]string{"expr": "string", "precision": "string"}
	withX := map[string]string{"expr": "string", "x": "array", "precision": "string"}
	tools := []map[string]interface{}{
		ts("parse", "Parse an expression; returns variables, slot count, text and LaTeX", []string{"expr"}, expr),
		ts("unparse", "Canonical text of an expression after constant folding", []string{"expr"}, expr),
		ts("latex", "Render an expression as LaTeX", []string{"expr"}, expr),
		ts("evaluate", "Evaluate at x (array, one value per variable in order of appearance)", []string{"expr", "x"}, withX),
		ts("partial", "Partial derivative w.r.t. var (index or name); optional order and x", []string{"expr", "var"},
			map[string]string{"expr": "string", "var": "string", "order": "integer", "x": "array", "precision": "string"}),
		ts("gradient", "Gradient at x, one partial per variable", []string{"expr", "x"}, withX),
		ts("hessian", "Hessian at x from repeated partials", []string{"expr", "x"}, withX),
		ts("check", "Compare symbolic partials with central finite differences at x; optional step", []string{"expr", "x"},
			map[string]string{"expr": "string", "x": "array", "step": "number", "precision": "string"}),
		ts("spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	b, _ := json.MarshalIndent(map[string]interface{}{"tools": tools}, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
