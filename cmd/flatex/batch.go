package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	flatex "github.com/njchilds90/goflatex"
)

// BatchFile is a list of tool calls read from YAML or TOML.
type BatchFile struct {
	// Precision applies to cases that do not set their own.
	Precision string `yaml:"precision" toml:"precision"`
	Cases     []Case `yaml:"cases" toml:"cases"`
}

// Case is one tool call. Var is a variable name or a decimal index.
type Case struct {
	Name      string    `yaml:"name" toml:"name"`
	Tool      string    `yaml:"tool" toml:"tool"`
	Expr      string    `yaml:"expr" toml:"expr"`
	X         []float64 `yaml:"x" toml:"x"`
	Var       string    `yaml:"var" toml:"var"`
	Order     int       `yaml:"order" toml:"order"`
	Step      float64   `yaml:"step" toml:"step"`
	Precision string    `yaml:"precision" toml:"precision"`
}

// loadBatch decodes path by extension: .yaml/.yml or .toml.
func loadBatch(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b BatchFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &b)
	case ".toml":
		err = toml.Unmarshal(data, &b)
	default:
		return nil, fmt.Errorf("unsupported batch file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	for i := range b.Cases {
		if b.Cases[i].Precision == "" {
			b.Cases[i].Precision = b.Precision
		}
		if b.Cases[i].Name == "" {
			b.Cases[i].Name = strconv.Itoa(i + 1)
		}
	}
	return &b, nil
}

// Request converts the case to the tool protocol, leaving out unset fields
// so tool defaults apply.
func (c Case) Request() flatex.ToolRequest {
	params := map[string]interface{}{"expr": c.Expr}
	if c.X != nil {
		params["x"] = c.X
	}
	if c.Var != "" {
		if i, err := strconv.Atoi(c.Var); err == nil {
			params["var"] = float64(i)
		} else {
			params["var"] = c.Var
		}
	}
	if c.Order != 0 {
		params["order"] = float64(c.Order)
	}
	if c.Step != 0 {
		params["step"] = c.Step
	}
	if c.Precision != "" {
		params["precision"] = c.Precision
	}
	return flatex.ToolRequest{Tool: c.Tool, Params: params}
}

// line is one JSON output record.
type line struct {
	Case string `json:"case,omitempty"`
	Tool string `json:"tool"`
	flatex.ToolResponse
}

// run executes every case, writing one JSON object per line. It returns
// the number of failed cases.
func run(h *flatex.ToolHandler, cases []Case, w io.Writer) (int, error) {
	failed := 0
	for _, c := range cases {
		resp := h.Handle(c.Request())
		if resp.Error != "" {
			failed++
		}
		out, err := sonic.Marshal(line{Case: c.Name, Tool: c.Tool, ToolResponse: resp})
		if err != nil {
			return failed, fmt.Errorf("case %s: %w", c.Name, err)
		}
		if _, err := fmt.Fprintln(w, string(out)); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// parseVector reads "1, 2.5,-3" into a float64 slice.
func parseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []float64{}, nil
	}
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("x[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
