// cmd/flatex: command-line front end for the flatex tools
//
// Runs one tool call from flags or a batch of calls from a YAML or TOML
// file, printing one JSON object per line. Engine limits come from the
// FLATEX_* environment variables; invalid values fall back to defaults so
// a stray server setting never blocks a local run.
//
// Usage:
//
//	go run ./cmd/flatex --expr "sin(x)*y" --x 0.5,2
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	flatex "github.com/njchilds90/goflatex"
	"github.com/njchilds90/goflatex/internal/config"
	"github.com/njchilds90/goflatex/internal/logging"
)

const (
	version = "0.1.0"
	usage   = `flatex - compile, evaluate and differentiate numeric expressions

Usage:
  flatex [options]

Options:
  -h, --help            Show this help message
  -v, --version         Show version information
  --expr <text>         Expression (defaults to stdin)
  --tool <name>         parse, unparse, latex, evaluate, partial, gradient,
                        hessian or check (default: evaluate when --x is set,
                        unparse otherwise)
  --x <values>          Comma-separated input vector, e.g. "1,2.5"
  --var <name|index>    Variable for partial
  --order <n>           Derivative order for partial (default 1)
  --precision <p>       f32 or f64 (default FLATEX_PRECISION or f64)
  --batch <file>        Run the cases of a .yaml, .yml or .toml file
  --output <file>       Output file (defaults to stdout)
  --exit0               Exit with code 0 even when a case fails
  --debug               Log to stderr at debug level

Examples:
  flatex --expr "sin(x)*y" --x 0.5,2
  flatex --expr "x^3" --tool partial --var x --order 2
  flatex --expr "x*y" --tool hessian --x 1,2
  flatex --batch cases.yaml --output results.jsonl

The tool outputs one JSON object per line.
`
)

func main() {
	var showHelp, showVersion, exit0, debug bool
	var expr, tool, xs, variable, precision, batchFile, outputFile string
	var order int

	flag.BoolVar(&showHelp, "h", false, "Show help")
	flag.BoolVar(&showHelp, "help", false, "Show help")
	flag.BoolVar(&showVersion, "v", false, "Show version")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&exit0, "exit0", false, "Exit with code 0 even on errors")
	flag.BoolVar(&debug, "debug", false, "Debug logging")
	flag.StringVar(&expr, "expr", "", "Expression (defaults to stdin)")
	flag.StringVar(&tool, "tool", "", "Tool name")
	flag.StringVar(&xs, "x", "", "Comma-separated input vector")
	flag.StringVar(&variable, "var", "", "Variable name or index")
	flag.IntVar(&order, "order", 0, "Derivative order")
	flag.StringVar(&precision, "precision", "", "f32 or f64")
	flag.StringVar(&batchFile, "batch", "", "Batch file")
	flag.StringVar(&outputFile, "output", "", "Output file (defaults to stdout)")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}
	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if showVersion {
		fmt.Printf("flatex version %s\n", version)
		os.Exit(0)
	}
	if len(flag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Error: Unexpected positional arguments. Use --expr or --batch instead.\n\n")
		flag.Usage()
		os.Exit(1)
	}

	logger := logging.NewNop()
	if debug {
		logger = logging.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.LoadOrDefault()
	handler := flatex.NewToolHandler(flatex.ToolOptions{
		Precision:  cfg.Engine.Precision,
		MaxExprLen: cfg.Engine.MaxExprLen,
		MaxOrder:   cfg.Engine.MaxOrder,
		Step:       cfg.Engine.FDStep,
	})

	var cases []Case
	if batchFile != "" {
		b, err := loadBatch(batchFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading batch file '%s': %v\n", batchFile, err)
			os.Exit(1)
		}
		cases = b.Cases
		logger.Debug("batch loaded", zap.String("file", batchFile), zap.Int("cases", len(cases)))
	} else {
		c, err := singleCase(expr, tool, xs, variable, order, precision)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cases = []Case{c}
	}
	if precision != "" {
		for i := range cases {
			cases[i].Precision = precision
		}
	}

	var output io.Writer = os.Stdout
	var file *os.File
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file '%s': %v\n", outputFile, err)
			os.Exit(1)
		}
		file, output = f, f
	}

	failed, err := run(handler, cases, output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if file != nil {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing output file '%s': %v\n", outputFile, err)
			os.Exit(1)
		}
	}
	logger.Debug("done", zap.Int("cases", len(cases)), zap.Int("failed", failed))

	if failed > 0 && !exit0 {
		os.Exit(1)
	}
}

func singleCase(expr, tool, xs, variable string, order int, precision string) (Case, error) {
	if expr == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return Case{}, fmt.Errorf("reading stdin: %w", err)
		}
		expr = strings.TrimSpace(string(data))
	}
	c := Case{Tool: tool, Expr: expr, Var: variable, Order: order, Precision: precision}
	if xs != "" {
		x, err := parseVector(xs)
		if err != nil {
			return Case{}, err
		}
		c.X = x
	}
	if c.Tool == "" {
		c.Tool = "unparse"
		if c.X != nil {
			c.Tool = "evaluate"
		}
	}
	return c, nil
}
