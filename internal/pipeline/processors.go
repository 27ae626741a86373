package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/funvibe/fastrule/internal/config"
	"github.com/funvibe/fastrule/internal/machine"
	"github.com/funvibe/fastrule/internal/notation"
	"github.com/funvibe/fastrule/internal/pattern"
	"github.com/funvibe/fastrule/internal/program"
)

// LoadProcessor reads and decodes the clause file.
type LoadProcessor struct{}

func (lp *LoadProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Failed() {
		return ctx
	}
	if ctx.Source == nil {
		data, err := os.ReadFile(ctx.FilePath)
		if err != nil {
			return ctx.fail(fmt.Errorf("reading clause file %s: %w", ctx.FilePath, err))
		}
		ctx.Source = data
	}
	file, err := config.ParseClauseFile(ctx.Source, ctx.FilePath)
	if err != nil {
		return ctx.fail(err)
	}
	ctx.File = file
	log.Debugf("loaded %s: %d structural, %d data clauses", ctx.FilePath, len(file.Clauses), len(file.Data))
	return ctx
}

// ParseProcessor parses every clause into a pattern, interning names into
// a fresh symbol table.
type ParseProcessor struct{}

func (pp *ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Failed() || ctx.File == nil {
		return ctx
	}
	file := ctx.File

	ctx.Symbols = notation.NewSymbols()
	if err := ctx.Symbols.PinHeads(file.Symbols); err != nil {
		return ctx.fail(fmt.Errorf("%s: symbols: %w", file.Path, err))
	}
	if err := ctx.Symbols.PinTypes(file.Types); err != nil {
		return ctx.fail(fmt.Errorf("%s: types: %w", file.Path, err))
	}

	parser := notation.NewParser(ctx.Symbols)
	var roots []string
	for i, src := range file.Clauses {
		c, err := parser.ParseClause(src)
		if err != nil {
			ctx.fail(fmt.Errorf("%s: clauses[%d] %q: %w", file.Path, i, src, err))
			continue
		}
		ctx.Structural = append(ctx.Structural, c)
		roots = append(roots, c.Root)
	}
	for i, src := range file.Data {
		c, err := parser.ParseDataClause(src)
		if err != nil {
			ctx.fail(fmt.Errorf("%s: data[%d] %q: %w", file.Path, i, src, err))
			continue
		}
		ctx.Data = append(ctx.Data, c)
		roots = append(roots, c.Root)
	}
	if ctx.Failed() {
		return ctx
	}

	if file.Function == "" {
		file.Function = roots[0]
	}
	for _, root := range roots {
		if root != file.Function {
			ctx.fail(fmt.Errorf("%s: clause for %q in a file defining %q", file.Path, root, file.Function))
		}
	}
	return ctx
}

// CompileProcessor compiles the parsed clauses, going through the cache
// when the context has one.
type CompileProcessor struct{}

func (cp *CompileProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Failed() || ctx.File == nil {
		return ctx
	}

	if arity := ctx.File.Arity; arity > 0 {
		for i, c := range ctx.Structural {
			if n := pattern.Arity(c.Term); n > arity {
				ctx.fail(fmt.Errorf("%s: clauses[%d] takes %d arguments, arity is %d", ctx.File.Path, i, n, arity))
			}
		}
		for i, c := range ctx.Data {
			if n := pattern.DataArity(c.Term); n > arity {
				ctx.fail(fmt.Errorf("%s: data[%d] takes %d arguments, arity is %d", ctx.File.Path, i, n, arity))
			}
		}
		if ctx.Failed() {
			return ctx
		}
	}

	compile := func() (*program.Program, error) {
		var p *program.Program
		if ctx.File.Arity > 0 {
			p = program.CompileArity(ctx.Terms(), ctx.DataTerms(), ctx.File.Arity)
		} else {
			p = program.Compile(ctx.Terms(), ctx.DataTerms())
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("compiled program is invalid: %w", err)
		}
		return p, nil
	}

	var err error
	if ctx.Cache != nil {
		ctx.Program, ctx.Cached, err = ctx.Cache.Compiled(ctx.Source, compile)
	} else {
		ctx.Program, err = compile()
	}
	if err != nil {
		return ctx.fail(fmt.Errorf("%s: %w", ctx.File.Path, err))
	}
	log.Infof("compiled %s: %d instructions, %d registers", ctx.File.Function, ctx.Program.Len(), ctx.Program.RegistersNeeded)
	return ctx
}

// ProbeReport is the outcome of one probe.
type ProbeReport struct {
	Index int
	Args  []string
	// Ran is set once the program finished on the arguments.
	Ran      bool
	Result   machine.Result[machine.Value]
	Bindings map[string]machine.Value
	Err      error
}

// Passed reports whether the probe ran, agreed with direct matching and
// met its expectation.
func (r ProbeReport) Passed() bool { return r.Err == nil }

// ProbeProcessor runs the clause file's probes through the compiled
// program and cross-checks every result against direct matching.
type ProbeProcessor struct{}

func (pp *ProbeProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Failed() || ctx.Program == nil {
		return ctx
	}
	parser := notation.NewParser(ctx.Symbols)
	for i, probe := range ctx.File.Probes {
		report := ctx.probe(parser, probe.Args)
		report.Index = i
		if report.Err == nil && probe.Expect != nil {
			report.Err = ctx.expect(parser, report, probe.Expect)
		}
		if report.Err != nil {
			ctx.fail(fmt.Errorf("probe %d (%s): %w", i, strings.Join(probe.Args, ", "), report.Err))
		}
		ctx.Reports = append(ctx.Reports, report)
	}
	return ctx
}

// Probe runs the compiled program on args given in value notation and
// checks the result against direct matching.
func (ctx *PipelineContext) Probe(args []string) ProbeReport {
	return ctx.probe(notation.NewParser(ctx.Symbols), args)
}

func (ctx *PipelineContext) probe(parser *notation.Parser, args []string) ProbeReport {
	report := ProbeReport{Args: args}
	values := make([]machine.Value, len(args))
	for i, arg := range args {
		v, err := parser.ParseValue(arg)
		if err != nil {
			report.Err = fmt.Errorf("argument %d %q: %w", i, arg, err)
			return report
		}
		values[i] = v
	}
	res, err := machine.Run(ctx.Program, values...)
	if err != nil {
		report.Err = err
		return report
	}
	report.Ran = true
	report.Result = res
	report.Bindings = ctx.Bindings(res)
	report.Err = machine.Check(ctx.Terms(), ctx.DataTerms(), values, res)
	return report
}

func (ctx *PipelineContext) expect(parser *notation.Parser, report ProbeReport, want *config.Expect) error {
	res := report.Result
	if got := res.Outcome.String(); got != want.Outcome {
		return fmt.Errorf("outcome %s, want %s", got, want.Outcome)
	}
	if res.Outcome != machine.Failed && res.Clause != want.Clause {
		return fmt.Errorf("fired clause %d, want %d", res.Clause, want.Clause)
	}
	for name, src := range want.Bindings {
		wantValue, err := parser.ParseValue(src)
		if err != nil {
			return fmt.Errorf("binding %s %q: %w", name, src, err)
		}
		got, ok := report.Bindings[name]
		if !ok {
			return fmt.Errorf("%s is not bound", name)
		}
		if !machine.Equal(got, wantValue) {
			return fmt.Errorf("%s = %s, want %s", name, ctx.Symbols.FormatValue(got), src)
		}
	}
	return nil
}
