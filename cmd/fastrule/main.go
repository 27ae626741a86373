package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funvibe/fastrule/internal/cache"
	"github.com/funvibe/fastrule/internal/config"
	"github.com/funvibe/fastrule/internal/machine"
	"github.com/funvibe/fastrule/internal/pipeline"
	"github.com/funvibe/fastrule/internal/program"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger(config.LogRoot)

// options are the flags shared by every command.
type options struct {
	output    string
	cachePath string
	verbosity int
	disasm    bool
	noColor   bool
}

// parseArgs splits command arguments into positional arguments and flags.
func parseArgs(args []string) ([]string, options, error) {
	var opts options
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-o", "--output", "--cache":
			if i+1 >= len(args) {
				return nil, opts, fmt.Errorf("%s needs a value", arg)
			}
			i++
			if arg == "--cache" {
				opts.cachePath = args[i]
			} else {
				opts.output = args[i]
			}
		case "-v", "--verbose":
			opts.verbosity++
		case "-vv":
			opts.verbosity += 2
		case "-d", "--disasm":
			opts.disasm = true
		case "--no-color":
			opts.noColor = true
		default:
			positional = append(positional, arg)
		}
	}
	return positional, opts, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func useColor(opts options) bool {
	if opts.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// openCache opens the cache named on the command line, or the default one
// when FASTRULE_CACHE is set. It returns nil when caching is off.
func openCache(opts options) *cache.Cache {
	var (
		c   *cache.Cache
		err error
	)
	switch {
	case opts.cachePath != "":
		c, err = cache.Open(opts.cachePath)
	case os.Getenv(config.CacheEnvVar) != "":
		c, err = cache.OpenDefault()
	default:
		return nil
	}
	if err != nil {
		// Compiling without a cache is always possible.
		log.Warningf("cache disabled: %s", err)
		return nil
	}
	return c
}

// build runs p over the clause file at path. It fails when no program
// came out of the pipeline; the cache is closed either way.
func build(p *pipeline.Pipeline, path string, opts options) (*pipeline.PipelineContext, error) {
	ctx := pipeline.NewContext(path)
	if c := openCache(opts); c != nil {
		defer c.Close()
		ctx.Cache = c
	}
	ctx = p.Run(ctx)
	if ctx.Failed() && ctx.Program == nil {
		return ctx, ctx.Err()
	}
	return ctx, nil
}

// mustBuild is build for command handlers: it prints every error and exits.
func mustBuild(p *pipeline.Pipeline, path string, opts options) *pipeline.PipelineContext {
	ctx, err := build(p, path, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Errors in %s:\n", path)
		for _, err := range ctx.Errors {
			fmt.Fprintf(os.Stderr, "- %s\n", err)
		}
		os.Exit(1)
	}
	return ctx
}

func printProgram(ctx *pipeline.PipelineContext, opts options) {
	d := program.Disassembler{Names: ctx.Symbols, Color: useColor(opts)}
	fmt.Print(d.Disassemble(ctx.Program, ctx.File.Function))
}

func handleCompile(args []string) {
	positional, opts, err := parseArgs(args)
	if err != nil {
		fatalf("Error: %s", err)
	}
	if len(positional) != 1 {
		fatalf("Usage: fastrule compile <file> [-o out%s] [--cache db] [-d] [-v]", config.ProgramFileExt)
	}
	commonlog.Configure(opts.verbosity, nil)

	path := positional[0]
	ctx := mustBuild(pipeline.Compile(), path, opts)

	out := opts.output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + config.ProgramFileExt
	}
	var data []byte
	if strings.EqualFold(filepath.Ext(out), ".cbor") {
		data, err = ctx.Program.MarshalCBOR()
	} else {
		data, err = ctx.Program.MarshalBinary()
	}
	if err != nil {
		fatalf("Serialization error: %s", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fatalf("Error writing program file: %s", err)
	}

	if opts.disasm {
		printProgram(ctx, opts)
	}
	source := "compiled"
	if ctx.Cached {
		source = "cached"
	}
	fmt.Printf("%s: %d instructions, %d registers (%s) -> %s\n",
		ctx.File.Function, ctx.Program.Len(), ctx.Program.RegistersNeeded, source, out)
}

func handleRun(args []string) {
	positional, opts, err := parseArgs(args)
	if err != nil {
		fatalf("Error: %s", err)
	}
	if len(positional) < 1 {
		fatalf("Usage: fastrule run <file> <value>... [--cache db] [-d] [-v]")
	}
	commonlog.Configure(opts.verbosity, nil)

	ctx := mustBuild(pipeline.Compile(), positional[0], opts)
	if opts.disasm {
		printProgram(ctx, opts)
	}

	report := ctx.Probe(positional[1:])
	res := report.Result
	if !report.Ran {
		fatalf("Error: %s", report.Err)
	}

	switch res.Outcome {
	case machine.Failed:
		fmt.Printf("fail (%d steps)\n", res.Steps)
	default:
		src := ctx.File.Clauses
		if res.Outcome == machine.FiredData {
			src = ctx.File.Data
		}
		fmt.Printf("%s clause %d: %s (%d steps)\n", res.Outcome, res.Clause, src[res.Clause], res.Steps)
		names := make([]string, 0, len(report.Bindings))
		for name := range report.Bindings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s = %s\n", name, ctx.Symbols.FormatValue(report.Bindings[name]))
		}
	}
	if report.Err != nil {
		fatalf("Mismatch with direct matching: %s", report.Err)
	}
	if res.Outcome == machine.Failed {
		os.Exit(1)
	}
}

func handleVerify(args []string) {
	positional, opts, err := parseArgs(args)
	if err != nil {
		fatalf("Error: %s", err)
	}
	if len(positional) != 1 {
		fatalf("Usage: fastrule verify <file> [-d] [-v]")
	}
	commonlog.Configure(opts.verbosity, nil)

	path := positional[0]
	ctx := mustBuild(pipeline.Verify(), path, opts)
	if opts.disasm {
		printProgram(ctx, opts)
	}

	failed := 0
	for _, r := range ctx.Reports {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
			failed++
		}
		fmt.Printf("%s probe %d: %s", status, r.Index, strings.Join(r.Args, ", "))
		if r.Ran {
			fmt.Printf(" -> %s", r.Result.Outcome)
			if r.Result.Outcome != machine.Failed {
				fmt.Printf(" %d", r.Result.Clause)
			}
		}
		fmt.Println()
		if r.Err != nil {
			fmt.Printf("    %s\n", r.Err)
		}
	}
	fmt.Printf("%d probes, %d failed\n", len(ctx.Reports), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func handleDump(args []string) {
	positional, opts, err := parseArgs(args)
	if err != nil {
		fatalf("Error: %s", err)
	}
	if len(positional) != 1 {
		fatalf("Usage: fastrule dump <file%s>", config.ProgramFileExt)
	}

	path := positional[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("Error reading program file: %s", err)
	}
	var p *program.Program
	if bytes.HasPrefix(data, config.ProgramMagic[:]) {
		p, err = program.Decode(bytes.NewReader(data))
	} else {
		p, err = program.UnmarshalProgram(data)
	}
	if err != nil {
		fatalf("Deserialization error: %s", err)
	}
	d := program.Disassembler{Color: useColor(opts)}
	fmt.Print(d.Disassemble(p, filepath.Base(path)))
}

func handleHelp() {
	fmt.Printf(`fastrule compiles pattern-matching clauses into flat dispatch programs.

Usage:
  fastrule compile <file> [-o out%[1]s] [--cache db] [-d] [-v]
  fastrule run <file> <value>... [--cache db] [-d] [-v]
  fastrule verify <file> [-d] [-v]
  fastrule dump <file%[1]s>
  fastrule help

Clause files are YAML or TOML (%[2]s). Writing to a .cbor output
produces the CBOR encoding instead of the binary one.

Flags:
  -o, --output   output file for compile
  --cache        program cache database (default $%[3]s when set)
  -d, --disasm   print the program disassembly
  -v, --verbose  more logging; repeat for debug output
  --no-color     plain disassembly even on a terminal
`, config.ProgramFileExt, strings.Join(config.ClauseFileExtensions, ", "), config.CacheEnvVar)
}

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if len(os.Args) < 2 {
		handleHelp()
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "compile", "-c", "--compile":
		handleCompile(args)
	case "run", "-r", "--run":
		handleRun(args)
	case "verify":
		handleVerify(args)
	case "dump":
		handleDump(args)
	case "help", "-help", "--help", "-h":
		handleHelp()
	default:
		if config.IsClauseFile(os.Args[1]) {
			// fastrule <file> is short for fastrule verify <file>
			handleVerify(os.Args[1:])
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		handleHelp()
		os.Exit(1)
	}
}
