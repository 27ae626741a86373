package pipeline

import (
	"errors"

	"github.com/funvibe/fastrule/internal/cache"
	"github.com/funvibe/fastrule/internal/config"
	"github.com/funvibe/fastrule/internal/machine"
	"github.com/funvibe/fastrule/internal/notation"
	"github.com/funvibe/fastrule/internal/pattern"
	"github.com/funvibe/fastrule/internal/program"
)

// PipelineContext carries a clause file through the stages.
type PipelineContext struct {
	// FilePath is the clause file. Source, when set, is used instead of
	// reading the file.
	FilePath string
	Source   []byte

	// Cache, when set, is consulted before compiling.
	Cache *cache.Cache

	File       *config.ClauseFile
	Symbols    *notation.Symbols
	Structural []notation.Clause
	Data       []notation.DataClause

	Program *program.Program
	Cached  bool

	Reports []ProbeReport

	Errors []error
}

// NewContext starts a pipeline on the clause file at path.
func NewContext(path string) *PipelineContext {
	return &PipelineContext{FilePath: path}
}

// Failed reports whether any stage recorded an error.
func (ctx *PipelineContext) Failed() bool { return len(ctx.Errors) > 0 }

// Err joins the recorded errors, or returns nil.
func (ctx *PipelineContext) Err() error { return errors.Join(ctx.Errors...) }

func (ctx *PipelineContext) fail(err error) *PipelineContext {
	ctx.Errors = append(ctx.Errors, err)
	return ctx
}

// Terms returns the parsed structural clauses as patterns.
func (ctx *PipelineContext) Terms() []pattern.Term {
	terms := make([]pattern.Term, len(ctx.Structural))
	for i, c := range ctx.Structural {
		terms[i] = c.Term
	}
	return terms
}

// DataTerms returns the parsed data clauses as patterns.
func (ctx *PipelineContext) DataTerms() []pattern.DataTerm {
	terms := make([]pattern.DataTerm, len(ctx.Data))
	for i, c := range ctx.Data {
		terms[i] = c.Term
	}
	return terms
}

// Bindings names the captures of a run result after the variables of the
// clause that fired. Anonymous slots are left out.
func (ctx *PipelineContext) Bindings(res machine.Result[machine.Value]) map[string]machine.Value {
	var names []string
	switch res.Outcome {
	case machine.FiredStructural:
		names = ctx.Structural[res.Clause].Names
	case machine.FiredData:
		names = ctx.Data[res.Clause].Names
	default:
		return nil
	}
	bindings := make(map[string]machine.Value)
	for slot, v := range res.Captures {
		if slot < len(names) && names[slot] != "_" {
			bindings[names[slot]] = v
		}
	}
	return bindings
}
