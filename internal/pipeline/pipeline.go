// Package pipeline turns a clause file into a verified dispatch program
// through a sequence of stages sharing one PipelineContext.
package pipeline

import (
	"github.com/funvibe/fastrule/internal/config"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger(config.LogPipeline)

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx *PipelineContext) *PipelineContext

func (f ProcessorFunc) Process(ctx *PipelineContext) *PipelineContext { return f(ctx) }

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Stages skip their work once an earlier stage failed, so every
		// error reported comes from the first failing stage.
	}
	return ctx
}

// Compile is the standard load, parse, compile pipeline.
func Compile() *Pipeline {
	return New(&LoadProcessor{}, &ParseProcessor{}, &CompileProcessor{})
}

// Verify compiles and then runs the clause file's probes.
func Verify() *Pipeline {
	return New(&LoadProcessor{}, &ParseProcessor{}, &CompileProcessor{}, &ProbeProcessor{})
}
