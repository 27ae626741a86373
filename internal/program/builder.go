package program

import (
	"github.com/funvibe/fastrule/internal/pattern"
	"github.com/funvibe/fastrule/internal/tableau"
)

// Compile builds the dispatch program for the given clauses. The arity is
// the largest number of arguments any clause examines.
func Compile(structural []pattern.Term, data []pattern.DataTerm) *Program {
	arity := 0
	for _, clause := range structural {
		arity = max(arity, pattern.Arity(clause))
	}
	for _, clause := range data {
		arity = max(arity, pattern.DataArity(clause))
	}
	return CompileArity(structural, data, arity)
}

// CompileArity builds the dispatch program over an explicit arity. It
// panics if a clause unfolds to more than arity arguments.
func CompileArity(structural []pattern.Term, data []pattern.DataTerm, arity int) *Program {
	b := &builder{}
	b.emit(tableau.New(structural, data, arity))
	return &Program{
		RegistersNeeded: b.registersNeeded,
		ArgsNeeded:      arity,
		Instructions:    b.instructions,
	}
}

type builder struct {
	registersNeeded int
	instructions    []Instruction
}

// emit writes the instruction for t and everything reachable from it,
// returning its index. Identical residual tableaux on different branches
// are compiled separately.
func (b *builder) emit(t tableau.Tableau) int {
	b.registersNeeded = max(b.registersNeeded, t.Width())

	at := len(b.instructions)
	b.instructions = append(b.instructions, Fail{})

	if t.Empty() {
		return at
	}
	if m, ok := t.Structural.FindFiringRow(); ok {
		b.instructions[at] = FireStructural{Clause: m.Clause, Captures: m.Captures}
		return at
	}
	if m, ok := t.Data.FindFiringRow(); ok {
		b.instructions[at] = FireData{Clause: m.Clause, Captures: m.Captures}
		return at
	}

	req := t.Next()
	base := t.Width()
	expand := Expand{Source: req.Register, BaseOutput: base}
	for _, c := range req.Cases {
		next := b.emit(t.SpecializeHead(req.Register, base, c.Head, c.Arity))
		expand.Cases = append(expand.Cases, ExpandCase{Head: c.Head, Arity: c.Arity, Next: next})
	}
	for _, typ := range req.DataChecks {
		next := b.emit(t.SpecializeTag(req.Register, typ))
		expand.DataChecks = append(expand.DataChecks, DataCheck{Type: typ, Next: next})
	}
	expand.DefaultNext = b.emit(t.SpecializeDefault(req.Register))
	b.instructions[at] = expand
	return at
}
