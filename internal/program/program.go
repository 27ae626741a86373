// Package program compiles clause sets into dispatch programs: flat lists
// of instructions that pick the clause matching a tuple of values and
// locate the sub-values its captures bind to.
package program

import (
	"fmt"

	"github.com/funvibe/fastrule/internal/pattern"
)

// Op is the discriminator of an instruction. The values are part of the
// binary encoding.
type Op uint32

const (
	OpExpand Op = iota
	OpFireStructural
	OpFireData
	OpFail
)

func (op Op) String() string {
	switch op {
	case OpExpand:
		return "EXPAND"
	case OpFireStructural:
		return "FIRE"
	case OpFireData:
		return "FIRE_DATA"
	case OpFail:
		return "FAIL"
	default:
		return fmt.Sprintf("OP(%d)", uint32(op))
	}
}

// Instruction is one of Expand, FireStructural, FireData or Fail.
type Instruction interface {
	Op() Op
}

// ExpandCase continues at Next when the register holds Head applied to
// exactly Arity values.
type ExpandCase struct {
	Head  pattern.Symbol
	Arity int
	Next  int
}

// DataCheck continues at Next when the register holds a datum of Type.
// It writes no register; a tag capture reads the datum from Source.
type DataCheck struct {
	Type pattern.TypeID
	Next int
}

// Expand inspects register Source. Structural sub-values are written to
// registers BaseOutput, BaseOutput+1, ... before jumping. Data checks
// write no register.
type Expand struct {
	Source      int
	BaseOutput  int
	DefaultNext int
	Cases       []ExpandCase
	DataChecks  []DataCheck
}

// FireStructural selects structural clause Clause. Captures[slot] is the
// register holding that slot's value, or -1 if the clause has no such slot.
type FireStructural struct {
	Clause   int
	Captures []int
}

// FireData selects data clause Clause.
type FireData struct {
	Clause   int
	Captures []int
}

// Fail means no clause matches.
type Fail struct{}

func (Expand) Op() Op         { return OpExpand }
func (FireStructural) Op() Op { return OpFireStructural }
func (FireData) Op() Op       { return OpFireData }
func (Fail) Op() Op           { return OpFail }

// Program is a compiled dispatch program. Execution starts at
// Instructions[0] with the first ArgsNeeded registers holding the values
// being matched.
type Program struct {
	RegistersNeeded int
	ArgsNeeded      int
	Instructions    []Instruction
}

// Trivial returns the program for an empty clause set.
func Trivial() *Program {
	return &Program{Instructions: []Instruction{Fail{}}}
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Validate checks that every jump points forward inside the program and
// that every register referenced fits in RegistersNeeded.
func (p *Program) Validate() error {
	if len(p.Instructions) == 0 {
		return fmt.Errorf("program has no instructions")
	}
	if p.ArgsNeeded < 0 || p.RegistersNeeded < 0 {
		return fmt.Errorf("program has negative size: %d args, %d registers", p.ArgsNeeded, p.RegistersNeeded)
	}
	if p.ArgsNeeded > p.RegistersNeeded {
		return fmt.Errorf("program needs %d args but only %d registers", p.ArgsNeeded, p.RegistersNeeded)
	}
	target := func(from, to int) error {
		if to <= from || to >= len(p.Instructions) {
			return fmt.Errorf("instruction %d: jump target %d out of range", from, to)
		}
		return nil
	}
	captures := func(at int, regs []int) error {
		for slot, r := range regs {
			if r < -1 || r >= p.RegistersNeeded {
				return fmt.Errorf("instruction %d: slot %d reads register %d of %d", at, slot, r, p.RegistersNeeded)
			}
		}
		return nil
	}
	for i, inst := range p.Instructions {
		switch in := inst.(type) {
		case Expand:
			if in.Source < 0 || in.Source >= p.RegistersNeeded {
				return fmt.Errorf("instruction %d: source register %d of %d", i, in.Source, p.RegistersNeeded)
			}
			if in.BaseOutput < 0 {
				return fmt.Errorf("instruction %d: negative output register %d", i, in.BaseOutput)
			}
			for _, c := range in.Cases {
				if c.Arity < 0 {
					return fmt.Errorf("instruction %d: case %d has negative arity %d", i, c.Head, c.Arity)
				}
				if in.BaseOutput+c.Arity > p.RegistersNeeded {
					return fmt.Errorf("instruction %d: case writes past register %d", i, p.RegistersNeeded)
				}
				if err := target(i, c.Next); err != nil {
					return err
				}
			}
			for _, c := range in.DataChecks {
				if err := target(i, c.Next); err != nil {
					return err
				}
			}
			if err := target(i, in.DefaultNext); err != nil {
				return err
			}
		case FireStructural:
			if in.Clause < 0 {
				return fmt.Errorf("instruction %d: negative clause %d", i, in.Clause)
			}
			if err := captures(i, in.Captures); err != nil {
				return err
			}
		case FireData:
			if in.Clause < 0 {
				return fmt.Errorf("instruction %d: negative clause %d", i, in.Clause)
			}
			if err := captures(i, in.Captures); err != nil {
				return err
			}
		case Fail:
		default:
			return fmt.Errorf("instruction %d: unknown instruction %T", i, inst)
		}
	}
	return nil
}
