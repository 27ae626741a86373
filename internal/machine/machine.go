// Package machine runs dispatch programs against runtime values. It is a
// reference host: a production evaluator implements the same loop over
// its own term representation through the Inspector interface.
package machine

import (
	"errors"
	"fmt"

	"github.com/funvibe/fastrule/internal/program"
)

// ErrBadProgram is returned when a program violates the execution
// contract, e.g. jumps backwards or reads a register never written.
var ErrBadProgram = errors.New("malformed dispatch program")

// Outcome is how a run ended.
type Outcome uint8

const (
	Failed Outcome = iota
	FiredStructural
	FiredData
)

func (o Outcome) String() string {
	switch o {
	case FiredStructural:
		return "structural"
	case FiredData:
		return "data"
	default:
		return "fail"
	}
}

// Result of running a program. Captures maps capture slots to values and
// is nil when the run failed.
type Result[V any] struct {
	Outcome  Outcome
	Clause   int
	Captures map[int]V
	Steps    int
}

// Run executes p on args using the built-in Value representation.
func Run(p *program.Program, args ...Value) (Result[Value], error) {
	return Exec[Value](p, ValueInspector{}, args)
}

// Exec executes p on args. It never writes a register twice on one path
// and finishes within len(p.Instructions) steps.
func Exec[V any](p *program.Program, in Inspector[V], args []V) (Result[V], error) {
	var res Result[V]
	if len(args) != p.ArgsNeeded {
		return res, fmt.Errorf("program needs %d args, got %d", p.ArgsNeeded, len(args))
	}

	registers := make([]V, max(p.RegistersNeeded, p.ArgsNeeded))
	written := make([]bool, len(registers))
	copy(registers, args)
	for i := range args {
		written[i] = true
	}

	pc := 0
	for {
		if pc < 0 || pc >= len(p.Instructions) {
			return res, fmt.Errorf("%w: jump to %d of %d", ErrBadProgram, pc, len(p.Instructions))
		}
		res.Steps++

		switch inst := p.Instructions[pc].(type) {
		case program.Fail:
			res.Outcome = Failed
			return res, nil

		case program.FireStructural:
			captures, err := capture(registers, written, inst.Captures)
			if err != nil {
				return res, fmt.Errorf("instruction %d: %w", pc, err)
			}
			res.Outcome, res.Clause, res.Captures = FiredStructural, inst.Clause, captures
			return res, nil

		case program.FireData:
			captures, err := capture(registers, written, inst.Captures)
			if err != nil {
				return res, fmt.Errorf("instruction %d: %w", pc, err)
			}
			res.Outcome, res.Clause, res.Captures = FiredData, inst.Clause, captures
			return res, nil

		case program.Expand:
			if inst.Source < 0 || inst.Source >= len(registers) || !written[inst.Source] {
				return res, fmt.Errorf("%w: instruction %d expands unset register %d", ErrBadProgram, pc, inst.Source)
			}
			next, err := expand(in, registers, written, inst)
			if err != nil {
				return res, fmt.Errorf("instruction %d: %w", pc, err)
			}
			if next <= pc {
				return res, fmt.Errorf("%w: instruction %d jumps back to %d", ErrBadProgram, pc, next)
			}
			pc = next

		default:
			return res, fmt.Errorf("%w: unknown instruction %T at %d", ErrBadProgram, inst, pc)
		}
	}
}

// expand inspects the source register and returns the next instruction.
func expand[V any](in Inspector[V], registers []V, written []bool, inst program.Expand) (int, error) {
	v := registers[inst.Source]
	if head, args, ok := in.Application(v); ok {
		for _, c := range inst.Cases {
			if c.Head != head || c.Arity != len(args) {
				continue
			}
			if inst.BaseOutput < 0 || inst.BaseOutput+len(args) > len(registers) {
				return 0, fmt.Errorf("%w: case writes past register %d", ErrBadProgram, len(registers))
			}
			for i, arg := range args {
				if written[inst.BaseOutput+i] {
					return 0, fmt.Errorf("%w: register %d written twice", ErrBadProgram, inst.BaseOutput+i)
				}
				registers[inst.BaseOutput+i] = arg
				written[inst.BaseOutput+i] = true
			}
			return c.Next, nil
		}
		return inst.DefaultNext, nil
	}
	if typ, ok := in.Datum(v); ok {
		for _, c := range inst.DataChecks {
			if c.Type == typ {
				return c.Next, nil
			}
		}
	}
	return inst.DefaultNext, nil
}

func capture[V any](registers []V, written []bool, slots []int) (map[int]V, error) {
	captures := make(map[int]V, len(slots))
	for slot, r := range slots {
		if r < 0 {
			continue
		}
		if r >= len(registers) || !written[r] {
			return nil, fmt.Errorf("%w: slot %d reads unset register %d", ErrBadProgram, slot, r)
		}
		captures[slot] = registers[r]
	}
	return captures, nil
}
