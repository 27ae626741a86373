package program

import (
	"fmt"

	"github.com/funvibe/fastrule/internal/pattern"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("program: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireProgram struct {
	RegistersNeeded int               `cbor:"1,keyasint"`
	ArgsNeeded      int               `cbor:"2,keyasint"`
	Instructions    []wireInstruction `cbor:"3,keyasint"`
}

// wireInstruction flattens every instruction kind into one record; Op
// says which fields are meaningful.
type wireInstruction struct {
	Op          Op          `cbor:"1,keyasint"`
	Source      int         `cbor:"2,keyasint,omitempty"`
	BaseOutput  int         `cbor:"3,keyasint,omitempty"`
	DefaultNext int         `cbor:"4,keyasint,omitempty"`
	Cases       []wireCase  `cbor:"5,keyasint,omitempty"`
	DataChecks  []wireCheck `cbor:"6,keyasint,omitempty"`
	Clause      int         `cbor:"7,keyasint,omitempty"`
	Captures    []int       `cbor:"8,keyasint,omitempty"`
}

type wireCase struct {
	_     struct{} `cbor:",toarray"`
	Head  uint64
	Arity int
	Next  int
}

type wireCheck struct {
	_    struct{} `cbor:",toarray"`
	Type uint64
	Next int
}

// MarshalCBOR encodes p deterministically, so equal programs produce
// equal bytes.
func (p *Program) MarshalCBOR() ([]byte, error) {
	w := wireProgram{
		RegistersNeeded: p.RegistersNeeded,
		ArgsNeeded:      p.ArgsNeeded,
		Instructions:    make([]wireInstruction, len(p.Instructions)),
	}
	for i, inst := range p.Instructions {
		wi := wireInstruction{Op: inst.Op()}
		switch in := inst.(type) {
		case Expand:
			wi.Source, wi.BaseOutput, wi.DefaultNext = in.Source, in.BaseOutput, in.DefaultNext
			for _, c := range in.Cases {
				wi.Cases = append(wi.Cases, wireCase{Head: uint64(c.Head), Arity: c.Arity, Next: c.Next})
			}
			for _, c := range in.DataChecks {
				wi.DataChecks = append(wi.DataChecks, wireCheck{Type: uint64(c.Type), Next: c.Next})
			}
		case FireStructural:
			wi.Clause, wi.Captures = in.Clause, in.Captures
		case FireData:
			wi.Clause, wi.Captures = in.Clause, in.Captures
		case Fail:
		default:
			return nil, fmt.Errorf("program: unknown instruction %T", inst)
		}
		w.Instructions[i] = wi
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalCBOR decodes a program written by MarshalCBOR and validates it.
func (p *Program) UnmarshalCBOR(data []byte) error {
	var w wireProgram
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("program: unmarshal: %w", err)
	}
	out := Program{
		RegistersNeeded: w.RegistersNeeded,
		ArgsNeeded:      w.ArgsNeeded,
		Instructions:    make([]Instruction, len(w.Instructions)),
	}
	for i, wi := range w.Instructions {
		switch wi.Op {
		case OpExpand:
			in := Expand{Source: wi.Source, BaseOutput: wi.BaseOutput, DefaultNext: wi.DefaultNext}
			for _, c := range wi.Cases {
				in.Cases = append(in.Cases, ExpandCase{Head: pattern.Symbol(c.Head), Arity: c.Arity, Next: c.Next})
			}
			for _, c := range wi.DataChecks {
				in.DataChecks = append(in.DataChecks, DataCheck{Type: pattern.TypeID(c.Type), Next: c.Next})
			}
			out.Instructions[i] = in
		case OpFireStructural:
			out.Instructions[i] = FireStructural{Clause: wi.Clause, Captures: wi.Captures}
		case OpFireData:
			out.Instructions[i] = FireData{Clause: wi.Clause, Captures: wi.Captures}
		case OpFail:
			out.Instructions[i] = Fail{}
		default:
			return fmt.Errorf("program: instruction %d: unknown opcode %d", i, uint32(wi.Op))
		}
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("program: %w", err)
	}
	*p = out
	return nil
}

// UnmarshalProgram decodes CBOR bytes into a new program.
func UnmarshalProgram(data []byte) (*Program, error) {
	var p Program
	if err := p.UnmarshalCBOR(data); err != nil {
		return nil, err
	}
	return &p, nil
}
