package program

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/funvibe/fastrule/internal/config"
	"github.com/funvibe/fastrule/internal/pattern"
)

// unboundRegister encodes a capture slot the clause never declared.
const unboundRegister = ^uint32(0)

// ErrBadMagic is returned by Decode for input that is not an encoded program.
var ErrBadMagic = errors.New("not a dispatch program")

// Encode writes p in the compact binary format:
//
//	magic "FRPG", version byte
//	u32 registers_needed, u32 args_needed, u32 instruction count
//	per instruction: u32 op, then
//	  Expand: u32 source, u32 base, u32 default, u32 #cases, u32 #checks,
//	          #cases  x (u64 head, u32 arity, u32 next),
//	          #checks x (u64 type, u32 next)
//	  Fire:   u32 clause, u32 #slots, #slots x u32 register (0xffffffff = unbound)
//	  Fail:   nothing
//
// All integers are little-endian.
func (p *Program) Encode(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(config.ProgramMagic[:])
	buf.WriteByte(config.ProgramVersion)

	putU32(&buf, p.RegistersNeeded)
	putU32(&buf, p.ArgsNeeded)
	putU32(&buf, len(p.Instructions))

	for i, inst := range p.Instructions {
		putU32(&buf, int(inst.Op()))
		switch in := inst.(type) {
		case Expand:
			putU32(&buf, in.Source)
			putU32(&buf, in.BaseOutput)
			putU32(&buf, in.DefaultNext)
			putU32(&buf, len(in.Cases))
			putU32(&buf, len(in.DataChecks))
			for _, c := range in.Cases {
				binary.Write(&buf, binary.LittleEndian, uint64(c.Head))
				putU32(&buf, c.Arity)
				putU32(&buf, c.Next)
			}
			for _, c := range in.DataChecks {
				binary.Write(&buf, binary.LittleEndian, uint64(c.Type))
				putU32(&buf, c.Next)
			}
		case FireStructural:
			putFire(&buf, in.Clause, in.Captures)
		case FireData:
			putFire(&buf, in.Clause, in.Captures)
		case Fail:
		default:
			return fmt.Errorf("encoding instruction %d: unknown instruction %T", i, inst)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Program) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func putU32(buf *bytes.Buffer, v int) {
	binary.Write(buf, binary.LittleEndian, uint32(v))
}

func putFire(buf *bytes.Buffer, clause int, captures []int) {
	putU32(buf, clause)
	putU32(buf, len(captures))
	for _, r := range captures {
		if r < 0 {
			binary.Write(buf, binary.LittleEndian, unboundRegister)
		} else {
			putU32(buf, r)
		}
	}
}

// Decode reads a program written by Encode and validates it.
func Decode(r io.Reader) (*Program, error) {
	d := &decoder{r: bufio.NewReader(r)}

	var magic [4]byte
	if _, err := io.ReadFull(d.r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if magic != config.ProgramMagic {
		return nil, ErrBadMagic
	}
	version, err := d.r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if version != config.ProgramVersion {
		return nil, fmt.Errorf("unsupported program version %d", version)
	}

	p := &Program{
		RegistersNeeded: d.int(),
		ArgsNeeded:      d.int(),
	}
	count := d.int()
	if d.err != nil {
		return nil, fmt.Errorf("reading header: %w", d.err)
	}

	for i := 0; i < count && d.err == nil; i++ {
		switch op := Op(d.u32()); op {
		case OpExpand:
			in := Expand{Source: d.int(), BaseOutput: d.int(), DefaultNext: d.int()}
			nCases, nChecks := d.int(), d.int()
			for j := 0; j < nCases && d.err == nil; j++ {
				in.Cases = append(in.Cases, ExpandCase{Head: pattern.Symbol(d.u64()), Arity: d.int(), Next: d.int()})
			}
			for j := 0; j < nChecks && d.err == nil; j++ {
				in.DataChecks = append(in.DataChecks, DataCheck{Type: pattern.TypeID(d.u64()), Next: d.int()})
			}
			p.Instructions = append(p.Instructions, in)
		case OpFireStructural:
			clause, captures := d.fire()
			p.Instructions = append(p.Instructions, FireStructural{Clause: clause, Captures: captures})
		case OpFireData:
			clause, captures := d.fire()
			p.Instructions = append(p.Instructions, FireData{Clause: clause, Captures: captures})
		case OpFail:
			p.Instructions = append(p.Instructions, Fail{})
		default:
			if d.err == nil {
				return nil, fmt.Errorf("instruction %d: unknown opcode %d", i, uint32(op))
			}
		}
	}
	if d.err != nil {
		return nil, fmt.Errorf("reading instructions: %w", d.err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}
	return p, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Program) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

// decoder reads little-endian integers and remembers the first error.
type decoder struct {
	r   *bufio.Reader
	err error
}

func (d *decoder) u32() uint32 {
	var v uint32
	if d.err == nil {
		d.err = binary.Read(d.r, binary.LittleEndian, &v)
	}
	return v
}

func (d *decoder) u64() uint64 {
	var v uint64
	if d.err == nil {
		d.err = binary.Read(d.r, binary.LittleEndian, &v)
	}
	return v
}

func (d *decoder) int() int {
	return int(d.u32())
}

func (d *decoder) fire() (int, []int) {
	clause := d.int()
	n := d.int()
	var captures []int
	for i := 0; i < n && d.err == nil; i++ {
		r := d.u32()
		if r == unboundRegister {
			captures = append(captures, -1)
		} else {
			captures = append(captures, int(r))
		}
	}
	return clause, captures
}
