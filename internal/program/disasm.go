package program

import (
	"fmt"
	"strings"

	"github.com/funvibe/fastrule/internal/pattern"
)

// Namer resolves symbol and type ids to display names. Either method may
// return "" to fall back to the numeric id.
type Namer interface {
	HeadName(pattern.Symbol) string
	TypeName(pattern.TypeID) string
}

// Disassembler renders programs as text.
type Disassembler struct {
	Names Namer
	// Color wraps opcodes and jump targets in ANSI escapes.
	Color bool
}

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
)

// Disassemble returns a human-readable listing of the program.
func Disassemble(p *Program, name string) string {
	return Disassembler{}.Disassemble(p, name)
}

// Disassemble returns a human-readable listing of the program.
func (d Disassembler) Disassemble(p *Program, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	sb.WriteString(fmt.Sprintf("%d args, %d registers, %d instructions\n",
		p.ArgsNeeded, p.RegistersNeeded, len(p.Instructions)))

	for i, inst := range p.Instructions {
		d.instruction(&sb, i, inst)
	}
	return sb.String()
}

func (d Disassembler) instruction(sb *strings.Builder, index int, inst Instruction) {
	sb.WriteString(fmt.Sprintf("%04d ", index))
	sb.WriteString(d.paint(ansiBold, fmt.Sprintf("%-10s", inst.Op())))

	switch in := inst.(type) {
	case Expand:
		sb.WriteString(fmt.Sprintf(" r%d -> r%d.. default %s\n", in.Source, in.BaseOutput, d.target(in.DefaultNext)))
		for _, c := range in.Cases {
			label := fmt.Sprintf("%-16s", fmt.Sprintf("%s/%d", d.head(c.Head), c.Arity))
			sb.WriteString(fmt.Sprintf("       case  %s -> %s\n", d.paint(ansiCyan, label), d.target(c.Next)))
		}
		for _, c := range in.DataChecks {
			label := fmt.Sprintf("%-16s", "#"+d.typ(c.Type))
			sb.WriteString(fmt.Sprintf("       check %s -> %s\n", d.paint(ansiCyan, label), d.target(c.Next)))
		}
	case FireStructural:
		sb.WriteString(fmt.Sprintf(" clause %d%s\n", in.Clause, captureList(in.Captures)))
	case FireData:
		sb.WriteString(fmt.Sprintf(" clause %d%s\n", in.Clause, captureList(in.Captures)))
	default:
		sb.WriteString("\n")
	}
}

func captureList(captures []int) string {
	if len(captures) == 0 {
		return ""
	}
	parts := make([]string, 0, len(captures))
	for slot, r := range captures {
		if r < 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("_%d=r%d", slot, r))
	}
	return " [" + strings.Join(parts, " ") + "]"
}

func (d Disassembler) target(index int) string {
	return d.paint(ansiYellow, fmt.Sprintf("%04d", index))
}

func (d Disassembler) head(s pattern.Symbol) string {
	if d.Names != nil {
		if name := d.Names.HeadName(s); name != "" {
			return name
		}
	}
	return fmt.Sprintf("$%d", s)
}

func (d Disassembler) typ(t pattern.TypeID) string {
	if d.Names != nil {
		if name := d.Names.TypeName(t); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%d", t)
}

func (d Disassembler) paint(code, s string) string {
	if !d.Color {
		return s
	}
	return code + s + ansiReset
}
