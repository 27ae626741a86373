// Package tableau holds the clause matrices that drive dispatch-program
// compilation. A matrix records, for every (register, clause) pair, what
// the value in that register must still satisfy for the clause to apply.
//
// Matrices are immutable: every specialization returns a new matrix.
package tableau

import (
	"fmt"

	"github.com/funvibe/fastrule/internal/pattern"
)

// CellKind is the state of one constraint cell.
type CellKind uint8

const (
	// CellNone: the register places no constraint on the clause.
	CellNone CellKind = iota
	// CellPending: the register must still match Pattern.
	CellPending
	// CellBound: the register supplies capture slot Slot.
	CellBound
)

// Cell is the residual constraint of one clause on one register.
type Cell[P any] struct {
	Kind    CellKind
	Pattern P
	Slot    int
}

// Case is a (head, argument count) pair a register can be expanded by.
type Case struct {
	Head  pattern.Symbol
	Arity int
}

// Match describes a clause whose constraints are all satisfied.
// Captures[slot] is the register holding that slot's value, or -1.
type Match struct {
	Clause   int
	Captures []int
}

// Matrix is the constraint table of one pattern flavor.
type Matrix[P any] struct {
	flavor  Flavor[P]
	clauses []int // original clause index of every row
	cells   grid[Cell[P]]
}

// NewMatrix builds the initial matrix for clauses over arity registers.
// It panics if a clause unfolds to more than arity arguments.
func NewMatrix[P any](flavor Flavor[P], clauses []P, arity int) *Matrix[P] {
	m := &Matrix[P]{
		flavor:  flavor,
		clauses: make([]int, len(clauses)),
		cells:   newGrid[Cell[P]](arity, len(clauses)),
	}
	for row, clause := range clauses {
		m.clauses[row] = row
		_, args := flavor.Unfold(clause)
		if len(args) > arity {
			panic(fmt.Sprintf("tableau: clause %d has %d arguments, arity is %d", row, len(args), arity))
		}
		for register, arg := range args {
			m.cells.set(register, row, m.cellFor(arg))
		}
	}
	return m
}

// cellFor turns a sub-pattern into a constraint: a capture leaf binds
// immediately, anything else stays pending.
func (m *Matrix[P]) cellFor(p P) Cell[P] {
	head, args := m.flavor.Unfold(p)
	leaf := m.flavor.Leaf(head)
	if leaf.Kind != pattern.LeafWildcard {
		return Cell[P]{Kind: CellPending, Pattern: p}
	}
	if len(args) > 0 {
		panic(fmt.Sprintf("tableau: wildcard _%d applied to %d arguments", leaf.Slot, len(args)))
	}
	return Cell[P]{Kind: CellBound, Slot: leaf.Slot}
}

// Empty reports whether no clause rows are left.
func (m *Matrix[P]) Empty() bool { return len(m.clauses) == 0 }

// Width is the number of registers the matrix tracks.
func (m *Matrix[P]) Width() int { return m.cells.width }

// Rows is the number of surviving clause rows.
func (m *Matrix[P]) Rows() int { return len(m.clauses) }

// Clause returns the original clause index of row.
func (m *Matrix[P]) Clause(row int) int { return m.clauses[row] }

// Cell returns the constraint of row on register.
func (m *Matrix[P]) Cell(register, row int) Cell[P] { return m.cells.at(register, row) }

func (m *Matrix[P]) resolved(row int) bool {
	for register := 0; register < m.cells.width; register++ {
		if m.cells.at(register, row).Kind == CellPending {
			return false
		}
	}
	return true
}

// FindFiringRow returns the highest-priority row if all of its cells are
// resolved. Rows are scanned in priority order and the scan stops at the
// first row that still has a pending cell, since a lower row may only
// fire once every row above it has been ruled out.
func (m *Matrix[P]) FindFiringRow() (Match, bool) {
	if m.Empty() || !m.resolved(0) {
		return Match{}, false
	}
	var captures []int
	for register := 0; register < m.cells.width; register++ {
		c := m.cells.at(register, 0)
		if c.Kind != CellBound {
			continue
		}
		for len(captures) <= c.Slot {
			captures = append(captures, -1)
		}
		captures[c.Slot] = register
	}
	return Match{Clause: m.clauses[0], Captures: captures}, true
}

// PickRegister returns the lowest register with a pending cell in any row.
func (m *Matrix[P]) PickRegister() (int, bool) {
	for register := 0; register < m.cells.width; register++ {
		for row := range m.clauses {
			if m.cells.at(register, row).Kind == CellPending {
				return register, true
			}
		}
	}
	return 0, false
}

// Cases lists the distinct head cases and data tags pending at register,
// in order of first appearance.
func (m *Matrix[P]) Cases(register int) ([]Case, []pattern.TypeID) {
	var cases []Case
	var tags []pattern.TypeID
	seenCases := make(map[Case]bool)
	seenTags := make(map[pattern.TypeID]bool)
	for row := range m.clauses {
		c := m.cells.at(register, row)
		if c.Kind != CellPending {
			continue
		}
		head, args := m.flavor.Unfold(c.Pattern)
		leaf := m.flavor.Leaf(head)
		switch leaf.Kind {
		case pattern.LeafHead:
			k := Case{Head: leaf.Symbol, Arity: len(args)}
			if !seenCases[k] {
				seenCases[k] = true
				cases = append(cases, k)
			}
		case pattern.LeafTag:
			if !seenTags[leaf.Type] {
				seenTags[leaf.Type] = true
				tags = append(tags, leaf.Type)
			}
		}
	}
	return cases, tags
}

// SpecializeHead assumes register holds head applied to arity values that
// are written to registers base, base+1, ... Rows requiring something
// else at register are dropped.
func (m *Matrix[P]) SpecializeHead(register, base int, head pattern.Symbol, arity int) *Matrix[P] {
	width := max(m.cells.width, base+arity)
	var keep []int
	var fills [][]Cell[P]
	for row := range m.clauses {
		c := m.cells.at(register, row)
		if c.Kind != CellPending {
			keep = append(keep, row)
			fills = append(fills, nil)
			continue
		}
		h, args := m.flavor.Unfold(c.Pattern)
		leaf := m.flavor.Leaf(h)
		if leaf.Kind != pattern.LeafHead || leaf.Symbol != head || len(args) != arity {
			continue
		}
		sub := make([]Cell[P], arity)
		for i, arg := range args {
			sub[i] = m.cellFor(arg)
		}
		keep = append(keep, row)
		fills = append(fills, sub)
	}

	out := &Matrix[P]{
		flavor:  m.flavor,
		clauses: make([]int, len(keep)),
		cells:   newGrid[Cell[P]](width, len(keep)),
	}
	for i, row := range keep {
		out.clauses[i] = m.clauses[row]
		copy(out.cells.row(i), m.cells.row(row))
		if fills[i] == nil {
			continue
		}
		out.cells.set(register, i, Cell[P]{})
		for j, c := range fills[i] {
			out.cells.set(base+j, i, c)
		}
	}
	return out
}

// SpecializeTag assumes register holds a datum of type typ. Rows whose
// pending constraint at register is that tag bind its slot to register.
func (m *Matrix[P]) SpecializeTag(register int, typ pattern.TypeID) *Matrix[P] {
	return m.filter(register, func(c Cell[P]) (Cell[P], bool) {
		h, _ := m.flavor.Unfold(c.Pattern)
		leaf := m.flavor.Leaf(h)
		if leaf.Kind != pattern.LeafTag || leaf.Type != typ {
			return c, false
		}
		return Cell[P]{Kind: CellBound, Slot: leaf.Slot}, true
	})
}

// SpecializeDefault drops every row with a pending constraint at register.
func (m *Matrix[P]) SpecializeDefault(register int) *Matrix[P] {
	return m.filter(register, func(c Cell[P]) (Cell[P], bool) { return c, false })
}

// filter keeps rows that are unconstrained at register and asks keepPending
// about the others; the width is unchanged.
func (m *Matrix[P]) filter(register int, keepPending func(Cell[P]) (Cell[P], bool)) *Matrix[P] {
	var keep []int
	var replaced []*Cell[P]
	for row := range m.clauses {
		c := m.cells.at(register, row)
		if c.Kind != CellPending {
			keep = append(keep, row)
			replaced = append(replaced, nil)
			continue
		}
		if nc, ok := keepPending(c); ok {
			keep = append(keep, row)
			replaced = append(replaced, &nc)
		}
	}

	out := &Matrix[P]{
		flavor:  m.flavor,
		clauses: make([]int, len(keep)),
		cells:   newGrid[Cell[P]](m.cells.width, len(keep)),
	}
	for i, row := range keep {
		out.clauses[i] = m.clauses[row]
		copy(out.cells.row(i), m.cells.row(row))
		if replaced[i] != nil {
			out.cells.set(register, i, *replaced[i])
		}
	}
	return out
}
