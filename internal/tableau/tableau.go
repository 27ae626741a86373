package tableau

import "github.com/funvibe/fastrule/internal/pattern"

// Tableau pairs the structural and data matrices. Both share register
// numbering and are always specialized together.
type Tableau struct {
	Structural *Matrix[pattern.Term]
	Data       *Matrix[pattern.DataTerm]
}

// Request is the next register to examine and the cases to branch on.
type Request struct {
	Register   int
	Cases      []Case
	DataChecks []pattern.TypeID
}

// New builds the initial tableau over arity argument registers.
func New(structural []pattern.Term, data []pattern.DataTerm, arity int) Tableau {
	return Tableau{
		Structural: NewMatrix[pattern.Term](Structural{}, structural, arity),
		Data:       NewMatrix[pattern.DataTerm](Data{}, data, arity),
	}
}

// Empty reports whether no clause of either flavor is left.
func (t Tableau) Empty() bool {
	return t.Structural.Empty() && t.Data.Empty()
}

// Width is the number of registers allocated along the current path.
func (t Tableau) Width() int {
	return t.Structural.Width()
}

// Next picks the register to expand, preferring a pending structural
// constraint, and collects the cases both matrices need there. It must
// only be called when neither matrix has a firing row.
func (t Tableau) Next() Request {
	register, ok := t.Structural.PickRegister()
	if !ok {
		register, ok = t.Data.PickRegister()
	}
	if !ok {
		panic("tableau: no pending register to expand")
	}

	cases, _ := t.Structural.Cases(register)
	dataCases, checks := t.Data.Cases(register)
	seen := make(map[Case]bool, len(cases))
	for _, c := range cases {
		seen[c] = true
	}
	for _, c := range dataCases {
		if !seen[c] {
			seen[c] = true
			cases = append(cases, c)
		}
	}
	return Request{Register: register, Cases: cases, DataChecks: checks}
}

// SpecializeHead applies Matrix.SpecializeHead to both matrices.
func (t Tableau) SpecializeHead(register, base int, head pattern.Symbol, arity int) Tableau {
	return Tableau{
		Structural: t.Structural.SpecializeHead(register, base, head, arity),
		Data:       t.Data.SpecializeHead(register, base, head, arity),
	}
}

// SpecializeTag applies Matrix.SpecializeTag to both matrices.
func (t Tableau) SpecializeTag(register int, typ pattern.TypeID) Tableau {
	return Tableau{
		Structural: t.Structural.SpecializeTag(register, typ),
		Data:       t.Data.SpecializeTag(register, typ),
	}
}

// SpecializeDefault applies Matrix.SpecializeDefault to both matrices.
func (t Tableau) SpecializeDefault(register int) Tableau {
	return Tableau{
		Structural: t.Structural.SpecializeDefault(register),
		Data:       t.Data.SpecializeDefault(register),
	}
}
