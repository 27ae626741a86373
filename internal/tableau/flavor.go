package tableau

import "github.com/funvibe/fastrule/internal/pattern"

// Flavor is the capability set the matrix engine needs from a pattern
// type: unfold an application spine and classify the resulting head.
type Flavor[P any] interface {
	Unfold(p P) (P, []P)
	Leaf(p P) pattern.Leaf
}

// Structural is the Flavor of pattern.Term.
type Structural struct{}

func (Structural) Unfold(p pattern.Term) (pattern.Term, []pattern.Term) { return pattern.Unfold(p) }
func (Structural) Leaf(p pattern.Term) pattern.Leaf                      { return pattern.Classify(p) }

// Data is the Flavor of pattern.DataTerm.
type Data struct{}

func (Data) Unfold(p pattern.DataTerm) (pattern.DataTerm, []pattern.DataTerm) {
	return pattern.UnfoldData(p)
}
func (Data) Leaf(p pattern.DataTerm) pattern.Leaf { return pattern.ClassifyData(p) }
