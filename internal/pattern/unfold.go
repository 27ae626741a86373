package pattern

import "fmt"

// LeafKind classifies the unfolded head of a pattern.
type LeafKind uint8

const (
	LeafHead LeafKind = iota
	LeafWildcard
	LeafTag
)

// Leaf is the classification of a non-application pattern node.
type Leaf struct {
	Kind   LeafKind
	Symbol Symbol // LeafHead
	Type   TypeID // LeafTag
	Slot   int    // LeafWildcard, LeafTag
}

// Unfold peels Apply nodes off the left spine of t and returns the head
// together with the arguments in left-to-right order.
func Unfold(t Term) (Term, []Term) {
	var args []Term
	for {
		app, ok := t.(Apply)
		if !ok {
			break
		}
		args = append(args, app.Arg)
		t = app.Fn
	}
	reverse(args)
	return t, args
}

// UnfoldData is Unfold for data patterns. It panics if a Tag has
// arguments curried onto it.
func UnfoldData(t DataTerm) (DataTerm, []DataTerm) {
	var args []DataTerm
	for {
		app, ok := t.(DataApply)
		if !ok {
			break
		}
		args = append(args, app.Arg)
		t = app.Fn
	}
	reverse(args)
	if _, ok := t.(Tag); ok && len(args) > 0 {
		panic(fmt.Sprintf("pattern: tag %s applied to %d arguments", t, len(args)))
	}
	return t, args
}

// Classify reports what kind of leaf t is. It panics on an Apply.
func Classify(t Term) Leaf {
	switch n := t.(type) {
	case Head:
		return Leaf{Kind: LeafHead, Symbol: n.Symbol}
	case Wildcard:
		return Leaf{Kind: LeafWildcard, Slot: n.Slot}
	default:
		panic(fmt.Sprintf("pattern: cannot classify %T as a leaf", t))
	}
}

// ClassifyData reports what kind of leaf t is. It panics on a DataApply.
func ClassifyData(t DataTerm) Leaf {
	switch n := t.(type) {
	case Head:
		return Leaf{Kind: LeafHead, Symbol: n.Symbol}
	case Wildcard:
		return Leaf{Kind: LeafWildcard, Slot: n.Slot}
	case Tag:
		return Leaf{Kind: LeafTag, Type: n.Type, Slot: n.Slot}
	default:
		panic(fmt.Sprintf("pattern: cannot classify %T as a leaf", t))
	}
}

// Arity returns the number of arguments curried onto the head of t.
func Arity(t Term) int {
	_, args := Unfold(t)
	return len(args)
}

// DataArity returns the number of arguments curried onto the head of t.
func DataArity(t DataTerm) int {
	_, args := UnfoldData(t)
	return len(args)
}

// Slots returns the capture slots declared anywhere in t.
func Slots(t Term) []int {
	var out []int
	var walk func(Term)
	walk = func(t Term) {
		switch n := t.(type) {
		case Apply:
			walk(n.Fn)
			walk(n.Arg)
		case Wildcard:
			out = append(out, n.Slot)
		}
	}
	walk(t)
	return out
}

// DataSlots returns the capture slots declared anywhere in t.
func DataSlots(t DataTerm) []int {
	var out []int
	var walk func(DataTerm)
	walk = func(t DataTerm) {
		switch n := t.(type) {
		case DataApply:
			walk(n.Fn)
			walk(n.Arg)
		case Wildcard:
			out = append(out, n.Slot)
		case Tag:
			out = append(out, n.Slot)
		}
	}
	walk(t)
	return out
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
