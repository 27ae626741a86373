// Package pattern describes the left-hand sides of clauses: a head symbol
// with argument sub-patterns curried onto it.
//
// Two flavors exist. Term covers structural patterns built from Head,
// Wildcard and Apply. DataTerm adds Tag leaves for tagged data values and
// uses DataApply for its application nodes. Head and Wildcard are shared
// by both flavors.
package pattern

import (
	"fmt"
	"strings"
)

// Symbol identifies an external constructor or function head.
type Symbol uint64

// TypeID identifies the type of a tagged datum.
type TypeID uint64

// Term is a structural pattern.
type Term interface {
	termNode()
	String() string
}

// DataTerm is a data pattern.
type DataTerm interface {
	dataTermNode()
	String() string
}

// Head is a fixed external symbol. Its arity is the number of arguments
// curried onto it.
type Head struct {
	Symbol Symbol
}

func (h Head) termNode()      {}
func (h Head) dataTermNode()  {}
func (h Head) String() string { return fmt.Sprintf("$%d", h.Symbol) }

// Wildcard matches anything and binds it to capture slot Slot.
type Wildcard struct {
	Slot int
}

func (w Wildcard) termNode()      {}
func (w Wildcard) dataTermNode()  {}
func (w Wildcard) String() string { return fmt.Sprintf("_%d", w.Slot) }

// Apply applies a structural pattern to one argument.
type Apply struct {
	Fn  Term
	Arg Term
}

func (a Apply) termNode() {}
func (a Apply) String() string {
	head, args := Unfold(a)
	return formatApply(head.String(), args)
}

// DataApply applies a data pattern to one argument.
type DataApply struct {
	Fn  DataTerm
	Arg DataTerm
}

func (a DataApply) dataTermNode() {}
func (a DataApply) String() string {
	head, args := UnfoldData(a)
	return formatApply(head.String(), args)
}

// Tag asserts a tagged datum of type Type and binds it to Slot.
// A Tag never has arguments curried onto it.
type Tag struct {
	Type TypeID
	Slot int
}

func (t Tag) dataTermNode()  {}
func (t Tag) String() string { return fmt.Sprintf("#%d:_%d", t.Type, t.Slot) }

// Apps curries args onto fn from left to right.
func Apps(fn Term, args ...Term) Term {
	for _, arg := range args {
		fn = Apply{Fn: fn, Arg: arg}
	}
	return fn
}

// DataApps curries args onto fn from left to right.
func DataApps(fn DataTerm, args ...DataTerm) DataTerm {
	for _, arg := range args {
		fn = DataApply{Fn: fn, Arg: arg}
	}
	return fn
}

func formatApply[T fmt.Stringer](head string, args []T) string {
	var sb strings.Builder
	sb.WriteString(head)
	for _, arg := range args {
		sb.WriteString(" ")
		s := arg.String()
		if strings.Contains(s, " ") {
			sb.WriteString("(" + s + ")")
		} else {
			sb.WriteString(s)
		}
	}
	return sb.String()
}
