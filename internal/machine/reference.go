package machine

import (
	"fmt"

	"github.com/funvibe/fastrule/internal/pattern"
)

// MatchClause matches a structural clause directly against args, without
// a compiled program. The clause's root head is not checked.
func MatchClause(clause pattern.Term, args []Value) (map[int]Value, bool) {
	_, params := pattern.Unfold(clause)
	if len(params) > len(args) {
		return nil, false
	}
	captures := make(map[int]Value)
	for i, p := range params {
		if !matchTerm(p, args[i], captures) {
			return nil, false
		}
	}
	return captures, true
}

// MatchDataClause matches a data clause directly against args.
func MatchDataClause(clause pattern.DataTerm, args []Value) (map[int]Value, bool) {
	_, params := pattern.UnfoldData(clause)
	if len(params) > len(args) {
		return nil, false
	}
	captures := make(map[int]Value)
	for i, p := range params {
		if !matchDataTerm(p, args[i], captures) {
			return nil, false
		}
	}
	return captures, true
}

func matchTerm(p pattern.Term, v Value, captures map[int]Value) bool {
	head, params := pattern.Unfold(p)
	leaf := pattern.Classify(head)
	if leaf.Kind == pattern.LeafWildcard {
		captures[leaf.Slot] = v
		return true
	}
	app, ok := v.(*App)
	if !ok || app.Head != leaf.Symbol || len(app.Args) != len(params) {
		return false
	}
	for i, sub := range params {
		if !matchTerm(sub, app.Args[i], captures) {
			return false
		}
	}
	return true
}

func matchDataTerm(p pattern.DataTerm, v Value, captures map[int]Value) bool {
	head, params := pattern.UnfoldData(p)
	leaf := pattern.ClassifyData(head)
	switch leaf.Kind {
	case pattern.LeafWildcard:
		captures[leaf.Slot] = v
		return true
	case pattern.LeafTag:
		d, ok := v.(*Datum)
		if !ok || d.Type != leaf.Type {
			return false
		}
		captures[leaf.Slot] = v
		return true
	}
	app, ok := v.(*App)
	if !ok || app.Head != leaf.Symbol || len(app.Args) != len(params) {
		return false
	}
	for i, sub := range params {
		if !matchDataTerm(sub, app.Args[i], captures) {
			return false
		}
	}
	return true
}

// Check verifies a run result against direct matching: a fired clause
// must match args, must be the first matching clause of its flavor, and
// must report the same captures; a failed run is only correct when no
// clause of either flavor matches.
func Check(structural []pattern.Term, data []pattern.DataTerm, args []Value, res Result[Value]) error {
	firstStructural, firstData := -1, -1
	for i, c := range structural {
		if _, ok := MatchClause(c, args); ok {
			firstStructural = i
			break
		}
	}
	for i, c := range data {
		if _, ok := MatchDataClause(c, args); ok {
			firstData = i
			break
		}
	}

	var want map[int]Value
	switch res.Outcome {
	case Failed:
		if firstStructural >= 0 {
			return fmt.Errorf("failed, but structural clause %d matches", firstStructural)
		}
		if firstData >= 0 {
			return fmt.Errorf("failed, but data clause %d matches", firstData)
		}
		return nil
	case FiredStructural:
		if res.Clause != firstStructural {
			return fmt.Errorf("fired structural clause %d, first match is %d", res.Clause, firstStructural)
		}
		want, _ = MatchClause(structural[res.Clause], args)
	case FiredData:
		if res.Clause != firstData {
			return fmt.Errorf("fired data clause %d, first match is %d", res.Clause, firstData)
		}
		want, _ = MatchDataClause(data[res.Clause], args)
	}

	if len(want) != len(res.Captures) {
		return fmt.Errorf("clause %d: captured %d slots, want %d", res.Clause, len(res.Captures), len(want))
	}
	for slot, v := range want {
		got, ok := res.Captures[slot]
		if !ok {
			return fmt.Errorf("clause %d: slot %d not captured", res.Clause, slot)
		}
		if !Equal(got, v) {
			return fmt.Errorf("clause %d: slot %d = %s, want %s", res.Clause, slot, got, v)
		}
	}
	return nil
}
