package machine

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/funvibe/fastrule/internal/pattern"
	"github.com/funvibe/fastrule/internal/program"
)

const (
	symF    pattern.Symbol = 1
	symZero pattern.Symbol = 2
	symSucc pattern.Symbol = 3
	symPair pattern.Symbol = 4
	symCons pattern.Symbol = 5

	typeInt pattern.TypeID = 1
	typeStr pattern.TypeID = 2
)

func h(s pattern.Symbol) pattern.Head { return pattern.Head{Symbol: s} }
func w(slot int) pattern.Wildcard     { return pattern.Wildcard{Slot: slot} }

var (
	zero = NewApp(symZero)
	one  = NewApp(symSucc, zero)
	two  = NewApp(symSucc, one)
)

func mustRun(t *testing.T, p *program.Program, args ...Value) Result[Value] {
	t.Helper()
	res, err := Run(p, args...)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	return res
}

func TestPeano(t *testing.T) {
	structural := []pattern.Term{
		pattern.Apps(h(symF), pattern.Apps(h(symSucc), pattern.Apps(h(symSucc), w(0)))),
		pattern.Apps(h(symF), pattern.Apps(h(symSucc), w(0))),
		pattern.Apps(h(symF), w(0)),
	}
	p := program.Compile(structural, nil)
	if p.ArgsNeeded != 1 {
		t.Fatalf("args needed = %d, want 1", p.ArgsNeeded)
	}

	tests := []struct {
		name       string
		arg        Value
		wantClause int
		wantSlot0  Value
	}{
		{"two", two, 0, zero},
		{"one", one, 1, zero},
		{"zero", zero, 2, zero},
		{"three", NewApp(symSucc, two), 0, one},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, p, tt.arg)
			if res.Outcome != FiredStructural || res.Clause != tt.wantClause {
				t.Fatalf("got %s clause %d, want structural clause %d", res.Outcome, res.Clause, tt.wantClause)
			}
			if got := res.Captures[0]; !Equal(got, tt.wantSlot0) {
				t.Errorf("slot 0 = %v, want %v", got, tt.wantSlot0)
			}
		})
	}
}

func TestDataClause(t *testing.T) {
	data := []pattern.DataTerm{
		pattern.DataApps(h(symF), pattern.Tag{Type: typeInt, Slot: 0}),
	}
	p := program.Compile(nil, data)

	n := NewDatum(typeInt, int64(42))
	res := mustRun(t, p, n)
	if res.Outcome != FiredData || res.Clause != 0 {
		t.Fatalf("got %s clause %d, want data clause 0", res.Outcome, res.Clause)
	}
	if got := res.Captures[0]; got != Value(n) {
		t.Errorf("slot 0 = %v, want the datum %v", got, n)
	}

	if res := mustRun(t, p, zero); res.Outcome != Failed {
		t.Errorf("structural value should fail, got %s", res.Outcome)
	}
	if res := mustRun(t, p, NewDatum(typeStr, "x")); res.Outcome != Failed {
		t.Errorf("datum of another type should fail, got %s", res.Outcome)
	}
}

func TestEmptyClauseSet(t *testing.T) {
	p := program.Compile(nil, nil)
	if p.Len() != 1 || p.RegistersNeeded != p.ArgsNeeded {
		t.Fatalf("program = %+v, want a single FAIL with no extra registers", p)
	}
	if _, ok := p.Instructions[0].(program.Fail); !ok {
		t.Fatalf("instruction 0 = %T, want Fail", p.Instructions[0])
	}
	if res := mustRun(t, p); res.Outcome != Failed {
		t.Errorf("outcome = %s, want fail", res.Outcome)
	}
	if res := mustRun(t, program.Trivial()); res.Outcome != Failed || res.Steps != 1 {
		t.Errorf("trivial program: %+v", res)
	}
}

func TestMixedFlavors(t *testing.T) {
	structural := []pattern.Term{
		pattern.Apps(h(symF), h(symZero), w(0)),
	}
	data := []pattern.DataTerm{
		pattern.DataApps(h(symF), pattern.DataApps(h(symSucc), pattern.Tag{Type: typeInt, Slot: 0}), w(1)),
		pattern.DataApps(h(symF), pattern.Tag{Type: typeStr, Slot: 0}, pattern.Tag{Type: typeStr, Slot: 1}),
	}
	p := program.Compile(structural, data)
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid program: %v", err)
	}

	n := NewDatum(typeInt, int64(1))
	s := NewDatum(typeStr, "s")

	res := mustRun(t, p, zero, s)
	if res.Outcome != FiredStructural || res.Clause != 0 || res.Captures[0] != Value(s) {
		t.Errorf("f Zero s: %+v", res)
	}
	res = mustRun(t, p, NewApp(symSucc, n), zero)
	if res.Outcome != FiredData || res.Clause != 0 {
		t.Fatalf("f (Succ #Int) Zero: %+v", res)
	}
	if res.Captures[0] != Value(n) || !Equal(res.Captures[1], zero) {
		t.Errorf("captures = %v", res.Captures)
	}
	res = mustRun(t, p, s, s)
	if res.Outcome != FiredData || res.Clause != 1 {
		t.Errorf("f #Str #Str: %+v", res)
	}
	if res := mustRun(t, p, NewApp(symSucc, zero), zero); res.Outcome != Failed {
		t.Errorf("f (Succ Zero) Zero should fail, got %+v", res)
	}
}

func TestArityMismatchDoesNotMatch(t *testing.T) {
	structural := []pattern.Term{
		pattern.Apps(h(symF), pattern.Apps(h(symCons), w(0), w(1))),
		pattern.Apps(h(symF), pattern.Apps(h(symCons), w(0))),
	}
	p := program.Compile(structural, nil)

	res := mustRun(t, p, NewApp(symCons, zero))
	if res.Outcome != FiredStructural || res.Clause != 1 {
		t.Errorf("Cons/1: %+v", res)
	}
	if res := mustRun(t, p, NewApp(symCons, zero, zero, zero)); res.Outcome != Failed {
		t.Errorf("Cons/3 should fail, got %+v", res)
	}
}

func TestRunErrors(t *testing.T) {
	p := program.Compile([]pattern.Term{pattern.Apps(h(symF), w(0))}, nil)
	if _, err := Run(p); err == nil {
		t.Error("expected an error for a missing argument")
	}

	loop := &program.Program{
		RegistersNeeded: 1,
		ArgsNeeded:      1,
		Instructions: []program.Instruction{
			program.Expand{Source: 0, BaseOutput: 1, DefaultNext: 1},
			program.Expand{Source: 0, BaseOutput: 1, DefaultNext: 1},
		},
	}
	if _, err := Run(loop, zero); !errors.Is(err, ErrBadProgram) {
		t.Errorf("backward jump: err = %v, want ErrBadProgram", err)
	}

	unset := &program.Program{
		RegistersNeeded: 2,
		ArgsNeeded:      1,
		Instructions:    []program.Instruction{program.FireStructural{Clause: 0, Captures: []int{1}}},
	}
	if _, err := Run(unset, zero); !errors.Is(err, ErrBadProgram) {
		t.Errorf("unset register: err = %v, want ErrBadProgram", err)
	}

	negative := &program.Program{
		RegistersNeeded: 2,
		ArgsNeeded:      1,
		Instructions: []program.Instruction{
			program.Expand{Source: 0, BaseOutput: -1, DefaultNext: 1, Cases: []program.ExpandCase{{Head: symSucc, Arity: 1, Next: 1}}},
			program.Fail{},
		},
	}
	if _, err := Run(negative, one); !errors.Is(err, ErrBadProgram) {
		t.Errorf("negative output register: err = %v, want ErrBadProgram", err)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same app", NewApp(symSucc, zero), NewApp(symSucc, zero), true},
		{"different head", one, zero, false},
		{"same int", NewDatum(typeInt, 5), NewDatum(typeInt, 5), true},
		{"different type", NewDatum(typeInt, 5), NewDatum(typeStr, 5), false},
		{"same bytes", NewDatum(typeStr, []byte("ab")), NewDatum(typeStr, []byte("ab")), true},
		{"different bytes", NewDatum(typeStr, []byte("ab")), NewDatum(typeStr, []byte("ac")), false},
		{"slice inside app", NewApp(symSucc, NewDatum(typeInt, []int{1})), NewApp(symSucc, NewDatum(typeInt, []int{1})), true},
		{"app and datum", zero, NewDatum(typeInt, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

// hostTerm is a foreign term representation driven through Inspector.
type hostTerm struct {
	name string
	kids []hostTerm
	num  *int
}

type hostInspector struct{ ids map[string]pattern.Symbol }

func (hi hostInspector) Application(v hostTerm) (pattern.Symbol, []hostTerm, bool) {
	if v.num != nil {
		return 0, nil, false
	}
	return hi.ids[v.name], v.kids, true
}

func (hi hostInspector) Datum(v hostTerm) (pattern.TypeID, bool) {
	return typeInt, v.num != nil
}

func TestExecWithHostInspector(t *testing.T) {
	structural := []pattern.Term{
		pattern.Apps(h(symF), pattern.Apps(h(symPair), w(0), w(1))),
	}
	data := []pattern.DataTerm{
		pattern.DataApps(h(symF), pattern.Tag{Type: typeInt, Slot: 0}),
	}
	p := program.Compile(structural, data)
	in := hostInspector{ids: map[string]pattern.Symbol{"Pair": symPair, "Zero": symZero}}

	pair := hostTerm{name: "Pair", kids: []hostTerm{{name: "Zero"}, {name: "Zero"}}}
	res, err := Exec[hostTerm](p, in, []hostTerm{pair})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != FiredStructural || !reflect.DeepEqual(res.Captures[1], hostTerm{name: "Zero"}) {
		t.Errorf("pair: %+v", res)
	}

	seven := 7
	res, err = Exec[hostTerm](p, in, []hostTerm{{num: &seven}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != FiredData || *res.Captures[0].num != 7 {
		t.Errorf("number: %+v", res)
	}
}

func TestRecompileIsObservationallyEqual(t *testing.T) {
	structural := []pattern.Term{
		pattern.Apps(h(symF), pattern.Apps(h(symPair), h(symZero), w(0)), w(1)),
		pattern.Apps(h(symF), w(0), h(symZero)),
	}
	a := program.Compile(structural, nil)
	b := program.Compile(structural, nil)
	args := [][]Value{
		{NewApp(symPair, zero, one), zero},
		{one, zero},
		{one, one},
	}
	for _, tuple := range args {
		ra, rb := mustRun(t, a, tuple...), mustRun(t, b, tuple...)
		if ra.Outcome != rb.Outcome || ra.Clause != rb.Clause || len(ra.Captures) != len(rb.Captures) {
			t.Errorf("%v: %+v vs %+v", tuple, ra, rb)
		}
	}
}

// generator builds random clause sets and values over a small alphabet.
type generator struct {
	rnd  *rand.Rand
	slot int
}

var heads = []struct {
	sym   pattern.Symbol
	arity int
}{
	{symZero, 0}, {symSucc, 1}, {symPair, 2}, {symCons, 1}, {symCons, 2},
}

var types = []pattern.TypeID{typeInt, typeStr}

func (g *generator) term(depth int) pattern.Term {
	if depth == 0 || g.rnd.Intn(3) == 0 {
		g.slot++
		return w(g.slot - 1)
	}
	hd := heads[g.rnd.Intn(len(heads))]
	args := make([]pattern.Term, hd.arity)
	for i := range args {
		args[i] = g.term(depth - 1)
	}
	return pattern.Apps(h(hd.sym), args...)
}

func (g *generator) dataTerm(depth int) pattern.DataTerm {
	switch r := g.rnd.Intn(4); {
	case depth == 0 || r == 0:
		g.slot++
		return w(g.slot - 1)
	case r == 1:
		g.slot++
		return pattern.Tag{Type: types[g.rnd.Intn(len(types))], Slot: g.slot - 1}
	}
	hd := heads[g.rnd.Intn(len(heads))]
	args := make([]pattern.DataTerm, hd.arity)
	for i := range args {
		args[i] = g.dataTerm(depth - 1)
	}
	return pattern.DataApps(h(hd.sym), args...)
}

func (g *generator) value(depth int) Value {
	if depth == 0 || g.rnd.Intn(4) == 0 {
		if g.rnd.Intn(2) == 0 {
			return NewDatum(types[g.rnd.Intn(len(types))], int64(g.rnd.Intn(3)))
		}
		return zero
	}
	hd := heads[g.rnd.Intn(len(heads))]
	args := make([]Value, hd.arity)
	for i := range args {
		args[i] = g.value(depth - 1)
	}
	return NewApp(hd.sym, args...)
}

// instantiate builds a value matching p, filling wildcards randomly.
func (g *generator) instantiate(p pattern.Term) Value {
	head, args := pattern.Unfold(p)
	leaf := pattern.Classify(head)
	if leaf.Kind == pattern.LeafWildcard {
		return g.value(2)
	}
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = g.instantiate(a)
	}
	return NewApp(leaf.Symbol, vals...)
}

func (g *generator) instantiateData(p pattern.DataTerm) Value {
	head, args := pattern.UnfoldData(p)
	leaf := pattern.ClassifyData(head)
	switch leaf.Kind {
	case pattern.LeafWildcard:
		return g.value(2)
	case pattern.LeafTag:
		return NewDatum(leaf.Type, int64(g.rnd.Intn(3)))
	}
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = g.instantiateData(a)
	}
	return NewApp(leaf.Symbol, vals...)
}

func (g *generator) clauses(arity int) ([]pattern.Term, []pattern.DataTerm) {
	structural := make([]pattern.Term, g.rnd.Intn(5))
	for i := range structural {
		g.slot = 0
		args := make([]pattern.Term, g.rnd.Intn(arity+1))
		for j := range args {
			args[j] = g.term(3)
		}
		structural[i] = pattern.Apps(h(symF), args...)
	}
	data := make([]pattern.DataTerm, g.rnd.Intn(4))
	for i := range data {
		g.slot = 0
		args := make([]pattern.DataTerm, g.rnd.Intn(arity+1))
		for j := range args {
			args[j] = g.dataTerm(3)
		}
		data[i] = pattern.DataApps(h(symF), args...)
	}
	return structural, data
}

func (g *generator) tuple(structural []pattern.Term, data []pattern.DataTerm, arity int) []Value {
	args := make([]Value, arity)
	for i := range args {
		args[i] = g.value(3)
	}
	// Bias towards tuples that hit some clause.
	switch {
	case len(structural) > 0 && g.rnd.Intn(3) == 0:
		_, params := pattern.Unfold(structural[g.rnd.Intn(len(structural))])
		for i, p := range params {
			args[i] = g.instantiate(p)
		}
	case len(data) > 0 && g.rnd.Intn(3) == 0:
		_, params := pattern.UnfoldData(data[g.rnd.Intn(len(data))])
		for i, p := range params {
			args[i] = g.instantiateData(p)
		}
	}
	return args
}

func TestCompiledProgramsAgreeWithDirectMatching(t *testing.T) {
	g := &generator{rnd: rand.New(rand.NewSource(20261018))}
	for trial := 0; trial < 400; trial++ {
		structural, data := g.clauses(1 + trial%3)
		p := program.Compile(structural, data)
		if err := p.Validate(); err != nil {
			t.Fatalf("trial %d: invalid program: %v\n%s", trial, err, program.Disassemble(p, "f"))
		}
		for i := 0; i < 40; i++ {
			args := g.tuple(structural, data, p.ArgsNeeded)
			res, err := Run(p, args...)
			if err != nil {
				t.Fatalf("trial %d: run error: %v", trial, err)
			}
			if res.Steps > p.Len() {
				t.Fatalf("trial %d: %d steps in a %d instruction program", trial, res.Steps, p.Len())
			}
			if err := Check(structural, data, args, res); err != nil {
				t.Fatalf("trial %d: args %v: %v\nstructural %v\ndata %v\n%s",
					trial, args, err, structural, data, program.Disassemble(p, "f"))
			}
		}
	}
}
