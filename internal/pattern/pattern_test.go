package pattern

import (
	"reflect"
	"testing"
)

const (
	symF    Symbol = 1
	symSucc Symbol = 2
	symZero Symbol = 3
	symPair Symbol = 4
)

func TestUnfold(t *testing.T) {
	tests := []struct {
		name     string
		input    Term
		wantHead Term
		wantArgs []Term
	}{
		{"bare head", Head{symZero}, Head{symZero}, nil},
		{"wildcard", Wildcard{0}, Wildcard{0}, nil},
		{
			"one argument",
			Apps(Head{symF}, Wildcard{0}),
			Head{symF},
			[]Term{Wildcard{0}},
		},
		{
			"arguments keep order",
			Apps(Head{symPair}, Head{symZero}, Wildcard{1}),
			Head{symPair},
			[]Term{Head{symZero}, Wildcard{1}},
		},
		{
			"nested argument stays folded",
			Apps(Head{symF}, Apps(Head{symSucc}, Wildcard{0})),
			Head{symF},
			[]Term{Apply{Fn: Head{symSucc}, Arg: Wildcard{0}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head, args := Unfold(tt.input)
			if !reflect.DeepEqual(head, tt.wantHead) {
				t.Errorf("head = %v, want %v", head, tt.wantHead)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("got %d args, want %d", len(args), len(tt.wantArgs))
			}
			for i := range args {
				if !reflect.DeepEqual(args[i], tt.wantArgs[i]) {
					t.Errorf("arg %d = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestUnfoldData(t *testing.T) {
	p := DataApps(Head{symF}, Tag{Type: 7, Slot: 0}, Wildcard{1})
	head, args := UnfoldData(p)
	if head != (Head{symF}) {
		t.Errorf("head = %v, want %v", head, Head{symF})
	}
	if len(args) != 2 {
		t.Fatalf("got %d args, want 2", len(args))
	}
	if args[0] != (Tag{Type: 7, Slot: 0}) {
		t.Errorf("arg 0 = %v", args[0])
	}
}

func TestUnfoldDataLeaves(t *testing.T) {
	tests := []struct {
		name string
		leaf DataTerm
	}{
		{"head", Head{symF}},
		{"wildcard", Wildcard{0}},
		{"tag", Tag{Type: 7, Slot: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head, args := UnfoldData(tt.leaf)
			if head != tt.leaf || len(args) != 0 {
				t.Errorf("UnfoldData(%v) = %v, %v", tt.leaf, head, args)
			}
		})
	}
}

func TestUnfoldDataRejectsAppliedTag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a tag with arguments")
		}
	}()
	UnfoldData(DataApply{Fn: Tag{Type: 1, Slot: 0}, Arg: Wildcard{1}})
}

func TestClassify(t *testing.T) {
	if got := Classify(Head{symZero}); got.Kind != LeafHead || got.Symbol != symZero {
		t.Errorf("Classify(Head) = %+v", got)
	}
	if got := Classify(Wildcard{3}); got.Kind != LeafWildcard || got.Slot != 3 {
		t.Errorf("Classify(Wildcard) = %+v", got)
	}
	if got := ClassifyData(Tag{Type: 9, Slot: 2}); got.Kind != LeafTag || got.Type != 9 || got.Slot != 2 {
		t.Errorf("ClassifyData(Tag) = %+v", got)
	}
}

func TestSlots(t *testing.T) {
	p := Apps(Head{symF}, Apps(Head{symPair}, Wildcard{0}, Wildcard{1}), Wildcard{2})
	if got, want := Slots(p), []int{0, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Slots = %v, want %v", got, want)
	}
	d := DataApps(Head{symF}, Tag{Type: 1, Slot: 0}, Wildcard{1})
	if got, want := DataSlots(d), []int{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("DataSlots = %v, want %v", got, want)
	}
}

func TestString(t *testing.T) {
	p := Apps(Head{symF}, Apps(Head{symSucc}, Wildcard{0}), Head{symZero})
	if got, want := p.String(), "$1 ($2 _0) $3"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
