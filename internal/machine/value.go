package machine

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/funvibe/fastrule/internal/pattern"
)

// Value is a runtime term: either an App or a Datum.
type Value interface {
	value()
	String() string
}

// App is head applied to zero or more argument values.
type App struct {
	Head pattern.Symbol
	Args []Value
}

func (a *App) value() {}
func (a *App) String() string {
	if len(a.Args) == 0 {
		return fmt.Sprintf("$%d", a.Head)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("$%d", a.Head))
	for _, arg := range a.Args {
		s := arg.String()
		if strings.Contains(s, " ") {
			s = "(" + s + ")"
		}
		sb.WriteString(" " + s)
	}
	return sb.String()
}

// Datum is a tagged scalar value. It is never decomposed.
type Datum struct {
	Type    pattern.TypeID
	Payload any
}

func (d *Datum) value()         {}
func (d *Datum) String() string { return fmt.Sprintf("#%d %v", d.Type, d.Payload) }

// NewApp builds an App value.
func NewApp(head pattern.Symbol, args ...Value) *App {
	return &App{Head: head, Args: args}
}

// NewDatum builds a Datum value.
func NewDatum(typ pattern.TypeID, payload any) *Datum {
	return &Datum{Type: typ, Payload: payload}
}

// Equal reports whether two values are structurally equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case *App:
		y, ok := b.(*App)
		if !ok || x.Head != y.Head || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *Datum:
		y, ok := b.(*Datum)
		return ok && x.Type == y.Type && reflect.DeepEqual(x.Payload, y.Payload)
	default:
		return a == nil && b == nil
	}
}

// Inspector is what a dispatch program needs to know about host values.
type Inspector[V any] interface {
	// Application reports v as head applied to args.
	Application(v V) (head pattern.Symbol, args []V, ok bool)
	// Datum reports v as a tagged datum of type typ.
	Datum(v V) (typ pattern.TypeID, ok bool)
}

// ValueInspector inspects Value.
type ValueInspector struct{}

func (ValueInspector) Application(v Value) (pattern.Symbol, []Value, bool) {
	if app, ok := v.(*App); ok {
		return app.Head, app.Args, true
	}
	return 0, nil, false
}

func (ValueInspector) Datum(v Value) (pattern.TypeID, bool) {
	if d, ok := v.(*Datum); ok {
		return d.Type, true
	}
	return 0, false
}
