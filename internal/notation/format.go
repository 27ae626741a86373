package notation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/fastrule/internal/machine"
)

// FormatValue renders v in value notation using the names in s. Unknown
// ids fall back to $N and #N.
func (s *Symbols) FormatValue(v machine.Value) string {
	switch x := v.(type) {
	case *machine.App:
		var sb strings.Builder
		sb.WriteString(s.headLabel(x))
		for _, arg := range x.Args {
			sb.WriteByte(' ')
			if app, ok := arg.(*machine.App); ok && len(app.Args) == 0 {
				sb.WriteString(s.FormatValue(arg))
				continue
			}
			sb.WriteString("(" + s.FormatValue(arg) + ")")
		}
		return sb.String()
	case *machine.Datum:
		name := s.TypeName(x.Type)
		if name == "" {
			name = fmt.Sprintf("%d", x.Type)
		}
		return "#" + name + " " + formatPayload(x.Payload)
	case nil:
		return "<unbound>"
	default:
		return v.String()
	}
}

func (s *Symbols) headLabel(app *machine.App) string {
	if name := s.HeadName(app.Head); name != "" {
		return name
	}
	return fmt.Sprintf("$%d", app.Head)
}

func formatPayload(p any) string {
	switch x := p.(type) {
	case string:
		if isIdentifier(x) {
			return x
		}
		return strconv.Quote(x)
	default:
		return fmt.Sprint(x)
	}
}

func isIdentifier(s string) bool {
	if s == "" || s == "_" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentStart(r) && !isDigit(r) && r != '\'' {
			return false
		}
	}
	return true
}
