package notation

import (
	"fmt"

	"github.com/funvibe/fastrule/internal/machine"
	"github.com/funvibe/fastrule/internal/pattern"
)

// Error is a syntax error at a column of the input.
type Error struct {
	Column int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("column %d: %s", e.Column, e.Msg)
}

// Clause is a parsed structural clause. Names[slot] is the variable name
// bound to that slot, "_" for anonymous slots.
type Clause struct {
	Root  string
	Term  pattern.Term
	Names []string
}

// DataClause is a parsed data clause.
type DataClause struct {
	Root  string
	Term  pattern.DataTerm
	Names []string
}

type nodeKind uint8

const (
	nodeHead nodeKind = iota
	nodeVar
	nodeTag
)

// node is the flavor-neutral parse tree of a pattern.
type node struct {
	kind   nodeKind
	name   string // head or type name
	slot   int
	args   []*node
	column int
}

// Parser turns notation into patterns and values, interning names in Symbols.
type Parser struct {
	symbols *Symbols

	l         *Lexer
	curToken  Token
	peekToken Token

	slots map[string]int
	names []string
}

func NewParser(symbols *Symbols) *Parser {
	return &Parser{symbols: symbols}
}

// Symbols returns the table the parser interns into.
func (p *Parser) Symbols() *Symbols { return p.symbols }

func (p *Parser) reset(input string) {
	p.l = NewLexer(input)
	p.slots = make(map[string]int)
	p.names = nil
	p.nextToken()
	p.nextToken()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	return &Error{Column: tok.Column, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) unexpected(tok Token, want string) error {
	if tok.Type == ILLEGAL {
		return p.errorf(tok, "illegal input %q", tok.Lexeme)
	}
	if tok.Type == EOF {
		return p.errorf(tok, "expected %s, got end of input", want)
	}
	return p.errorf(tok, "expected %s, got %q", want, tok.Lexeme)
}

// ParseClause parses a structural clause such as "f (Succ n) Zero".
func (p *Parser) ParseClause(input string) (Clause, error) {
	root, tree, err := p.parseClause(input)
	if err != nil {
		return Clause{}, err
	}
	term, err := p.toTerm(tree)
	if err != nil {
		return Clause{}, err
	}
	return Clause{Root: root, Term: term, Names: p.names}, nil
}

// ParseDataClause parses a data clause such as "f (Succ #Int n)".
func (p *Parser) ParseDataClause(input string) (DataClause, error) {
	root, tree, err := p.parseClause(input)
	if err != nil {
		return DataClause{}, err
	}
	return DataClause{Root: root, Term: p.toDataTerm(tree), Names: p.names}, nil
}

func (p *Parser) parseClause(input string) (string, *node, error) {
	p.reset(input)
	if p.curToken.Type != UPPER && p.curToken.Type != LOWER {
		return "", nil, p.unexpected(p.curToken, "function name")
	}
	root := &node{kind: nodeHead, name: p.curToken.Lexeme, column: p.curToken.Column}
	p.nextToken()
	for p.curToken.Type != EOF {
		arg, err := p.parseAtom()
		if err != nil {
			return "", nil, err
		}
		root.args = append(root.args, arg)
	}
	return root.name, root, nil
}

func (p *Parser) parseAtom() (*node, error) {
	tok := p.curToken
	switch tok.Type {
	case UPPER:
		p.nextToken()
		return &node{kind: nodeHead, name: tok.Lexeme, column: tok.Column}, nil
	case LOWER, UNDERSCORE:
		p.nextToken()
		return p.variable(tok)
	case HASH:
		p.nextToken()
		if p.curToken.Type != UPPER {
			return nil, p.unexpected(p.curToken, "type name after #")
		}
		n := &node{kind: nodeTag, name: p.curToken.Lexeme, column: tok.Column}
		p.nextToken()
		binder := Token{Type: UNDERSCORE, Lexeme: "_", Column: tok.Column}
		if p.curToken.Type == LOWER || p.curToken.Type == UNDERSCORE {
			binder = p.curToken
			p.nextToken()
		}
		v, err := p.variable(binder)
		if err != nil {
			return nil, err
		}
		n.slot = v.slot
		return n, nil
	case LPAREN:
		p.nextToken()
		fn, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		for p.curToken.Type != RPAREN {
			if p.curToken.Type == EOF {
				return nil, p.unexpected(p.curToken, ")")
			}
			arg, err := p.parseAtom()
			if err != nil {
				return nil, err
			}
			if fn.kind != nodeHead {
				return nil, p.errorf(Token{Column: fn.column}, "only a constructor can be applied to arguments")
			}
			fn.args = append(fn.args, arg)
		}
		p.nextToken()
		return fn, nil
	default:
		return nil, p.unexpected(tok, "pattern")
	}
}

func (p *Parser) variable(tok Token) (*node, error) {
	if tok.Type == LOWER {
		if _, ok := p.slots[tok.Lexeme]; ok {
			return nil, p.errorf(tok, "variable %q bound twice", tok.Lexeme)
		}
	}
	slot := len(p.names)
	p.names = append(p.names, tok.Lexeme)
	if tok.Type == LOWER {
		p.slots[tok.Lexeme] = slot
	}
	return &node{kind: nodeVar, slot: slot, column: tok.Column}, nil
}

func (p *Parser) toTerm(n *node) (pattern.Term, error) {
	switch n.kind {
	case nodeVar:
		return pattern.Wildcard{Slot: n.slot}, nil
	case nodeTag:
		return nil, p.errorf(Token{Column: n.column}, "type pattern #%s is only allowed in data clauses", n.name)
	}
	args := make([]pattern.Term, len(n.args))
	for i, a := range n.args {
		t, err := p.toTerm(a)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	return pattern.Apps(pattern.Head{Symbol: p.symbols.Head(n.name)}, args...), nil
}

func (p *Parser) toDataTerm(n *node) pattern.DataTerm {
	switch n.kind {
	case nodeVar:
		return pattern.Wildcard{Slot: n.slot}
	case nodeTag:
		return pattern.Tag{Type: p.symbols.Type(n.name), Slot: n.slot}
	}
	args := make([]pattern.DataTerm, len(n.args))
	for i, a := range n.args {
		args[i] = p.toDataTerm(a)
	}
	return pattern.DataApps(pattern.Head{Symbol: p.symbols.Head(n.name)}, args...)
}

// ParseValue parses a runtime value such as "Succ (Succ Zero)" or "#Int 5".
func (p *Parser) ParseValue(input string) (machine.Value, error) {
	p.reset(input)
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != EOF {
		return nil, p.unexpected(p.curToken, "end of input")
	}
	return v, nil
}

func (p *Parser) parseValue() (machine.Value, error) {
	if p.curToken.Type != UPPER {
		return p.parseValueAtom()
	}
	app := machine.NewApp(p.symbols.Head(p.curToken.Lexeme))
	p.nextToken()
	for p.curToken.Type != EOF && p.curToken.Type != RPAREN {
		arg, err := p.parseValueAtom()
		if err != nil {
			return nil, err
		}
		app.Args = append(app.Args, arg)
	}
	return app, nil
}

func (p *Parser) parseValueAtom() (machine.Value, error) {
	tok := p.curToken
	switch tok.Type {
	case UPPER:
		p.nextToken()
		return machine.NewApp(p.symbols.Head(tok.Lexeme)), nil
	case HASH:
		p.nextToken()
		if p.curToken.Type != UPPER {
			return nil, p.unexpected(p.curToken, "type name after #")
		}
		typ := p.symbols.Type(p.curToken.Lexeme)
		p.nextToken()
		lit := p.curToken
		switch lit.Type {
		case INT, STRING, UPPER, LOWER:
			p.nextToken()
			return machine.NewDatum(typ, lit.Literal), nil
		default:
			return nil, p.unexpected(lit, "literal")
		}
	case LPAREN:
		p.nextToken()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if p.curToken.Type != RPAREN {
			return nil, p.unexpected(p.curToken, ")")
		}
		p.nextToken()
		return v, nil
	default:
		return nil, p.unexpected(tok, "value")
	}
}
