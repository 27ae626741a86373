package notation

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer splits pattern and value notation into tokens.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	column       int  // current column number
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// NextToken returns the next token, or EOF at the end of input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	col := l.column

	switch {
	case l.ch == 0:
		return Token{Type: EOF, Column: col}
	case l.ch == '(':
		l.readChar()
		return Token{Type: LPAREN, Lexeme: "(", Column: col}
	case l.ch == ')':
		l.readChar()
		return Token{Type: RPAREN, Lexeme: ")", Column: col}
	case l.ch == '#':
		l.readChar()
		return Token{Type: HASH, Lexeme: "#", Column: col}
	case l.ch == '"':
		return l.readString()
	case isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())):
		return l.readNumber()
	case isIdentStart(l.ch):
		ident := l.readIdentifier()
		switch {
		case ident == "_":
			return Token{Type: UNDERSCORE, Lexeme: ident, Column: col}
		case unicode.IsUpper([]rune(ident)[0]):
			return Token{Type: UPPER, Lexeme: ident, Literal: ident, Column: col}
		default:
			return Token{Type: LOWER, Lexeme: ident, Literal: ident, Column: col}
		}
	default:
		ch := l.ch
		l.readChar()
		return Token{Type: ILLEGAL, Lexeme: string(ch), Column: col}
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentStart(l.ch) || isDigit(l.ch) || l.ch == '\'' {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() Token {
	col := l.column
	start := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	n, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return Token{Type: ILLEGAL, Lexeme: lexeme, Column: col}
	}
	return Token{Type: INT, Lexeme: lexeme, Literal: n, Column: col}
}

func (l *Lexer) readString() Token {
	col := l.column
	l.readChar() // opening quote
	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 {
			return Token{Type: ILLEGAL, Lexeme: "\"" + sb.String(), Column: col}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 0:
				continue
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // closing quote
	s := sb.String()
	return Token{Type: STRING, Lexeme: strconv.Quote(s), Literal: s, Column: col}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
