package notation

import "fmt"

// TokenType is the kind of a lexical token.
type TokenType uint8

const (
	ILLEGAL TokenType = iota
	EOF
	UPPER      // Succ, Int
	LOWER      // x, f, n'
	UNDERSCORE // _
	HASH       // #
	LPAREN     // (
	RPAREN     // )
	INT        // 42, -7
	STRING     // "text"
)

var tokenNames = [...]string{
	ILLEGAL:    "ILLEGAL",
	EOF:        "end of input",
	UPPER:      "constructor",
	LOWER:      "variable",
	UNDERSCORE: "_",
	HASH:       "#",
	LPAREN:     "(",
	RPAREN:     ")",
	INT:        "integer",
	STRING:     "string",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// Token is one lexical token. Column is 1-based.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Column  int
}
