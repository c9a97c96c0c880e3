package token

const (
	ILLEGAL TokenType = iota
	EOF

	// Identifiers + literals
	IDENT
	INT
	DECIMAL
	STRING
	NULL
	TRUE
	FALSE

	// Delimiters
	COMMA
	COLON
	LPAREN
	RPAREN

	EQUAL
	NOTEQUAL
	LESS
	LESSEQUAL
	GREATER
	GREATEREQUAL
	CONTAINS
	STARTSWITH
	ENDSWITH
	MINUS
	AND
	OR
	NOT
)

var names = map[TokenType]string{
	ILLEGAL:      "illegal character",
	EOF:          "end of input",
	IDENT:        "identifier",
	INT:          "integer",
	DECIMAL:      "decimal",
	STRING:       "string",
	NULL:         "null",
	TRUE:         "true",
	FALSE:        "false",
	COMMA:        "`,`",
	COLON:        "`:`",
	LPAREN:       "`(`",
	RPAREN:       "`)`",
	EQUAL:        "`=`",
	NOTEQUAL:     "`!=`",
	LESS:         "`<`",
	LESSEQUAL:    "`<=`",
	GREATER:      "`>`",
	GREATEREQUAL: "`>=`",
	CONTAINS:     "`~=`",
	STARTSWITH:   "`^=`",
	ENDSWITH:     "`$=`",
	MINUS:        "`-`",
	AND:          "`&`",
	OR:           "`|`",
	NOT:          "`!`",
}

type TokenType int

func (t TokenType) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return "unknown token"
}

type Token struct {
	Type    TokenType
	Literal string
	// Pos is the offset of the first character of the token, in runes.
	Pos int
}
