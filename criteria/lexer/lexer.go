package lexer

import (
	"strings"
	"unicode"

	"github.com/thisisjab/sieve/criteria/token"
	"golang.org/x/text/unicode/norm"
)

type Lexer struct {
	input   []rune
	pos     int  // position of the current character in the input string
	readPos int  // position of the next character to be read
	char    rune // current character being processed
}

var keywords = map[string]token.TokenType{
	"null":  token.NULL,
	"true":  token.TRUE,
	"false": token.FALSE,
}

// New returns a lexer over the NFC normalized form of input, so that
// composed and decomposed spellings of the same text produce equal tokens.
func New(input string) *Lexer {
	l := &Lexer{input: []rune(norm.NFC.String(input))}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.char = 0
	} else {
		l.char = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	start := l.pos

	switch l.char {
	case '=':
		tok = token.Token{Type: token.EQUAL, Literal: "="}
	case '~':
		tok = l.withEqual(token.CONTAINS, "~=")
	case '^':
		tok = l.withEqual(token.STARTSWITH, "^=")
	case '$':
		tok = l.withEqual(token.ENDSWITH, "$=")
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LESSEQUAL, Literal: "<="}
		} else {
			tok = token.Token{Type: token.LESS, Literal: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GREATEREQUAL, Literal: ">="}
		} else {
			tok = token.Token{Type: token.GREATER, Literal: ">"}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NOTEQUAL, Literal: "!="}
		} else {
			tok = token.Token{Type: token.NOT, Literal: "!"}
		}
	case ',':
		tok = token.Token{Type: token.COMMA, Literal: ","}
	case '(':
		tok = token.Token{Type: token.LPAREN, Literal: "("}
	case ')':
		tok = token.Token{Type: token.RPAREN, Literal: ")"}
	case ':':
		tok = token.Token{Type: token.COLON, Literal: ":"}
	case '&':
		tok = token.Token{Type: token.AND, Literal: "&"}
	case '|':
		tok = token.Token{Type: token.OR, Literal: "|"}
	case '-':
		tok = token.Token{Type: token.MINUS, Literal: "-"}
	case 0:
		return token.Token{Type: token.EOF, Literal: "", Pos: start}
	case '"':
		literal, ok := l.readQuotedString()
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: literal, Pos: start}
		}
		tok = token.Token{Type: token.STRING, Literal: literal}
	default:
		if isLetter(l.char) {
			return l.readIdentifier()
		} else if isDigit(l.char) {
			return l.readPossibleNumber()
		}
		tok = token.Token{Type: token.ILLEGAL, Literal: string(l.char)}
	}

	tok.Pos = start
	l.readChar()
	return tok
}

// withEqual reads a two character operator whose second character is '='.
func (l *Lexer) withEqual(t token.TokenType, literal string) token.Token {
	if l.peekChar() != '=' {
		return token.Token{Type: token.ILLEGAL, Literal: string(l.char)}
	}
	l.readChar()
	return token.Token{Type: t, Literal: literal}
}

func (l *Lexer) readIdentifier() token.Token {
	pos := l.pos

	for {
		// Stop if we hit a boundary: space, comma, EOF, or an operator (=, &, |, etc.)
		if l.char == 0 || isWhitespace(l.char) || l.char == ',' || isOperator(l.char) {
			break
		}
		l.readChar()
	}

	literal := string(l.input[pos:l.pos])

	return token.Token{Type: l.lookupIdent(literal), Literal: literal, Pos: pos}
}

func (l *Lexer) lookupIdent(ident string) token.TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return token.IDENT
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '.' || r == '-'
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func (l *Lexer) skipWhitespace() {
	for isWhitespace(l.char) {
		l.readChar()
	}
}

func (l *Lexer) readPossibleNumber() token.Token {
	pos := l.pos
	hasDot := false
	isPureNumber := true

	for {
		if isDigit(l.char) {
			l.readChar()
		} else if l.char == '.' {
			if hasDot { // Second dot? It's definitely not a valid float, treat as string/ident
				isPureNumber = false
			}
			hasDot = true
			l.readChar()
		} else if l.char == ',' || isWhitespace(l.char) || l.char == 0 || isOperator(l.char) {
			break
		} else {
			// Something like 2016-12-20 or 10ms: still a usable value, just not a number.
			isPureNumber = false
			l.readChar()
		}
	}

	literal := string(l.input[pos:l.pos])

	if !isPureNumber {
		return token.Token{Type: token.STRING, Literal: literal, Pos: pos}
	}
	if hasDot {
		return token.Token{Type: token.DECIMAL, Literal: literal, Pos: pos}
	}
	return token.Token{Type: token.INT, Literal: literal, Pos: pos}
}

// readQuotedString reads up to the closing quote. A backslash escapes the
// next character. It reports false when the input ends first.
func (l *Lexer) readQuotedString() (string, bool) {
	var sb strings.Builder

	for {
		l.readChar()
		switch l.char {
		case 0:
			return sb.String(), false
		case '"':
			return sb.String(), true
		case '\\':
			l.readChar()
			if l.char == 0 {
				return sb.String(), false
			}
		}
		sb.WriteRune(l.char)
	}
}

func isOperator(r rune) bool {
	switch r {
	case '=', '~', '^', '$', '!', '&', '|', '(', ')', '<', '>', ':':
		return true
	}
	return false
}
