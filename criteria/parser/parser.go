// Package parser reads the textual criteria language:
//
//	sort=-created_at,name limit=10 offset=20 : status=active & (age>18 | country="ES")
//
// Everything before the first `:` is the control section, everything after
// it the filter section. Without a `:` the whole input is a filter.
// Conditions chained with `&` at the top level become separate filters of
// the resulting criteria; `&` binds tighter than `|`.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/criteria/lexer"
	"github.com/thisisjab/sieve/criteria/token"
	"github.com/thisisjab/sieve/fault"
)

var comparisonOperators = map[token.TokenType]criteria.Operator{
	token.EQUAL:        criteria.Equal,
	token.NOTEQUAL:     criteria.NotEqual,
	token.GREATER:      criteria.Gt,
	token.GREATEREQUAL: criteria.Gte,
	token.LESS:         criteria.Lt,
	token.LESSEQUAL:    criteria.Lte,
	token.CONTAINS:     criteria.Contains,
	token.STARTSWITH:   criteria.StartsWith,
	token.ENDSWITH:     criteria.EndsWith,
}

type Parser struct {
	tokens    []token.Token
	next      int
	curToken  token.Token
	peekToken token.Token
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{}

	for {
		tok := l.NextToken()
		p.tokens = append(p.tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	p.nextToken()
	p.nextToken()

	return p
}

// Parse is shorthand for New(lexer.New(input)).ParseCriteria().
func Parse(input string) (criteria.Criteria, error) {
	return New(lexer.New(input)).ParseCriteria()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.next < len(p.tokens) {
		p.peekToken = p.tokens[p.next]
		p.next++
	}
}

func (p *Parser) hasControlSection() bool {
	for _, tok := range p.tokens {
		if tok.Type == token.COLON {
			return true
		}
	}
	return false
}

// ParseCriteria parses the whole input. Syntax errors are fault.BadInputCode
// faults naming the position of the offending token.
func (p *Parser) ParseCriteria() (criteria.Criteria, error) {
	var c criteria.Criteria

	if p.hasControlSection() {
		seen := map[string]bool{}
		for p.curToken.Type != token.COLON {
			if err := p.parseControlStatement(&c, seen); err != nil {
				return criteria.Criteria{}, err
			}
		}
		p.nextToken()
	}

	if p.curToken.Type == token.EOF {
		return c, nil
	}

	filters, err := p.parseConjunction()
	if err != nil {
		return criteria.Criteria{}, err
	}

	if p.curToken.Type == token.OR {
		f, err := p.parseAlternatives(filters)
		if err != nil {
			return criteria.Criteria{}, err
		}
		filters = []criteria.Filter{f}
	}

	if p.curToken.Type != token.EOF {
		return criteria.Criteria{}, p.unexpected(p.curToken)
	}

	c.Filters = filters

	return c, nil
}

func (p *Parser) parseControlStatement(c *criteria.Criteria, seen map[string]bool) error {
	if p.curToken.Type != token.IDENT {
		return p.unexpected(p.curToken)
	}

	key := p.curToken
	if seen[key.Literal] {
		return p.errorf(key, "`%s` is set more than once", key.Literal)
	}
	seen[key.Literal] = true

	switch key.Literal {
	case "sort":
		return p.parseSort(c)
	case "limit":
		n, err := p.parseCount()
		if err != nil {
			return err
		}
		c.Limit = &n
	case "offset":
		n, err := p.parseCount()
		if err != nil {
			return err
		}
		c.Offset = &n
	default:
		return p.errorf(key, "unknown control statement `%s`", key.Literal)
	}

	return nil
}

func (p *Parser) parseSort(c *criteria.Criteria) error {
	if err := p.expectPeek(token.EQUAL); err != nil {
		return err
	}
	p.nextToken()

	for {
		direction := criteria.Asc
		if p.curToken.Type == token.MINUS {
			direction = criteria.Desc
			p.nextToken()
		}

		if p.curToken.Type != token.IDENT {
			return p.unexpected(p.curToken)
		}
		c.Orders = append(c.Orders, criteria.OrderBy(p.curToken.Literal, direction))
		p.nextToken()

		if p.curToken.Type != token.COMMA {
			return nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseCount() (int, error) {
	if err := p.expectPeek(token.EQUAL); err != nil {
		return 0, err
	}
	if err := p.expectPeek(token.INT); err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(p.curToken.Literal)
	if err != nil {
		return 0, p.errorf(p.curToken, "invalid number `%s`", p.curToken.Literal)
	}

	p.nextToken()

	return n, nil
}

// parseConjunction parses primaries joined by `&` and returns them unwrapped.
func (p *Parser) parseConjunction() ([]criteria.Filter, error) {
	var filters []criteria.Filter

	for {
		f, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)

		if p.curToken.Type != token.AND {
			return filters, nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseDisjunction() (criteria.Filter, error) {
	filters, err := p.parseConjunction()
	if err != nil {
		return nil, err
	}

	return p.parseAlternatives(filters)
}

// parseAlternatives continues a disjunction whose first branch is parsed.
func (p *Parser) parseAlternatives(first []criteria.Filter) (criteria.Filter, error) {
	if p.curToken.Type != token.OR {
		return allOf(first), nil
	}

	or := []criteria.Filter{allOf(first)}
	for p.curToken.Type == token.OR {
		p.nextToken()
		rest, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		or = append(or, allOf(rest))
	}

	return criteria.Or{Filters: or}, nil
}

func (p *Parser) parsePrimary() (criteria.Filter, error) {
	if p.curToken.Type == token.LPAREN {
		p.nextToken()

		f, err := p.parseDisjunction()
		if err != nil {
			return nil, err
		}

		if p.curToken.Type != token.RPAREN {
			return nil, p.unexpected(p.curToken)
		}
		p.nextToken()

		return f, nil
	}

	return p.parseCondition()
}

func (p *Parser) parseCondition() (criteria.Filter, error) {
	if p.curToken.Type != token.IDENT {
		return nil, p.unexpected(p.curToken)
	}
	field := p.curToken.Literal

	opToken := p.peekToken
	op, ok := comparisonOperators[opToken.Type]
	if !ok {
		return nil, p.unexpected(opToken)
	}
	p.nextToken()
	p.nextToken()

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type != token.COMMA {
		return criteria.Cond(field, op, value), nil
	}

	switch op {
	case criteria.Equal:
		op = criteria.In
	case criteria.NotEqual:
		op = criteria.NotIn
	default:
		return nil, p.errorf(p.curToken, "value lists can only be used with `=` and `!=`")
	}

	values := []any{value}
	for p.curToken.Type == token.COMMA {
		p.nextToken()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return criteria.Cond(field, op, values), nil
}

// parseValue parses one literal and advances past it.
func (p *Parser) parseValue() (any, error) {
	tok := p.curToken
	negative := false

	if tok.Type == token.MINUS && (p.peekToken.Type == token.INT || p.peekToken.Type == token.DECIMAL) {
		negative = true
		p.nextToken()
		tok = p.curToken
	}

	var value any

	switch tok.Type {
	case token.INT:
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid integer `%s`", tok.Literal)
		}
		if negative {
			n = -n
		}
		value = n
	case token.DECIMAL:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid decimal `%s`", tok.Literal)
		}
		if negative {
			f = -f
		}
		value = f
	case token.STRING, token.IDENT:
		value = tok.Literal
	case token.NULL:
		value = nil
	case token.TRUE:
		value = true
	case token.FALSE:
		value = false
	default:
		return nil, p.unexpected(tok)
	}

	p.nextToken()

	return value, nil
}

func (p *Parser) expectPeek(t token.TokenType) error {
	if p.peekToken.Type != t {
		return p.errorf(p.peekToken, "expected %s, got %s", t, describe(p.peekToken))
	}
	p.nextToken()
	return nil
}

func (p *Parser) unexpected(tok token.Token) error {
	return p.errorf(tok, "unexpected %s", describe(tok))
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) error {
	msg := fmt.Sprintf("Position %d: %s.", tok.Pos, fmt.Sprintf(format, args...))
	return fault.New(fault.BadInputCode, msg).WithMetadata(fault.FieldErrorsMetadata{"q": []string{msg}})
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return tok.Type.String()
	case token.IDENT, token.INT, token.DECIMAL, token.STRING, token.ILLEGAL:
		return fmt.Sprintf("%s `%s`", tok.Type, tok.Literal)
	default:
		return tok.Type.String()
	}
}

// allOf wraps several filters in an And node, leaving a single filter as is.
func allOf(filters []criteria.Filter) criteria.Filter {
	if len(filters) == 1 {
		return filters[0]
	}
	return criteria.And{Filters: filters}
}
