package rules

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenBool
	tokenOperator // == != < <= > >=
	tokenAnd
	tokenOr
	tokenNot
	tokenIn
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

type token struct {
	typ tokenType
	// text is the raw token text; num/boolean hold the parsed value for
	// number and bool tokens.
	text    string
	num     float64
	boolean bool
	pos     int
}

// ParseError reports a syntax error in a condition expression.
type ParseError struct {
	Expression string
	Pos        int
	Message    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
}

// lexer turns an expression string into a token stream.
type lexer struct {
	input string
	pos   int
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return &ParseError{Expression: l.input, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]

	switch c {
	case '(':
		l.pos++
		return token{typ: tokenLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{typ: tokenRParen, text: ")", pos: start}, nil
	case '[':
		l.pos++
		return token{typ: tokenLBracket, text: "[", pos: start}, nil
	case ']':
		l.pos++
		return token{typ: tokenRBracket, text: "]", pos: start}, nil
	case ',':
		l.pos++
		return token{typ: tokenComma, text: ",", pos: start}, nil
	case '=', '!', '<', '>':
		return l.lexOperator(start)
	case '"', '\'':
		return l.lexString(start, c)
	}

	if c == '-' || c == '.' || unicode.IsDigit(rune(c)) {
		return l.lexNumber(start)
	}
	if c == '_' || unicode.IsLetter(rune(c)) {
		return l.lexIdent(start)
	}
	return token{}, l.errorf(start, "unexpected character %q", c)
}

func (l *lexer) lexOperator(start int) (token, error) {
	two := ""
	if l.pos+1 < len(l.input) {
		two = l.input[l.pos : l.pos+2]
	}
	switch two {
	case "==", "!=", "<=", ">=":
		l.pos += 2
		return token{typ: tokenOperator, text: two, pos: start}, nil
	}
	one := string(l.input[l.pos])
	switch one {
	case "<", ">":
		l.pos++
		return token{typ: tokenOperator, text: one, pos: start}, nil
	}
	return token{}, l.errorf(start, "unexpected operator %q", one)
}

func (l *lexer) lexString(start int, quote byte) (token, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == quote {
			l.pos++
			return token{typ: tokenString, text: sb.String(), pos: start}, nil
		}
		if c == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			c = l.input[l.pos]
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, l.errorf(start, "unterminated string literal")
}

func (l *lexer) lexNumber(start int) (token, error) {
	l.pos++
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '.' || unicode.IsDigit(rune(c)) {
			l.pos++
			continue
		}
		break
	}
	text := l.input[start:l.pos]
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, l.errorf(start, "invalid number %q", text)
	}
	return token{typ: tokenNumber, text: text, num: num, pos: start}, nil
}

func (l *lexer) lexIdent(start int) (token, error) {
	for l.pos < len(l.input) {
		c := rune(l.input[l.pos])
		if c == '_' || c == '.' || unicode.IsLetter(c) || unicode.IsDigit(c) {
			l.pos++
			continue
		}
		break
	}
	text := l.input[start:l.pos]
	switch strings.ToLower(text) {
	case "and":
		return token{typ: tokenAnd, text: text, pos: start}, nil
	case "or":
		return token{typ: tokenOr, text: text, pos: start}, nil
	case "not":
		return token{typ: tokenNot, text: text, pos: start}, nil
	case "in":
		return token{typ: tokenIn, text: text, pos: start}, nil
	case "true":
		return token{typ: tokenBool, text: text, boolean: true, pos: start}, nil
	case "false":
		return token{typ: tokenBool, text: text, boolean: false, pos: start}, nil
	}
	return token{typ: tokenIdent, text: text, pos: start}, nil
}
