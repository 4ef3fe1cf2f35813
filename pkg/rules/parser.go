package rules

// maxExprLength bounds expression size; operator-authored rules are
// capped at the store layer too, this is a second line of defense.
const maxExprLength = 5000

// Parse parses a condition expression into its AST.
// An empty or whitespace-only expression parses to nil, which evaluates
// to true (a rule without a condition always matches).
func Parse(expression string) (*Expr, error) {
	p := &parser{lex: &lexer{input: expression}}
	if len(expression) > maxExprLength {
		return nil, p.lex.errorf(0, "expression exceeds %d characters", maxExprLength)
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.typ == tokenEOF {
		return nil, nil
	}

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokenEOF {
		return nil, p.lex.errorf(p.cur.pos, "unexpected token %q after expression", p.cur.text)
	}
	return expr, nil
}

type parser struct {
	lex *lexer
	cur token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

// parseOr := parseAnd ("or" parseAnd)*
func (p *parser) parseOr() (*Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokenOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Expr{Type: ExprOr, Children: []*Expr{left, right}}
	}
	return left, nil
}

// parseAnd := parseUnary ("and" parseUnary)*
func (p *parser) parseAnd() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokenAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Expr{Type: ExprAnd, Children: []*Expr{left, right}}
	}
	return left, nil
}

// parseUnary := "not" parseUnary | parsePrimary
func (p *parser) parseUnary() (*Expr, error) {
	if p.cur.typ == tokenNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{Type: ExprNot, Children: []*Expr{child}}, nil
	}
	return p.parsePrimary()
}

// parsePrimary := "(" parseOr ")" | comparison
func (p *parser) parsePrimary() (*Expr, error) {
	if p.cur.typ == tokenLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokenRParen {
			return nil, p.lex.errorf(p.cur.pos, "expected ')', got %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return p.parseComparison()
}

// parseComparison := ident op literal | ident ["not"] "in" list
func (p *parser) parseComparison() (*Expr, error) {
	if p.cur.typ != tokenIdent {
		return nil, p.lex.errorf(p.cur.pos, "expected field name, got %q", p.cur.text)
	}
	field := p.cur.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.cur.typ {
	case tokenOperator:
		op := Operator(p.cur.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &Expr{Type: ExprComparison, Field: field, Op: op, Value: value}, nil

	case tokenIn:
		if err := p.advance(); err != nil {
			return nil, err
		}
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &Expr{Type: ExprComparison, Field: field, Op: OpIn, Value: list}, nil

	case tokenNot:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.typ != tokenIn {
			return nil, p.lex.errorf(p.cur.pos, "expected 'in' after 'not', got %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &Expr{Type: ExprComparison, Field: field, Op: OpNotIn, Value: list}, nil

	default:
		return nil, p.lex.errorf(p.cur.pos, "expected operator after field %q, got %q", field, p.cur.text)
	}
}

func (p *parser) parseLiteral() (any, error) {
	switch p.cur.typ {
	case tokenString:
		v := p.cur.text
		return v, p.advance()
	case tokenNumber:
		v := p.cur.num
		return v, p.advance()
	case tokenBool:
		v := p.cur.boolean
		return v, p.advance()
	default:
		return nil, p.lex.errorf(p.cur.pos, "expected literal, got %q", p.cur.text)
	}
}

func (p *parser) parseList() ([]any, error) {
	if p.cur.typ != tokenLBracket {
		return nil, p.lex.errorf(p.cur.pos, "expected '[', got %q", p.cur.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var items []any
	for p.cur.typ != tokenRBracket {
		item, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.cur.typ == tokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.cur.typ != tokenRBracket {
			return nil, p.lex.errorf(p.cur.pos, "expected ',' or ']', got %q", p.cur.text)
		}
	}
	return items, p.advance()
}
