package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/42futures/firm/pkg/lex"
	"github.com/42futures/firm/pkg/value"
)

// Parser turns one query string's token stream into a Query AST. It
// implements value.TokenStream the same way pkg/dsl.Parser does, so atom
// values reuse value.ParseLiteral directly (spec.md §4.6).
type Parser struct {
	toks []lex.Token
	pos  int
}

// Parse parses src as a single query. On any grammar fault it returns a
// *ParseError; the query grammar does not attempt statement-level
// recovery the way pkg/dsl does (spec.md §7).
func Parse(src string) (*Query, error) {
	scanner := lex.NewScanner(strings.NewReader(src))
	var toks []lex.Token
	for {
		tok, err := scanner.Scan()
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Message: err.Error()}
		}
		if tok.Type == lex.TokenComment {
			continue
		}
		toks = append(toks, tok)
		if tok.Type == lex.TokenEOF {
			break
		}
	}

	p := &Parser{toks: toks}
	return p.parseQuery()
}

// Peek and Next implement value.TokenStream.
func (p *Parser) Peek() lex.Token {
	return p.toks[p.pos]
}

func (p *Parser) Next() lex.Token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) errorf(pos lex.Position, format string, args ...interface{}) error {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) expectIdent(text string) (lex.Token, error) {
	tok := p.Peek()
	if tok.Type == lex.TokenIdent && tok.Text == text {
		return p.Next(), nil
	}
	return tok, p.errorf(tok.Pos, "expected %q, found %q", text, tok.Text)
}

func (p *Parser) expectPunct(text string) (lex.Token, error) {
	tok := p.Peek()
	if tok.Type == lex.TokenPunct && tok.Text == text {
		return p.Next(), nil
	}
	return tok, p.errorf(tok.Pos, "expected %q, found %q", text, tok.Text)
}

func (p *Parser) parseQuery() (*Query, error) {
	if _, err := p.expectIdent("from"); err != nil {
		return nil, err
	}
	selector, err := p.parseSelector()
	if err != nil {
		return nil, err
	}

	q := &Query{Selector: selector}

	for p.Peek().Type == lex.TokenPunct && p.Peek().Text == "|" {
		p.Next()
		tok := p.Peek()
		if tok.Type != lex.TokenIdent {
			return nil, p.errorf(tok.Pos, "expected an operator or aggregation after '|', found %q", tok.Text)
		}

		switch tok.Text {
		case "where":
			p.Next()
			cond, err := p.parseCondition()
			if err != nil {
				return nil, err
			}
			q.Ops = append(q.Ops, &WhereOp{Condition: cond})
		case "related":
			op, err := p.parseRelated()
			if err != nil {
				return nil, err
			}
			q.Ops = append(q.Ops, op)
		case "order":
			op, err := p.parseOrder()
			if err != nil {
				return nil, err
			}
			q.Ops = append(q.Ops, op)
		case "limit":
			op, err := p.parseLimit()
			if err != nil {
				return nil, err
			}
			q.Ops = append(q.Ops, op)
		case "select", "count", "sum", "average", "median":
			agg, err := p.parseAggregation()
			if err != nil {
				return nil, err
			}
			if p.Peek().Type != lex.TokenEOF {
				tail := p.Peek()
				return nil, p.errorf(tail.Pos, "aggregation must be the final pipeline stage, found %q after it", tail.Text)
			}
			q.Aggregation = agg
		default:
			return nil, p.errorf(tok.Pos, "unknown pipeline stage %q", tok.Text)
		}
	}

	if tok := p.Peek(); tok.Type != lex.TokenEOF {
		return nil, p.errorf(tok.Pos, "unexpected %q after query", tok.Text)
	}

	return q, nil
}

func (p *Parser) parseSelector() (Selector, error) {
	tok := p.Peek()
	if tok.Type == lex.TokenPunct && tok.Text == "*" {
		p.Next()
		return Selector{All: true}, nil
	}
	if tok.Type != lex.TokenIdent {
		return Selector{}, p.errorf(tok.Pos, "expected '*' or an entity type after \"from\", found %q", tok.Text)
	}
	p.Next()
	t, err := value.NewEntityType(tok.Text)
	if err != nil {
		return Selector{}, p.errorf(tok.Pos, "invalid entity type %q: %s", tok.Text, err)
	}
	return Selector{Type: t}, nil
}

// parseField handles `IDENT | @id | @type`.
func (p *Parser) parseField() (Field, error) {
	tok := p.Peek()
	if tok.Type == lex.TokenPunct && tok.Text == "@" {
		p.Next()
		nameTok := p.Peek()
		if nameTok.Type != lex.TokenIdent {
			return Field{}, p.errorf(nameTok.Pos, "expected \"id\" or \"type\" after '@', found %q", nameTok.Text)
		}
		p.Next()
		switch nameTok.Text {
		case "id":
			return Field{Kind: FieldKindId}, nil
		case "type":
			return Field{Kind: FieldKindType}, nil
		default:
			return Field{}, p.errorf(nameTok.Pos, "unknown special field \"@%s\", expected \"@id\" or \"@type\"", nameTok.Text)
		}
	}
	if tok.Type != lex.TokenIdent {
		return Field{}, p.errorf(tok.Pos, "expected a field name, found %q", tok.Text)
	}
	p.Next()
	name, err := value.NewFieldId(tok.Text)
	if err != nil {
		return Field{}, p.errorf(tok.Pos, "invalid field name %q: %s", tok.Text, err)
	}
	return Field{Kind: FieldKindPlain, Name: name}, nil
}

func (p *Parser) parseCondition() (*Condition, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	cond := &Condition{Atoms: []Atom{first}}

	for {
		tok := p.Peek()
		if !(tok.Type == lex.TokenIdent && (tok.Text == "and" || tok.Text == "or")) {
			return cond, nil
		}
		op := LogicalAnd
		if tok.Text == "or" {
			op = LogicalOr
		}
		if cond.Op != LogicalNone && cond.Op != op {
			return nil, p.errorf(tok.Pos, "cannot mix \"and\" and \"or\" in one where clause")
		}
		cond.Op = op
		p.Next()
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		cond.Atoms = append(cond.Atoms, atom)
	}
}

func (p *Parser) parseAtom() (Atom, error) {
	field, err := p.parseField()
	if err != nil {
		return Atom{}, err
	}
	cmp, err := p.parseCmpOp()
	if err != nil {
		return Atom{}, err
	}

	valTok := p.Peek()
	if !value.IsLiteralStart(valTok) {
		return Atom{}, p.errorf(valTok.Pos, "expected a value, found %q", valTok.Text)
	}
	val, err := value.ParseLiteral(p)
	if err != nil {
		return Atom{}, p.errorf(valTok.Pos, "invalid value: %s", err)
	}
	if cmp == CmpIn {
		if _, ok := val.(value.List); !ok {
			return Atom{}, p.errorf(valTok.Pos, "\"in\" requires a list literal on the right-hand side")
		}
	}

	return Atom{Field: field, Cmp: cmp, Value: val}, nil
}

func (p *Parser) parseCmpOp() (CmpOp, error) {
	tok := p.Peek()
	switch {
	case tok.Type == lex.TokenPunct:
		switch tok.Text {
		case "==":
			p.Next()
			return CmpEq, nil
		case "!=":
			p.Next()
			return CmpNeq, nil
		case ">":
			p.Next()
			return CmpGt, nil
		case "<":
			p.Next()
			return CmpLt, nil
		case ">=":
			p.Next()
			return CmpGte, nil
		case "<=":
			p.Next()
			return CmpLte, nil
		}
	case tok.Type == lex.TokenIdent:
		switch tok.Text {
		case "contains":
			p.Next()
			return CmpContains, nil
		case "startswith":
			p.Next()
			return CmpStartsWith, nil
		case "endswith":
			p.Next()
			return CmpEndsWith, nil
		case "in":
			p.Next()
			return CmpIn, nil
		}
	}
	return 0, p.errorf(tok.Pos, "expected a comparison operator, found %q", tok.Text)
}

// parseRelated handles `related [(INT)] [IDENT]`.
func (p *Parser) parseRelated() (*RelatedOp, error) {
	p.Next() // consume "related"
	op := &RelatedOp{K: 1}

	if tok := p.Peek(); tok.Type == lex.TokenPunct && tok.Text == "(" {
		p.Next()
		numTok := p.Peek()
		if numTok.Type != lex.TokenInteger {
			return nil, p.errorf(numTok.Pos, "expected an integer hop count, found %q", numTok.Text)
		}
		p.Next()
		n, err := strconv.Atoi(numTok.Text)
		if err != nil || n < 0 {
			return nil, p.errorf(numTok.Pos, "invalid hop count %q", numTok.Text)
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		op.K = n
	}

	if tok := p.Peek(); tok.Type == lex.TokenIdent {
		p.Next()
		t, err := value.NewEntityType(tok.Text)
		if err != nil {
			return nil, p.errorf(tok.Pos, "invalid entity type %q: %s", tok.Text, err)
		}
		op.Type = &t
	}

	return op, nil
}

func (p *Parser) parseOrder() (*OrderOp, error) {
	p.Next() // consume "order"
	field, err := p.parseField()
	if err != nil {
		return nil, err
	}
	op := &OrderOp{Field: field}
	if tok := p.Peek(); tok.Type == lex.TokenIdent && (tok.Text == "asc" || tok.Text == "desc") {
		p.Next()
		op.Desc = tok.Text == "desc"
	}
	return op, nil
}

func (p *Parser) parseLimit() (*LimitOp, error) {
	p.Next() // consume "limit"
	numTok := p.Peek()
	if numTok.Type != lex.TokenInteger {
		return nil, p.errorf(numTok.Pos, "expected an integer after \"limit\", found %q", numTok.Text)
	}
	p.Next()
	n, err := strconv.Atoi(numTok.Text)
	if err != nil || n < 0 {
		return nil, p.errorf(numTok.Pos, "invalid limit %q", numTok.Text)
	}
	return &LimitOp{N: n}, nil
}

func (p *Parser) parseAggregation() (Aggregation, error) {
	tok := p.Next()
	switch tok.Text {
	case "select":
		first, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields := []Field{first}
		for p.Peek().Type == lex.TokenPunct && p.Peek().Text == "," {
			p.Next()
			f, err := p.parseField()
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		return SelectAgg{Fields: fields}, nil

	case "count":
		if p.fieldFollows() {
			f, err := p.parseField()
			if err != nil {
				return nil, err
			}
			return CountAgg{Field: &f}, nil
		}
		return CountAgg{}, nil

	case "sum":
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		return SumAgg{Field: f}, nil

	case "average":
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		return AverageAgg{Field: f}, nil

	case "median":
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		return MedianAgg{Field: f}, nil

	default:
		return nil, p.errorf(tok.Pos, "unknown aggregation %q", tok.Text)
	}
}

// fieldFollows reports whether the current token could begin a Field,
// used by `count`'s optional field argument.
func (p *Parser) fieldFollows() bool {
	tok := p.Peek()
	return tok.Type == lex.TokenIdent || (tok.Type == lex.TokenPunct && tok.Text == "@")
}
