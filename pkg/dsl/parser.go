package dsl

import (
	"strings"

	"github.com/42futures/firm/pkg/lex"
	"github.com/42futures/firm/pkg/value"
)

// Parser turns one source file's token stream into a File AST, collecting
// ParseErrors with statement-boundary recovery rather than failing on the
// first fault (spec.md §4.2, §7).
type Parser struct {
	file string
	toks []lex.Token
	pos  int
	errs *ParseErrors
}

// Parse scans src (already BOM/CRLF-normalized by the caller, typically
// pkg/workspace) and parses it into a File. file is used only to annotate
// error spans; pass "" for in-memory/test sources.
func Parse(file, src string) (*File, *ParseErrors) {
	scanner := lex.NewScanner(strings.NewReader(src))
	var toks []lex.Token
	for {
		tok, err := scanner.Scan()
		if err != nil {
			toks = append(toks, lex.Token{Type: lex.TokenError, Text: err.Error(), Pos: tok.Pos, End: tok.Pos})
			continue
		}
		if tok.Type == lex.TokenComment {
			continue
		}
		toks = append(toks, tok)
		if tok.Type == lex.TokenEOF {
			break
		}
	}

	p := &Parser{file: file, toks: toks, errs: &ParseErrors{}}
	f := p.parseFile()
	return f, p.errs
}

// Peek and Next implement value.TokenStream, letting the Parser itself
// feed value.ParseLiteral directly.
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

func (p *Parser) errorf(pos lex.Position, format string, args ...interface{}) {
	p.errs.add(p.file, pos, format, args...)
}

func (p *Parser) expectPunct(text string) (lex.Token, bool) {
	tok := p.Peek()
	if tok.Type == lex.TokenPunct && tok.Text == text {
		return p.Next(), true
	}
	p.errorf(tok.Pos, "expected %q, found %q", text, tok.Text)
	return tok, false
}

func (p *Parser) parseFile() *File {
	f := &File{}
	if len(p.toks) > 0 {
		f.Pos = p.toks[0].Pos
	}

	for p.Peek().Type != lex.TokenEOF {
		tok := p.Peek()
		switch {
		case tok.Type == lex.TokenIdent && tok.Text == "schema":
			if schema := p.parseSchema(); schema != nil {
				f.Schemas = append(f.Schemas, schema)
			}
		case tok.Type == lex.TokenIdent:
			if entity := p.parseEntity(); entity != nil {
				f.Entities = append(f.Entities, entity)
			}
		default:
			p.errorf(tok.Pos, "expected an entity or schema block, found %q", tok.Text)
			p.recoverToTopLevel()
		}
	}

	f.EndPos = p.Peek().Pos
	return f
}

// recoverToTopLevel is used when a top-level token isn't the start of a
// block at all (so there's no open brace to skip past): it discards
// tokens up to and including the next top-level "}", or EOF.
func (p *Parser) recoverToTopLevel() {
	for {
		tok := p.Peek()
		if tok.Type == lex.TokenEOF {
			return
		}
		if tok.Type == lex.TokenPunct && tok.Text == "}" {
			p.Next()
			return
		}
		p.Next()
	}
}

// skipBlock is called with the opening "{" already consumed; it discards
// tokens, tracking brace depth, through the matching "}".
func (p *Parser) skipBlock() {
	depth := 1
	for depth > 0 {
		tok := p.Next()
		if tok.Type == lex.TokenEOF {
			return
		}
		if tok.Type == lex.TokenPunct {
			switch tok.Text {
			case "{":
				depth++
			case "}":
				depth--
			}
		}
	}
}

func (p *Parser) parseEntity() *EntityNode {
	start := p.Peek().Pos
	typeTok := p.Next()
	idTok := p.Peek()
	if idTok.Type != lex.TokenIdent {
		p.errorf(idTok.Pos, "expected an entity id after type %q, found %q", typeTok.Text, idTok.Text)
		p.recoverToTopLevel()
		return nil
	}
	p.Next()

	if _, ok := p.expectPunct("{"); !ok {
		p.recoverToTopLevel()
		return nil
	}

	n := &EntityNode{Type: typeTok.Text, ID: idTok.Text, Pos: start}
	for {
		tok := p.Peek()
		if tok.Type == lex.TokenPunct && tok.Text == "}" {
			p.Next()
			n.EndPos = tok.End
			return n
		}
		if tok.Type == lex.TokenEOF {
			p.errorf(tok.Pos, "unterminated entity block %s.%s", typeTok.Text, idTok.Text)
			n.EndPos = tok.Pos
			return n
		}
		field := p.parseField()
		if field == nil {
			p.skipBlock()
			return nil
		}
		n.Fields = append(n.Fields, field)
	}
}

func (p *Parser) parseSchema() *SchemaNode {
	start := p.Peek().Pos
	p.Next() // consume "schema"

	typeTok := p.Peek()
	if typeTok.Type != lex.TokenIdent {
		p.errorf(typeTok.Pos, "expected a type name after \"schema\", found %q", typeTok.Text)
		p.recoverToTopLevel()
		return nil
	}
	p.Next()

	if _, ok := p.expectPunct("{"); !ok {
		p.recoverToTopLevel()
		return nil
	}

	n := &SchemaNode{Type: typeTok.Text, Pos: start}
	for {
		tok := p.Peek()
		if tok.Type == lex.TokenPunct && tok.Text == "}" {
			p.Next()
			n.EndPos = tok.End
			return n
		}
		if tok.Type == lex.TokenEOF {
			p.errorf(tok.Pos, "unterminated schema block %s", typeTok.Text)
			n.EndPos = tok.Pos
			return n
		}
		if !(tok.Type == lex.TokenIdent && tok.Text == "field") {
			p.errorf(tok.Pos, "expected \"field\" in schema %s, found %q", typeTok.Text, tok.Text)
			p.skipBlock()
			n.EndPos = p.toks[p.pos-1].End
			return n
		}
		block := p.parseFieldSpecBlock()
		if block == nil {
			p.skipBlock()
			n.EndPos = p.toks[p.pos-1].End
			return n
		}
		n.FieldSpecs = append(n.FieldSpecs, block)
	}
}

func (p *Parser) parseFieldSpecBlock() *FieldSpecBlockNode {
	start := p.Peek().Pos
	p.Next() // consume "field"

	if _, ok := p.expectPunct("{"); !ok {
		return nil
	}

	n := &FieldSpecBlockNode{Pos: start}
	for {
		tok := p.Peek()
		if tok.Type == lex.TokenPunct && tok.Text == "}" {
			p.Next()
			n.EndPos = tok.End
			return n
		}
		if tok.Type == lex.TokenEOF {
			p.errorf(tok.Pos, "unterminated field spec block")
			n.EndPos = tok.Pos
			return n
		}
		field := p.parseField()
		if field == nil {
			return nil
		}
		n.Fields = append(n.Fields, field)
	}
}

func (p *Parser) parseField() *FieldNode {
	nameTok := p.Peek()
	if nameTok.Type != lex.TokenIdent {
		p.errorf(nameTok.Pos, "expected a field name, found %q", nameTok.Text)
		return nil
	}
	p.Next()

	if _, ok := p.expectPunct("="); !ok {
		return nil
	}

	if valTok := p.Peek(); !value.IsLiteralStart(valTok) {
		p.errorf(valTok.Pos, "expected a value for field %q, found %q", nameTok.Text, valTok.Text)
		return nil
	}

	val, err := value.ParseLiteral(p)
	if err != nil {
		p.errorf(nameTok.Pos, "invalid value for field %q: %s", nameTok.Text, err)
		return nil
	}

	return &FieldNode{Name: nameTok.Text, Value: val, Pos: nameTok.Pos, EndPos: p.toks[p.pos-1].End}
}
