package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/42futures/firm/pkg/lex"
)

// TokenStream is the minimal lookahead pkg/dsl's and pkg/query's parsers
// both provide over their own buffered token lists, so ParseLiteral can be
// shared between the two grammars rather than reimplemented per-parser
// (spec.md §4.6: "value literals reuse the DSL literal forms").
type TokenStream interface {
	Peek() lex.Token
	Next() lex.Token
}

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// IsLiteralStart reports whether tok could begin a value literal, without
// consuming anything. Callers that parse "name = value" fields use this
// to decide whether to call ParseLiteral at all — ParseLiteral always
// consumes at least one token, so probing first keeps a missing value
// (e.g. "name = }") from eating the token that was meant to close the
// enclosing block.
func IsLiteralStart(tok lex.Token) bool {
	switch tok.Type {
	case lex.TokenString, lex.TokenTripleString, lex.TokenInteger, lex.TokenFloat, lex.TokenDate:
		return true
	case lex.TokenPunct:
		return tok.Text == "["
	case lex.TokenIdent:
		return true
	default:
		return false
	}
}

// ParseLiteral consumes one value literal from ts and returns the
// FieldValue it denotes, per the grammar in spec.md §4.2. It assumes the
// caller has already decided a literal starts here (i.e. the current token
// isn't a keyword like "schema" or "field" that begins something else).
func ParseLiteral(ts TokenStream) (FieldValue, error) {
	tok := ts.Next()

	switch tok.Type {
	case lex.TokenString, lex.TokenTripleString:
		return String(tok.Text), nil

	case lex.TokenInteger:
		return parseNumberOrCurrency(ts, tok.Text, false)

	case lex.TokenFloat:
		return parseNumberOrCurrency(ts, tok.Text, true)

	case lex.TokenDate:
		return parseDateOrDateTime(ts, tok.Text)

	case lex.TokenPunct:
		if tok.Text == "[" {
			return parseList(ts)
		}
		return nil, fmt.Errorf("unexpected %q at %d:%d, expected a value", tok.Text, tok.Pos.Line, tok.Pos.Column)

	case lex.TokenIdent:
		switch tok.Text {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		case "enum":
			return parseQuoted(ts, "enum")
		case "path":
			return parseQuoted(ts, "path")
		default:
			return parseReference(ts, tok.Text)
		}

	default:
		return nil, fmt.Errorf("unexpected %s at %d:%d, expected a value", tok.Type, tok.Pos.Line, tok.Pos.Column)
	}
}

// parseNumberOrCurrency handles the ambiguity between a bare number and a
// currency literal ("<number> <3-UPPER>"): it peeks one token past the
// number and only consumes it if it looks like an ISO-4217 code.
func parseNumberOrCurrency(ts TokenStream, numText string, isFloat bool) (FieldValue, error) {
	if next := ts.Peek(); next.Type == lex.TokenIdent && currencyCodeRe.MatchString(next.Text) {
		ts.Next()
		return NewCurrency(numText, next.Text)
	}
	if isFloat {
		f, err := strconv.ParseFloat(numText, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q: %w", numText, err)
		}
		return Float(f), nil
	}
	n, err := strconv.ParseInt(numText, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer literal %q: %w", numText, err)
	}
	return Integer(n), nil
}

// parseDateOrDateTime handles "YYYY-MM-DD" optionally followed by
// "at HH:MM" and an optional "UTC" or "UTC[+-]<int>" suffix.
func parseDateOrDateTime(ts TokenStream, dateText string) (FieldValue, error) {
	year, month, day, err := splitDate(dateText)
	if err != nil {
		return nil, err
	}

	next := ts.Peek()
	if !(next.Type == lex.TokenIdent && next.Text == "at") {
		return NewDate(year, month, day)
	}
	ts.Next() // consume "at"

	hourTok := ts.Next()
	if hourTok.Type != lex.TokenInteger {
		return nil, fmt.Errorf("expected hour after \"at\" at %d:%d", hourTok.Pos.Line, hourTok.Pos.Column)
	}
	colon := ts.Next()
	if colon.Type != lex.TokenPunct || colon.Text != ":" {
		return nil, fmt.Errorf("expected ':' in time literal at %d:%d", colon.Pos.Line, colon.Pos.Column)
	}
	minuteTok := ts.Next()
	if minuteTok.Type != lex.TokenInteger {
		return nil, fmt.Errorf("expected minute after ':' at %d:%d", minuteTok.Pos.Line, minuteTok.Pos.Column)
	}
	hour, err := strconv.Atoi(hourTok.Text)
	if err != nil {
		return nil, fmt.Errorf("invalid hour %q", hourTok.Text)
	}
	minute, err := strconv.Atoi(minuteTok.Text)
	if err != nil {
		return nil, fmt.Errorf("invalid minute %q", minuteTok.Text)
	}

	offset := Offset{Kind: OffsetLocal}
	if utcTok := ts.Peek(); utcTok.Type == lex.TokenIdent && utcTok.Text == "UTC" {
		ts.Next()
		offset.Kind = OffsetFixedUTC
		if signed := ts.Peek(); signed.Type == lex.TokenInteger && (strings.HasPrefix(signed.Text, "+") || strings.HasPrefix(signed.Text, "-")) {
			ts.Next()
			hours, err := strconv.Atoi(signed.Text)
			if err != nil {
				return nil, fmt.Errorf("invalid UTC offset %q", signed.Text)
			}
			offset.Hours = hours
		}
	}

	return NewDateTime(year, month, day, hour, minute, offset)
}

func splitDate(s string) (year, month, day int, err error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return 0, 0, 0, fmt.Errorf("malformed date literal %q", s)
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[5:7])
	d, err3 := strconv.Atoi(s[8:10])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, fmt.Errorf("malformed date literal %q", s)
	}
	return y, m, d, nil
}

// parseQuoted handles the `path"…"` and `enum"…"` forms: keyword is
// already consumed, so only the following string token remains.
func parseQuoted(ts TokenStream, keyword string) (FieldValue, error) {
	tok := ts.Next()
	if tok.Type != lex.TokenString && tok.Type != lex.TokenTripleString {
		return nil, fmt.Errorf("expected a quoted string after %q at %d:%d", keyword, tok.Pos.Line, tok.Pos.Column)
	}
	if keyword == "path" {
		return Path(tok.Text), nil
	}
	return Enum(tok.Text), nil
}

// parseReference handles "IDENT . IDENT (. IDENT)?": firstIdent is the
// entity type; a second dotted component is the id; a third is a field.
func parseReference(ts TokenStream, firstIdent string) (FieldValue, error) {
	dot := ts.Next()
	if dot.Type != lex.TokenPunct || dot.Text != "." {
		return nil, fmt.Errorf("unexpected identifier %q at %d:%d, expected a reference (type.id)", firstIdent, dot.Pos.Line, dot.Pos.Column)
	}
	idTok := ts.Next()
	if idTok.Type != lex.TokenIdent {
		return nil, fmt.Errorf("expected an id after '.' at %d:%d", idTok.Pos.Line, idTok.Pos.Column)
	}

	entityType, err := NewEntityType(firstIdent)
	if err != nil {
		return nil, err
	}
	entityId, err := NewEntityId(idTok.Text)
	if err != nil {
		return nil, err
	}
	full := FullId{Type: entityType, ID: entityId}

	if next := ts.Peek(); next.Type == lex.TokenPunct && next.Text == "." {
		ts.Next()
		fieldTok := ts.Next()
		if fieldTok.Type != lex.TokenIdent {
			return nil, fmt.Errorf("expected a field name after '.' at %d:%d", fieldTok.Pos.Line, fieldTok.Pos.Column)
		}
		fieldId, err := NewFieldId(fieldTok.Text)
		if err != nil {
			return nil, err
		}
		return FieldRef{Full: full, Field: fieldId}, nil
	}

	return EntityRef{Full: full}, nil
}

// parseList handles "[" value ("," value)* ","? "]"; the opening "[" has
// already been consumed by the caller.
func parseList(ts TokenStream) (FieldValue, error) {
	var items []FieldValue

	if next := ts.Peek(); next.Type == lex.TokenPunct && next.Text == "]" {
		ts.Next()
		return NewList(items)
	}

	for {
		item, err := ParseLiteral(ts)
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		sep := ts.Next()
		if sep.Type != lex.TokenPunct {
			return nil, fmt.Errorf("unexpected %s at %d:%d in list, expected ',' or ']'", sep.Type, sep.Pos.Line, sep.Pos.Column)
		}
		switch sep.Text {
		case ",":
			if next := ts.Peek(); next.Type == lex.TokenPunct && next.Text == "]" {
				ts.Next()
				return NewList(items)
			}
			continue
		case "]":
			return NewList(items)
		default:
			return nil, fmt.Errorf("unexpected %q at %d:%d in list, expected ',' or ']'", sep.Text, sep.Pos.Line, sep.Pos.Column)
		}
	}
}
