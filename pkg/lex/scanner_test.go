package lex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := NewScanner(strings.NewReader(src))
	var toks []Token
	for {
		tok, err := s.Scan()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return toks
}

func TestScanIdentifiersAndPunct(t *testing.T) {
	toks := scanAll(t, `person john { name = "John" }`)
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	assert.Equal(t, []TokenType{
		TokenIdent, TokenIdent, TokenPunct, TokenIdent, TokenPunct, TokenString, TokenPunct, TokenEOF,
	}, types)
	assert.Equal(t, "John", toks[5].Text)
}

func TestScanNumbers(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantTyp TokenType
		wantTxt string
	}{
		{"integer", "42", TokenInteger, "42"},
		{"negative integer", "-17", TokenInteger, "-17"},
		{"float", "3.14", TokenFloat, "3.14"},
		{"negative float", "-0.5", TokenFloat, "-0.5"},
		{"positive signed", "+5", TokenInteger, "+5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := scanAll(t, tt.src)
			require.Len(t, toks, 2)
			assert.Equal(t, tt.wantTyp, toks[0].Type)
			assert.Equal(t, tt.wantTxt, toks[0].Text)
		})
	}
}

func TestScanDateDisambiguatesFromNumber(t *testing.T) {
	toks := scanAll(t, "2024-01-15")
	require.Len(t, toks, 2)
	assert.Equal(t, TokenDate, toks[0].Type)
	assert.Equal(t, "2024-01-15", toks[0].Text)
}

func TestScanDateRejectsTrailingDigit(t *testing.T) {
	toks := scanAll(t, "2024-01-150")
	require.NotEmpty(t, toks)
	assert.Equal(t, TokenInteger, toks[0].Type)
}

func TestScanDateFollowedByTime(t *testing.T) {
	toks := scanAll(t, "2024-01-15 at 09:30 UTC+2")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenDate, TokenIdent, TokenInteger, TokenPunct, TokenInteger, TokenIdent, TokenInteger, TokenEOF,
	}, types)
	assert.Equal(t, "+2", toks[6].Text)
}

func TestScanTripleString(t *testing.T) {
	toks := scanAll(t, "\"\"\"\n  hello\n  world\n\"\"\"")
	require.Len(t, toks, 2)
	assert.Equal(t, TokenTripleString, toks[0].Type)
	assert.Equal(t, "hello\nworld", toks[0].Text)
}

func TestScanStringEscapes(t *testing.T) {
	toks := scanAll(t, `"line one\nline two\t\"quoted\""`)
	require.Len(t, toks, 2)
	assert.Equal(t, "line one\nline two\t\"quoted\"", toks[0].Text)
}

func TestScanComments(t *testing.T) {
	toks := scanAll(t, "// a comment\n/* block */ 1")
	require.Len(t, toks, 3)
	assert.Equal(t, TokenComment, toks[0].Type)
	assert.Equal(t, TokenComment, toks[1].Type)
	assert.Equal(t, TokenInteger, toks[2].Type)
}

func TestScanUnterminatedStringErrors(t *testing.T) {
	s := NewScanner(strings.NewReader(`"unterminated`))
	_, err := s.Scan()
	assert.Error(t, err)
}

func TestScanUnexpectedCharacterErrors(t *testing.T) {
	s := NewScanner(strings.NewReader("$"))
	_, err := s.Scan()
	assert.Error(t, err)
}

func TestNormalizeStripsBOMAndCRLF(t *testing.T) {
	got := Normalize([]byte("\xEF\xBB\xBFa\r\nb\rc\n"))
	assert.Equal(t, "a\nb\nc\n", got)
}

func TestScanComparisonOperators(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"==", "=="},
		{"!=", "!="},
		{">=", ">="},
		{"<=", "<="},
		{">", ">"},
		{"<", "<"},
		{"=", "="},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks := scanAll(t, tt.src)
			require.Len(t, toks, 2)
			assert.Equal(t, TokenPunct, toks[0].Type)
			assert.Equal(t, tt.want, toks[0].Text)
		})
	}
}

func TestScanComparisonOperatorsAdjacentToIdentifiers(t *testing.T) {
	toks := scanAll(t, "priority>=5")
	require.Len(t, toks, 3)
	assert.Equal(t, TokenIdent, toks[0].Type)
	assert.Equal(t, "priority", toks[0].Text)
	assert.Equal(t, TokenPunct, toks[1].Type)
	assert.Equal(t, ">=", toks[1].Text)
	assert.Equal(t, TokenInteger, toks[2].Type)
	assert.Equal(t, "5", toks[2].Text)

	toks = scanAll(t, `status!="x"`)
	require.Len(t, toks, 3)
	assert.Equal(t, "status", toks[0].Text)
	assert.Equal(t, "!=", toks[1].Text)
	assert.Equal(t, "x", toks[2].Text)
}

func TestScanAtFieldReferences(t *testing.T) {
	toks := scanAll(t, "@id == @type")
	var types []TokenType
	var texts []string
	for _, tok := range toks {
		types = append(types, tok.Type)
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []TokenType{
		TokenPunct, TokenIdent, TokenPunct, TokenPunct, TokenIdent, TokenEOF,
	}, types)
	assert.Equal(t, "@", texts[0])
	assert.Equal(t, "id", texts[1])
	assert.Equal(t, "==", texts[2])
	assert.Equal(t, "@", texts[3])
	assert.Equal(t, "type", texts[4])
}

func TestScanBareExclamationErrors(t *testing.T) {
	s := NewScanner(strings.NewReader("!"))
	_, err := s.Scan()
	assert.Error(t, err)
}

func TestScanFieldAssignmentStillUsesSingleEquals(t *testing.T) {
	toks := scanAll(t, `name = "John"`)
	require.Len(t, toks, 3)
	assert.Equal(t, TokenPunct, toks[1].Type)
	assert.Equal(t, "=", toks[1].Text)
}

func TestScanStarSelector(t *testing.T) {
	toks := scanAll(t, "from *")
	require.Len(t, toks, 3)
	assert.Equal(t, TokenIdent, toks[0].Type)
	assert.Equal(t, TokenPunct, toks[1].Type)
	assert.Equal(t, "*", toks[1].Text)
}

func TestReferenceLiteralScansAsDottedIdents(t *testing.T) {
	toks := scanAll(t, "person.john.name")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenIdent, TokenPunct, TokenIdent, TokenPunct, TokenIdent, TokenEOF,
	}, types)
}
