package value

import (
	"strings"
	"testing"

	"github.com/42futures/firm/pkg/lex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceStream is the test double for TokenStream; pkg/dsl and pkg/query use
// their own buffered-token implementations, but ParseLiteral only needs
// Peek/Next so a flat slice suffices here.
type sliceStream struct {
	toks []lex.Token
	pos  int
}

func newSliceStream(t *testing.T, src string) *sliceStream {
	t.Helper()
	s := lex.NewScanner(strings.NewReader(src))
	var toks []lex.Token
	for {
		tok, err := s.Scan()
		require.NoError(t, err)
		if tok.Type == lex.TokenComment {
			continue
		}
		toks = append(toks, tok)
		if tok.Type == lex.TokenEOF {
			break
		}
	}
	return &sliceStream{toks: toks}
}

func (s *sliceStream) Peek() lex.Token {
	return s.toks[s.pos]
}

func (s *sliceStream) Next() lex.Token {
	tok := s.toks[s.pos]
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return tok
}

func TestParseLiteralScalars(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want FieldValue
	}{
		{"string", `"hello"`, String("hello")},
		{"integer", "42", Integer(42)},
		{"negative integer", "-7", Integer(-7)},
		{"float", "3.14", Float(3.14)},
		{"true", "true", Boolean(true)},
		{"false", "false", Boolean(false)},
		{"path", `path"a/b.txt"`, Path("a/b.txt")},
		{"enum", `enum"active"`, Enum("active")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLiteral(newSliceStream(t, tt.src))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseLiteralCurrency(t *testing.T) {
	got, err := ParseLiteral(newSliceStream(t, "100 USD"))
	require.NoError(t, err)
	c, ok := got.(Currency)
	require.True(t, ok)
	assert.Equal(t, "USD", c.Code)
}

func TestParseLiteralDate(t *testing.T) {
	got, err := ParseLiteral(newSliceStream(t, "2024-01-15"))
	require.NoError(t, err)
	dt, ok := got.(DateTime)
	require.True(t, ok)
	assert.Equal(t, PrecisionDate, dt.Precision)
}

func TestParseLiteralDateTimeWithOffset(t *testing.T) {
	got, err := ParseLiteral(newSliceStream(t, "2024-01-15 at 09:30 UTC+2"))
	require.NoError(t, err)
	dt, ok := got.(DateTime)
	require.True(t, ok)
	assert.Equal(t, PrecisionDateMinute, dt.Precision)
	assert.Equal(t, 7, dt.Instant.Hour())
}

func TestParseLiteralEntityRef(t *testing.T) {
	got, err := ParseLiteral(newSliceStream(t, "person.john"))
	require.NoError(t, err)
	ref, ok := got.(EntityRef)
	require.True(t, ok)
	assert.Equal(t, "person.john", ref.String())
}

func TestParseLiteralFieldRef(t *testing.T) {
	got, err := ParseLiteral(newSliceStream(t, "task.t1.assignee_ref"))
	require.NoError(t, err)
	ref, ok := got.(FieldRef)
	require.True(t, ok)
	assert.Equal(t, FieldId("assignee_ref"), ref.Field)
}

func TestParseLiteralList(t *testing.T) {
	got, err := ParseLiteral(newSliceStream(t, `[1, 2, 3]`))
	require.NoError(t, err)
	l, ok := got.(List)
	require.True(t, ok)
	assert.Equal(t, KindInteger, l.ItemKind)
	assert.Len(t, l.Items, 3)
}

func TestParseLiteralEmptyList(t *testing.T) {
	got, err := ParseLiteral(newSliceStream(t, `[]`))
	require.NoError(t, err)
	l, ok := got.(List)
	require.True(t, ok)
	assert.Empty(t, l.Items)
}

func TestParseLiteralMixedListErrors(t *testing.T) {
	_, err := ParseLiteral(newSliceStream(t, `[1, "x"]`))
	assert.Error(t, err)
}

func TestParseLiteralTrailingCommaAllowed(t *testing.T) {
	got, err := ParseLiteral(newSliceStream(t, `[1, 2,]`))
	require.NoError(t, err)
	l, ok := got.(List)
	require.True(t, ok)
	assert.Len(t, l.Items, 2)
}
