// Package lex provides the rune-level scanner shared by the DSL grammar
// (pkg/dsl) and the query grammar (pkg/query). Both grammars tokenize the
// same literal surface (strings, triple-quoted strings, numbers,
// identifiers, punctuation, comments) and diverge only in how they
// assemble tokens into a grammar.
package lex

// TokenType identifies the lexical class of a Token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenIdent
	TokenString       // "..." or '...'
	TokenTripleString // """...""" with common leading whitespace stripped
	TokenInteger
	TokenFloat
	TokenDate // YYYY-MM-DD, disambiguated from a negative/subtracted number at scan time
	TokenPunct
	TokenComment
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "ERROR"
	case TokenIdent:
		return "IDENT"
	case TokenString:
		return "STRING"
	case TokenTripleString:
		return "TRIPLE_STRING"
	case TokenInteger:
		return "INTEGER"
	case TokenFloat:
		return "FLOAT"
	case TokenDate:
		return "DATE"
	case TokenPunct:
		return "PUNCT"
	case TokenComment:
		return "COMMENT"
	default:
		return "UNKNOWN"
	}
}

// Position is a byte-offset-addressable source location, carried through
// to ParseError so hosts can map a failure back into the original file.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Token is a single lexical unit. Text is the decoded value for strings
// (escapes already resolved, quotes stripped) and the literal spelling
// for everything else.
type Token struct {
	Type TokenType
	Text string
	Pos  Position
	End  Position
}
