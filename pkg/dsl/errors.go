package dsl

import (
	"fmt"
	"strings"

	"github.com/42futures/firm/pkg/lex"
)

// ParseError is a single lexical or grammatical fault, with a span into
// the source it came from. File is empty when the parser was invoked
// directly on a text blob rather than through pkg/workspace.
type ParseError struct {
	File    string
	Pos     lex.Position
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// ParseErrors collects every ParseError recovered from in one file, per
// spec.md §7 ("the parser collects multiple ParseErrors per file when
// recovery at statement boundaries is possible").
type ParseErrors struct {
	Errors []*ParseError
}

func (e *ParseErrors) Error() string {
	lines := make([]string, len(e.Errors))
	for i, pe := range e.Errors {
		lines[i] = pe.Error()
	}
	return strings.Join(lines, "\n")
}

func (e *ParseErrors) add(file string, pos lex.Position, format string, args ...interface{}) {
	e.Errors = append(e.Errors, &ParseError{File: file, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (e *ParseErrors) HasErrors() bool { return len(e.Errors) > 0 }
