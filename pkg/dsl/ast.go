// Package dsl implements the recursive-descent parser for .firm source
// files: entity blocks, schema blocks, and the field/value grammar of
// spec.md §4.2, producing either a File AST or a collected ParseErrors.
package dsl

import (
	"github.com/42futures/firm/pkg/lex"
	"github.com/42futures/firm/pkg/value"
)

// NodeType identifies the production a Node was parsed from.
type NodeType int

const (
	NodeUnknown NodeType = iota
	NodeFile
	NodeEntity
	NodeSchema
	NodeFieldSpecBlock
	NodeField
)

// Node is the common interface every AST production implements.
type Node interface {
	NodeType() NodeType
	Position() lex.Position
	End() lex.Position
}

// File is the root of one parsed source file: its top-level entities and
// schemas in source order.
type File struct {
	Entities []*EntityNode
	Schemas  []*SchemaNode
	Pos      lex.Position
	EndPos   lex.Position
}

func (n *File) NodeType() NodeType   { return NodeFile }
func (n *File) Position() lex.Position { return n.Pos }
func (n *File) End() lex.Position      { return n.EndPos }

// EntityNode is one `type id { field* }` block.
type EntityNode struct {
	Type   string
	ID     string
	Fields []*FieldNode
	Pos    lex.Position
	EndPos lex.Position
}

func (n *EntityNode) NodeType() NodeType     { return NodeEntity }
func (n *EntityNode) Position() lex.Position { return n.Pos }
func (n *EntityNode) End() lex.Position      { return n.EndPos }

// FullId renders the entity's graph key, pre-validation.
func (n *EntityNode) FullId() string { return n.Type + "." + n.ID }

// SchemaNode is one `schema type { field_spec_block* }` block.
type SchemaNode struct {
	Type        string
	FieldSpecs  []*FieldSpecBlockNode
	Pos         lex.Position
	EndPos      lex.Position
}

func (n *SchemaNode) NodeType() NodeType     { return NodeSchema }
func (n *SchemaNode) Position() lex.Position { return n.Pos }
func (n *SchemaNode) End() lex.Position      { return n.EndPos }

// FieldSpecBlockNode is one `field { name = ..., required = ..., ... }`
// declaration inside a schema block. It is parsed as a generic key/value
// bag (same FieldNode shape as an entity's fields) rather than a fixed
// struct, since the set of recognized spec keys (name, type, required,
// allowed_values, ...) is a pkg/schema concern, not a grammar concern.
type FieldSpecBlockNode struct {
	Fields []*FieldNode
	Pos    lex.Position
	EndPos lex.Position
}

func (n *FieldSpecBlockNode) NodeType() NodeType     { return NodeFieldSpecBlock }
func (n *FieldSpecBlockNode) Position() lex.Position { return n.Pos }
func (n *FieldSpecBlockNode) End() lex.Position      { return n.EndPos }

// FieldNode is one `name = value` pair, inside either an entity block or a
// schema's field_spec_block.
type FieldNode struct {
	Name   string
	Value  value.FieldValue
	Pos    lex.Position
	EndPos lex.Position
}

func (n *FieldNode) NodeType() NodeType     { return NodeField }
func (n *FieldNode) Position() lex.Position { return n.Pos }
func (n *FieldNode) End() lex.Position      { return n.EndPos }
