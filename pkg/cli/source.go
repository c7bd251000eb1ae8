package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/42futures/firm/pkg/graph"
	"github.com/42futures/firm/pkg/value"
)

func newSourceCommand() *Command {
	cmd := &Command{
		Name:        "source",
		Description: "Print one entity's canonical .firm source form",
		Flags:       pflag.NewFlagSet("source", pflag.ExitOnError),
		Run:         runSource,
	}
	cmd.Flags.String("dir", ".", "workspace root directory")
	return cmd
}

func runSource(args []string) error {
	flags := pflag.NewFlagSet("source", pflag.ExitOnError)
	dir := flags.String("dir", ".", "workspace root directory")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: firmctl source --dir=<workspace> <type.id>")
	}

	full, err := parseFullId(flags.Arg(0))
	if err != nil {
		return err
	}

	g, err := loadGraph(*dir)
	if err != nil {
		return err
	}

	e, ok := g.Get(full)
	if !ok {
		return fmt.Errorf("entity %s not found", full.String())
	}

	fmt.Print(renderEntitySource(e))
	return nil
}

// renderEntitySource reconstructs an entity's canonical .firm block from
// its resolved fields. Since the graph discards source file/position
// information after Build (spec.md §4.5's load path is one-way, not a
// round-trippable AST), this renders the entity's current field values
// back through each value kind's own literal syntax rather than
// reproducing the exact original text byte-for-byte.
func renderEntitySource(e *graph.Entity) string {
	s := fmt.Sprintf("%s %s {\n", string(e.Full.Type), string(e.Full.ID))
	for _, fieldId := range sortedFieldIds(e) {
		s += fmt.Sprintf("  %s = %s\n", fieldId, renderLiteral(e.Fields[fieldId]))
	}
	s += "}\n"
	return s
}

func renderLiteral(v value.FieldValue) string {
	switch vv := v.(type) {
	case value.String:
		return fmt.Sprintf("%q", string(vv))
	case value.Path:
		return fmt.Sprintf("path%q", string(vv))
	case value.Enum:
		return fmt.Sprintf("enum%q", string(vv))
	case value.List:
		items := make([]string, len(vv.Items))
		for i, item := range vv.Items {
			items[i] = renderLiteral(item)
		}
		s := "["
		for i, item := range items {
			if i > 0 {
				s += ", "
			}
			s += item
		}
		return s + "]"
	default:
		return v.String()
	}
}
