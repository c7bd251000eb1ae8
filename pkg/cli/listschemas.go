package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/pflag"
)

func newListSchemasCommand() *Command {
	cmd := &Command{
		Name:        "list_schemas",
		Description: "List declared schemas and their field specs",
		Flags:       pflag.NewFlagSet("list_schemas", pflag.ExitOnError),
		Run:         runListSchemas,
	}
	cmd.Flags.String("dir", ".", "workspace root directory")
	return cmd
}

func runListSchemas(args []string) error {
	flags := pflag.NewFlagSet("list_schemas", pflag.ExitOnError)
	dir := flags.String("dir", ".", "workspace root directory")
	if err := flags.Parse(args); err != nil {
		return err
	}

	g, err := loadGraph(*dir)
	if err != nil {
		return err
	}

	reg := g.Schemas()
	types := reg.Types()
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		s, _ := reg.Get(t)
		fmt.Println(string(t))
		for _, f := range s.Fields {
			req := ""
			if f.Required {
				req = " required"
			}
			fmt.Printf("  %s: %s%s\n", f.FieldId, f.DeclaredType.String(), req)
			if len(f.AllowedValues) > 0 {
				fmt.Printf("    allowed: %v\n", f.AllowedValues)
			}
		}
	}
	return nil
}
