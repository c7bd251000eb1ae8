package cli

import (
	"fmt"

	"github.com/spf13/pflag"
)

func newGetCommand() *Command {
	cmd := &Command{
		Name:        "get",
		Description: "Print one entity's resolved fields by type.id",
		Flags:       pflag.NewFlagSet("get", pflag.ExitOnError),
		Run:         runGet,
	}
	cmd.Flags.String("dir", ".", "workspace root directory")
	return cmd
}

func runGet(args []string) error {
	flags := pflag.NewFlagSet("get", pflag.ExitOnError)
	dir := flags.String("dir", ".", "workspace root directory")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: firmctl get --dir=<workspace> <type.id>")
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

	fmt.Println(full.String())
	for _, fieldId := range sortedFieldIds(e) {
		fmt.Printf("  %s = %s\n", fieldId, e.Fields[fieldId].String())
	}
	return nil
}
