package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/42futures/firm/pkg/value"
)

func newListCommand() *Command {
	cmd := &Command{
		Name:        "list",
		Description: "List every entity, or every entity of one type",
		Flags:       pflag.NewFlagSet("list", pflag.ExitOnError),
		Run:         runList,
	}
	cmd.Flags.String("dir", ".", "workspace root directory")
	cmd.Flags.String("type", "", "restrict to entities of this type")
	return cmd
}

func runList(args []string) error {
	flags := pflag.NewFlagSet("list", pflag.ExitOnError)
	dir := flags.String("dir", ".", "workspace root directory")
	entityType := flags.String("type", "", "restrict to entities of this type")
	if err := flags.Parse(args); err != nil {
		return err
	}

	g, err := loadGraph(*dir)
	if err != nil {
		return err
	}

	var entities []*value.FullId
	if *entityType == "" {
		for _, e := range g.ListAll() {
			full := e.Full
			entities = append(entities, &full)
		}
	} else {
		t, err := value.NewEntityType(*entityType)
		if err != nil {
			return err
		}
		for _, e := range g.ListByType(t) {
			full := e.Full
			entities = append(entities, &full)
		}
	}

	for _, full := range entities {
		fmt.Println(full.String())
	}
	return nil
}
