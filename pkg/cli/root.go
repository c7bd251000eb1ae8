// Package cli implements firmctl's dispatch tree: a hand-rolled
// Command/Subcommands tree grounded on the teacher's pkg/cli package of
// the same name, with flag parsing done by spf13/pflag instead of the
// teacher's stdlib flag.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Command is one node of the dispatch tree: either a leaf with a Run
// function, or a branch with Subcommands.
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *pflag.FlagSet
}

// NewRootCommand builds the firmctl command tree over the operations
// spec.md §6's CLI surface names: build, get, list, list_schemas,
// related, query, source.
func NewRootCommand() *Command {
	root := &Command{
		Name:        "firmctl",
		Description: "firmctl - entity graph builder and query tool for .firm workspaces",
		Subcommands: make(map[string]*Command),
		Flags:       pflag.NewFlagSet("firmctl", pflag.ExitOnError),
	}

	root.Subcommands["build"] = newBuildCommand()
	root.Subcommands["get"] = newGetCommand()
	root.Subcommands["list"] = newListCommand()
	root.Subcommands["list_schemas"] = newListSchemasCommand()
	root.Subcommands["related"] = newRelatedCommand()
	root.Subcommands["query"] = newQueryCommand()
	root.Subcommands["source"] = newSourceCommand()
	root.Subcommands["serve"] = newServeCommand()

	return root
}

// Execute dispatches os.Args to the matching subcommand.
func (c *Command) Execute() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return c.usage()
	}

	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	subcmd, ok := c.Subcommands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return subcmd.Run(args[1:])
}

func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for name, cmd := range c.Subcommands {
		fmt.Printf("  %-15s %s\n", name, cmd.Description)
	}
	return nil
}
