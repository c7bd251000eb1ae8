// Command firmctl is the non-interactive CLI realizing spec.md §6's CLI
// surface: build, get, list, list_schemas, related, query, and source,
// each a subcommand dispatched through pkg/cli, grounded on the teacher's
// cmd/spoke-cli entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/42futures/firm/pkg/cli"
)

func main() {
	root := cli.NewRootCommand()

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
