package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/42futures/firm/pkg/query"
)

func newQueryCommand() *Command {
	cmd := &Command{
		Name:        "query",
		Description: "Run a query pipeline against the workspace and print the result",
		Flags:       pflag.NewFlagSet("query", pflag.ExitOnError),
		Run:         runQuery,
	}
	cmd.Flags.String("dir", ".", "workspace root directory")
	return cmd
}

func runQuery(args []string) error {
	flags := pflag.NewFlagSet("query", pflag.ExitOnError)
	dir := flags.String("dir", ".", "workspace root directory")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("usage: firmctl query --dir=<workspace> <query string>")
	}
	src := strings.Join(flags.Args(), " ")

	q, err := query.Parse(src)
	if err != nil {
		return err
	}

	g, err := loadGraph(*dir)
	if err != nil {
		return err
	}

	result, err := query.Execute(q, g)
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func printResult(r *query.Result) {
	switch {
	case r.Scalar != nil:
		fmt.Println(r.Scalar.String())
	case r.Rows != nil:
		for _, row := range r.Rows {
			parts := make([]string, len(row.Fields))
			for i, f := range row.Fields {
				parts[i] = fmt.Sprintf("%s=%s", f, row.Values[f].String())
			}
			fmt.Println(strings.Join(parts, " "))
		}
	default:
		for _, e := range r.Entities {
			fmt.Println(e.Full.String())
		}
	}
}
