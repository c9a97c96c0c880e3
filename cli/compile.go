package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thisisjab/sieve/criteria/parser"
	"github.com/thisisjab/sieve/fieldmap"
	"github.com/thisisjab/sieve/querier"
	"github.com/thisisjab/sieve/query"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Fields  string
	Dialect string
	Table   string
	Columns []string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <criteria>",
		Short: "Compile text criteria to SQL",
		Long: `Compile text criteria to SQL without running it.

Example:
  sieve compile --dialect postgres --table users 'limit=10 : status=active & age>18'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Fields, "fields", "", "path to a YAML field map")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", string(querier.DialectPostgres), "SQL dialect (clickhouse|postgres|sqlite3|duckdb)")
	cmd.Flags().StringVar(&opts.Table, "table", "records", "table to select from")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "columns to select (default all)")

	return cmd
}

func runCompile(opts *CompileOptions, input string, cmd *cobra.Command) error {
	dialect := querier.Dialect(opts.Dialect)
	if !dialect.Valid() {
		return fmt.Errorf("unsupported dialect %q", opts.Dialect)
	}

	fields := fieldmap.Map{}
	if opts.Fields != "" {
		m, err := fieldmap.Load(opts.Fields)
		if err != nil {
			return fmt.Errorf("cannot load field map: %w", err)
		}
		fields = m
	}

	c, err := parser.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid criteria: %s", strings.Join(describeError(err), "; "))
	}

	b := querier.NewSQLQueryBuilder(querier.SQLOptions{Dialect: dialect})
	res, err := b.Compile(query.New(opts.Table, opts.Columns...), fields, c)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		args := res.Args
		if args == nil {
			args = []any{}
		}
		return writeJSON(out, map[string]any{"sql": res.Query, "args": args, "dql": res.DQL})
	}

	fmt.Fprintln(out, res.Query)
	for i, arg := range res.Args {
		fmt.Fprintf(out, "  %d: %#v\n", i+1, arg)
	}

	return nil
}
