package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thisisjab/sieve/criteria"
	"github.com/thisisjab/sieve/criteria/parser"
)

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <criteria>",
		Short: "Print text criteria as a criteria document",
		Long: `Print text criteria as a criteria document: JSON with --format json,
YAML otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parser.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid criteria: %s", strings.Join(describeError(err), "; "))
			}

			format := criteria.FormatYAML
			if rootOpts.Format == "json" {
				format = criteria.FormatJSON
			}

			data, err := criteria.Encode(c, format)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			out.Write(data) //nolint:errcheck
			if format == criteria.FormatJSON {
				fmt.Fprintln(out)
			}

			return nil
		},
	}
}
