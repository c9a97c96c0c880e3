package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thisisjab/sieve/criteria"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a criteria document",
		Long: `Validate a criteria document. The format follows the file extension:
.json, .yaml/.yml or .msgpack. JSON documents are also checked against the
document schema.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func formatFromPath(path string) criteria.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return criteria.FormatYAML
	case ".msgpack", ".mp":
		return criteria.FormatMsgPack
	default:
		return criteria.FormatJSON
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read criteria document: %w", err)
	}

	err = validateDocument(data, formatFromPath(path))

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		res := map[string]any{"valid": err == nil}
		if err != nil {
			res["errors"] = describeError(err)
		}
		if werr := writeJSON(out, res); werr != nil {
			return werr
		}
	} else if err == nil {
		fmt.Fprintf(out, "%s: valid\n", path)
	} else {
		fmt.Fprintf(out, "%s: invalid\n", path)
		for _, line := range describeError(err) {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	if err != nil {
		return fmt.Errorf("%s is not a valid criteria document", path)
	}

	return nil
}

func validateDocument(data []byte, format criteria.Format) error {
	if format == criteria.FormatJSON {
		if err := criteria.ValidateDocument(data); err != nil {
			return err
		}
	}

	c, err := criteria.Decode(data, format)
	if err != nil {
		return err
	}

	return c.Validate()
}
