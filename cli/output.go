package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/thisisjab/sieve/fault"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeError flattens fault field errors into one line per field.
func describeError(err error) []string {
	var f fault.Fault
	if !errors.As(err, &f) {
		return []string{err.Error()}
	}

	md, ok := f.Metadata().(fault.FieldErrorsMetadata)
	if !ok || len(md) == 0 {
		return []string{f.Error()}
	}

	var lines []string
	for _, field := range slices.Sorted(maps.Keys(md)) {
		for _, msg := range md[field] {
			lines = append(lines, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return lines
}
