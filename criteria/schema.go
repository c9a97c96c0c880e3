package criteria

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"github.com/thisisjab/sieve/fault"
)

// documentSchema describes the JSON document accepted by Decode.
const documentSchema = `
import "list"

#Operator: "=" | "!=" | ">" | ">=" | "<" | "<=" | "IN" | "NOT IN" | "STARTS_WITH" | "ENDS_WITH" | "CONTAINS"

#Condition: {
	field:  string & !=""
	op:     #Operator
	value?: _
}

#And: {and: [...#Filter] & list.MinItems(1)}
#Or: {or: [...#Filter] & list.MinItems(1)}

#Filter: #Condition | #And | #Or

#Order: {
	field:      string & !=""
	direction?: "ASC" | "DESC" | "asc" | "desc"
}

#Criteria: {
	filters?: [...#Filter]
	orders?: [...#Order]
	offset?: int & >=0
	limit?:  int & >=0
}
`

var (
	schemaOnce  sync.Once
	schemaCtx   *cue.Context
	schemaValue cue.Value
	schemaErr   error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(documentSchema)
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("cannot compile criteria schema: %w", err)
			return
		}
		schemaValue = v.LookupPath(cue.ParsePath("#Criteria"))
	})

	return schemaCtx, schemaValue, schemaErr
}

// ValidateDocument checks a JSON criteria document against the schema.
// Violations are returned as a fault.BadInputCode fault listing the
// offending paths.
func ValidateDocument(data []byte) error {
	ctx, schema, err := loadSchema()
	if err != nil {
		return err
	}

	doc := ctx.CompileBytes(data)
	if err := doc.Err(); err != nil {
		return fault.New(fault.BadInputCode, "Body contains badly-formed JSON.").WithOriginal(err)
	}

	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		md := fault.FieldErrorsMetadata{}
		for _, e := range errors.Errors(err) {
			path := "document"
			if p := e.Path(); len(p) > 0 {
				path = strings.Join(p, ".")
			}
			format, args := e.Msg()
			md.Add(path, fmt.Sprintf(format, args...))
		}
		return fault.New(fault.BadInputCode, "").WithMetadata(md)
	}

	return nil
}
