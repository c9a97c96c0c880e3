package criteria

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/thisisjab/sieve/fault"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is a serialization format for criteria documents.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgPack Format = "msgpack"
)

// FormatFromContentType maps an HTTP content type to a Format.
// Unknown or empty content types default to JSON.
func FormatFromContentType(contentType string) Format {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return FormatYAML
	case "application/msgpack", "application/x-msgpack", "application/vnd.msgpack":
		return FormatMsgPack
	default:
		return FormatJSON
	}
}

// document is the wire shape shared by every format:
//
//	{
//	  "filters": [
//	    {"field": "status", "op": "=", "value": "active"},
//	    {"or": [{"field": "age", "op": ">", "value": 18}, {"field": "vip", "op": "=", "value": true}]}
//	  ],
//	  "orders": [{"field": "created_at", "direction": "DESC"}],
//	  "offset": 0,
//	  "limit": 10
//	}
type document struct {
	Filters []filterDocument `json:"filters,omitempty" yaml:"filters,omitempty" msgpack:"filters,omitempty"`
	Orders  []orderDocument  `json:"orders,omitempty" yaml:"orders,omitempty" msgpack:"orders,omitempty"`
	Offset  *int             `json:"offset,omitempty" yaml:"offset,omitempty" msgpack:"offset,omitempty"`
	Limit   *int             `json:"limit,omitempty" yaml:"limit,omitempty" msgpack:"limit,omitempty"`
}

type filterDocument struct {
	Field string           `json:"field,omitempty" yaml:"field,omitempty" msgpack:"field,omitempty"`
	Op    string           `json:"op,omitempty" yaml:"op,omitempty" msgpack:"op,omitempty"`
	Value any              `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value,omitempty"`
	And   []filterDocument `json:"and,omitempty" yaml:"and,omitempty" msgpack:"and,omitempty"`
	Or    []filterDocument `json:"or,omitempty" yaml:"or,omitempty" msgpack:"or,omitempty"`
}

type orderDocument struct {
	Field     string `json:"field" yaml:"field" msgpack:"field"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty" msgpack:"direction,omitempty"`
}

// Decode parses a criteria document. Malformed documents are reported as
// fault.BadInputCode faults.
func Decode(data []byte, format Format) (Criteria, error) {
	var doc document

	switch format {
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Criteria{}, fault.New(fault.BadInputCode, "Body contains badly-formed JSON.").WithOriginal(err)
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return Criteria{}, fault.New(fault.BadInputCode, "Body must only contain a single JSON value.")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return Criteria{}, fault.New(fault.BadInputCode, "Body contains badly-formed YAML.").WithOriginal(err)
		}
	case FormatMsgPack:
		if err := msgpack.Unmarshal(data, &doc); err != nil {
			return Criteria{}, fault.New(fault.BadInputCode, "Body contains badly-formed MessagePack.").WithOriginal(err)
		}
	default:
		return Criteria{}, fault.New(fault.UnsupportedCode, fmt.Sprintf("Unsupported format %q.", format))
	}

	return doc.toCriteria()
}

// Encode serializes c in the given format.
func Encode(c Criteria, format Format) ([]byte, error) {
	doc, err := fromCriteria(c)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON, "":
		return json.Marshal(doc)
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatMsgPack:
		return msgpack.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func (d document) toCriteria() (Criteria, error) {
	c := Criteria{Offset: d.Offset, Limit: d.Limit}

	for i, fd := range d.Filters {
		f, err := fd.toFilter(fmt.Sprintf("filters[%d]", i))
		if err != nil {
			return Criteria{}, err
		}
		c.Filters = append(c.Filters, f)
	}

	for _, od := range d.Orders {
		dir := Direction(strings.ToUpper(od.Direction))
		if od.Direction == "" {
			dir = Asc
		}
		c.Orders = append(c.Orders, Order{Field: od.Field, Direction: dir})
	}

	return c, nil
}

func (fd filterDocument) toFilter(path string) (Filter, error) {
	isCondition := fd.Field != "" || fd.Op != ""

	kinds := 0
	for _, present := range []bool{isCondition, fd.And != nil, fd.Or != nil} {
		if present {
			kinds++
		}
	}

	if kinds != 1 {
		return nil, fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{
			path: []string{"Filter must be exactly one of a condition, an `and` group or an `or` group."},
		})
	}

	switch {
	case fd.And != nil:
		children, err := toFilters(path+".and", fd.And)
		if err != nil {
			return nil, err
		}
		return And{Filters: children}, nil
	case fd.Or != nil:
		children, err := toFilters(path+".or", fd.Or)
		if err != nil {
			return nil, err
		}
		return Or{Filters: children}, nil
	default:
		return Condition{Field: fd.Field, Operator: Operator(strings.ToUpper(fd.Op)), Value: normalizeValue(fd.Value)}, nil
	}
}

func toFilters(path string, docs []filterDocument) ([]Filter, error) {
	filters := make([]Filter, 0, len(docs))
	for i, d := range docs {
		f, err := d.toFilter(fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func fromCriteria(c Criteria) (document, error) {
	doc := document{Offset: c.Offset, Limit: c.Limit}

	for _, f := range c.Filters {
		fd, err := fromFilter(f)
		if err != nil {
			return document{}, err
		}
		doc.Filters = append(doc.Filters, fd)
	}

	for _, o := range c.Orders {
		doc.Orders = append(doc.Orders, orderDocument{Field: o.Field, Direction: string(o.Direction)})
	}

	return doc, nil
}

func fromFilter(f Filter) (filterDocument, error) {
	switch n := f.(type) {
	case Condition:
		return filterDocument{Field: n.Field, Op: string(n.Operator), Value: n.Value}, nil
	case *Condition:
		if n == nil {
			break
		}
		return fromFilter(*n)
	case And:
		children, err := fromFilters(n.Filters)
		return filterDocument{And: children}, err
	case *And:
		if n == nil {
			break
		}
		return fromFilter(*n)
	case Or:
		children, err := fromFilters(n.Filters)
		return filterDocument{Or: children}, err
	case *Or:
		if n == nil {
			break
		}
		return fromFilter(*n)
	}

	return filterDocument{}, fmt.Errorf("unknown filter type: %T", f)
}

func fromFilters(filters []Filter) ([]filterDocument, error) {
	docs := make([]filterDocument, 0, len(filters))
	for _, f := range filters {
		d, err := fromFilter(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// normalizeValue converts decoder-specific scalar types to the plain Go
// types database drivers accept: json.Number becomes int64 or float64 and
// every sized integer becomes int64.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case float32:
		return float64(n)
	case []any:
		out := make([]any, len(n))
		for i := range n {
			out[i] = normalizeValue(n[i])
		}
		return out
	default:
		return v
	}
}
