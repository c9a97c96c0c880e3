package processor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thisisjab/sieve/entity"
)

type JsonRecordProcessorConfig struct {
	Name string `yaml:"-"`
	// Columns holding JSON documents. When empty, every string value that
	// looks like a JSON object or array is decoded if it can be.
	Columns []string `yaml:"columns"`
}

// JsonRecordProcessor expands columns holding JSON text into structured values.
type JsonRecordProcessor struct {
	cfg JsonRecordProcessorConfig
}

// NewJsonRecordProcessor creates a new instance of JsonRecordProcessor.
func NewJsonRecordProcessor(cfg JsonRecordProcessorConfig) (*JsonRecordProcessor, error) {
	return &JsonRecordProcessor{cfg: cfg}, nil
}

func (p *JsonRecordProcessor) Name() string {
	return p.cfg.Name
}

// Process decodes the configured columns. A configured column that does not
// hold valid JSON is an error.
func (p *JsonRecordProcessor) Process(record entity.Record) (entity.Record, error) {
	out := record.Clone()

	if len(p.cfg.Columns) == 0 {
		for k, v := range out {
			text, ok := jsonText(v)
			if !ok || !looksLikeJSON(text) {
				continue
			}
			var decoded any
			if err := json.Unmarshal([]byte(text), &decoded); err == nil {
				out[k] = decoded
			}
		}
		return out, nil
	}

	for _, column := range p.cfg.Columns {
		v, ok := out[column]
		if !ok || v == nil {
			continue
		}

		text, ok := jsonText(v)
		if !ok {
			return nil, fmt.Errorf("column `%s` is not text", column)
		}

		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil, fmt.Errorf("cannot decode column `%s`: %w", column, err)
		}
		out[column] = decoded
	}

	return out, nil
}

func jsonText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return "", false
	}
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
