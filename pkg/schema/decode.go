package schema

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// DecodePipeline parses a pipeline document. A document starting with '{' is
// read as JSON, anything else as YAML.
func DecodePipeline(data []byte) (*Pipeline, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, NewError(ErrCodeValidation, "empty pipeline document")
	}

	var p Pipeline
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, NewErrorf(ErrCodeValidation, "invalid pipeline JSON: %v", err).WithCause(err)
		}
		return &p, nil
	}
	if err := yaml.Unmarshal(trimmed, &p); err != nil {
		return nil, NewErrorf(ErrCodeValidation, "invalid pipeline YAML: %v", err).WithCause(err)
	}
	return &p, nil
}

// EncodePipelineYAML renders p as a YAML document.
func EncodePipelineYAML(p *Pipeline) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
