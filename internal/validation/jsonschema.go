package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/nfstudio/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	pipelineSchemaURL   = "https://nfstudio.dev/schemas/pipeline.json"
	suggestionSchemaURL = "https://nfstudio.dev/schemas/suggestion.json"
)

// pipelineSchemaJSON is the JSON Schema for pipeline documents.
// Embedded as a constant to avoid filesystem dependencies.
const pipelineSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://nfstudio.dev/schemas/pipeline.json",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": { "type": "string", "minLength": 1 },
    "description": { "type": "string" },
    "params": {
      "type": "array",
      "items": { "$ref": "#/$defs/param" }
    },
    "processes": {
      "type": "array",
      "items": { "$ref": "#/$defs/process" }
    },
    "workflow": { "type": "string" },
    "config": { "$ref": "#/$defs/config" }
  },
  "additionalProperties": false,
  "$defs": {
    "identifier": {
      "type": "string",
      "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"
    },
    "param": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "$ref": "#/$defs/identifier" },
        "type": { "enum": ["string", "integer", "number", "boolean", "path"] },
        "default": {},
        "description": { "type": "string" },
        "rule": { "type": "string" },
        "rule_engine": { "enum": ["expr", "cel"] }
      },
      "additionalProperties": false
    },
    "channel": {
      "type": "object",
      "properties": {
        "kind": { "enum": ["val", "path", "tuple", "env", "stdout"] },
        "name": { "type": "string" },
        "emit": { "$ref": "#/$defs/identifier" }
      },
      "additionalProperties": false
    },
    "process": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "$ref": "#/$defs/identifier" },
        "description": { "type": "string" },
        "label": { "type": "string" },
        "container": { "type": "string" },
        "cpus": { "type": "integer", "minimum": 0 },
        "memory": { "type": "string", "pattern": "^[0-9]+(\\.[0-9]+)? ?(B|KB|MB|GB|TB)$" },
        "time": { "type": "string", "pattern": "^[0-9]+(\\.[0-9]+)? ?(ms|s|m|h|d)$" },
        "publish_dir": { "type": "string" },
        "inputs": { "type": "array", "items": { "$ref": "#/$defs/channel" } },
        "outputs": { "type": "array", "items": { "$ref": "#/$defs/channel" } },
        "script": { "type": "string" }
      },
      "additionalProperties": false
    },
    "config": {
      "type": "object",
      "properties": {
        "executor": { "type": "string" },
        "docker": { "type": "boolean" },
        "singularity": { "type": "boolean" },
        "profiles": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "additionalProperties": { "type": "string" }
          }
        },
        "manifest": {
          "type": "object",
          "properties": {
            "author": { "type": "string" },
            "version": { "type": "string" },
            "description": { "type": "string" }
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    }
  }
}`

// suggestionSchemaJSON accepts a partial pipeline: every field optional, at
// least one of them present. Item shapes reuse the pipeline schema.
const suggestionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://nfstudio.dev/schemas/suggestion.json",
  "type": "object",
  "minProperties": 1,
  "properties": {
    "name": { "type": "string" },
    "description": { "type": "string" },
    "params": {
      "type": "array",
      "items": { "$ref": "pipeline.json#/$defs/param" }
    },
    "processes": {
      "type": "array",
      "items": { "$ref": "pipeline.json#/$defs/process" }
    },
    "workflow": { "type": "string" },
    "explanation": { "type": "string" }
  },
  "additionalProperties": false
}`

// JSONSchemaValidator validates pipeline documents and AI suggestion payloads
// against JSON Schema Draft 2020-12. It is safe for concurrent use.
type JSONSchemaValidator struct {
	pipelineSchema   *jsonschema.Schema
	suggestionSchema *jsonschema.Schema
}

// NewJSONSchemaValidator compiles both embedded schemas.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for url, src := range map[string]string{
		pipelineSchemaURL:   pipelineSchemaJSON,
		suggestionSchemaURL: suggestionSchemaJSON,
	} {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}

	pipelineSchema, err := c.Compile(pipelineSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile pipeline schema: %w", err)
	}
	suggestionSchema, err := c.Compile(suggestionSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile suggestion schema: %w", err)
	}

	return &JSONSchemaValidator{
		pipelineSchema:   pipelineSchema,
		suggestionSchema: suggestionSchema,
	}, nil
}

// ValidatePipeline validates a Pipeline against the pipeline JSON Schema.
func (v *JSONSchemaValidator) ValidatePipeline(p *schema.Pipeline) error {
	if p == nil {
		return schema.NewError(schema.ErrCodeValidation, "pipeline is nil")
	}

	doc, err := toJSONValue(p)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize pipeline").WithCause(err)
	}

	if err := v.pipelineSchema.Validate(doc); err != nil {
		return toNFError(err)
	}
	return nil
}

// ValidateSuggestion validates a raw suggestion payload (decoded JSON) before
// it is decoded into a Pipeline, so unknown fields are reported.
func (v *JSONSchemaValidator) ValidateSuggestion(payload any) error {
	doc, err := toJSONValue(payload)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize suggestion").WithCause(err)
	}
	if err := v.suggestionSchema.Validate(doc); err != nil {
		return toNFError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toNFError converts a jsonschema.ValidationError into an NFError listing
// every leaf violation with its instance location.
func toNFError(err error) *schema.NFError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error messages.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
