package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/drawsynth/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const itemsSchemaURL = "https://drawsynth.dev/schemas/items.json"

// itemsSchemaTemplate is the JSON Schema for a synthesizer's primitive list.
// The shape enum is filled in from schema.GeoKinds at construction.
const itemsSchemaTemplate = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://drawsynth.dev/schemas/items.json",
  "type": "array",
  "items": { "$ref": "#/$defs/item" },
  "$defs": {
    "point": {
      "type": "object",
      "required": ["x", "y"],
      "properties": {
        "x": { "type": "number" },
        "y": { "type": "number" }
      }
    },
    "item": {
      "type": "object",
      "required": ["shape"],
      "properties": {
        "shape": { "type": "string", "enum": [%s] },
        "x": { "type": "number" },
        "y": { "type": "number" },
        "w": { "type": "number", "minimum": 0 },
        "h": { "type": "number", "minimum": 0 },
        "label": { "type": "string" },
        "text": { "type": "string" },
        "color": { "type": "string" },
        "fillColor": { "type": "string" },
        "strokeWidth": { "type": "number", "minimum": 0 },
        "fontSize": { "type": "number", "minimum": 0 },
        "fontFamily": { "type": "string" },
        "start": { "$ref": "#/$defs/point" },
        "end": { "$ref": "#/$defs/point" },
        "fromLabel": { "type": "string" },
        "toLabel": { "type": "string" },
        "curvature": { "type": "number" },
        "arrowheadStart": { "type": "string" },
        "arrowheadEnd": { "type": "string" },
        "points": { "type": "array", "items": { "$ref": "#/$defs/point" } }
      },
      "allOf": [
        {
          "if": { "properties": { "shape": { "const": "text" } } },
          "then": { "required": ["text"] }
        },
        {
          "if": { "properties": { "shape": { "const": "line" } } },
          "then": { "required": ["points"], "properties": { "points": { "minItems": 2 } } }
        },
        {
          "if": { "properties": { "shape": { "const": "polygon" } } },
          "then": { "required": ["points"], "properties": { "points": { "minItems": 3 } } }
        },
        {
          "if": { "properties": { "shape": { "const": "arrow" } } },
          "then": {
            "anyOf": [
              { "required": ["start", "end"] },
              { "required": ["fromLabel", "toLabel"] }
            ]
          }
        }
      ]
    }
  }
}`

// PrimitiveSchemaValidator checks raw synthesizer output against the items
// schema before it is decoded into primitives. It is safe for concurrent use.
type PrimitiveSchemaValidator struct {
	itemsSchema *jsonschema.Schema
}

// NewPrimitiveSchemaValidator compiles the items schema.
func NewPrimitiveSchemaValidator() (*PrimitiveSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(itemsSchemaJSON()))
	if err != nil {
		return nil, fmt.Errorf("unmarshal items schema: %w", err)
	}
	if err := c.AddResource(itemsSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add items schema resource: %w", err)
	}
	compiled, err := c.Compile(itemsSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile items schema: %w", err)
	}
	return &PrimitiveSchemaValidator{itemsSchema: compiled}, nil
}

func itemsSchemaJSON() string {
	kinds := append([]schema.ShapeKind{}, schema.GeoKinds...)
	kinds = append(kinds, schema.ShapeText, schema.ShapeArrow, schema.ShapeLine, schema.ShapePolygon)
	quoted := make([]string, len(kinds))
	for i, k := range kinds {
		quoted[i] = `"` + string(k) + `"`
	}
	return fmt.Sprintf(itemsSchemaTemplate, strings.Join(quoted, ", "))
}

// ValidateItems validates a JSON-compatible value (typically the decoded
// "items" array) against the items schema.
func (v *PrimitiveSchemaValidator) ValidateItems(items any) error {
	doc, err := toJSONValue(items)
	if err != nil {
		return schema.NewError(schema.ErrCodeSchemaViolation, "failed to serialize items").WithCause(err)
	}
	if err := v.itemsSchema.Validate(doc); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// ValidateRaw validates raw JSON bytes against the items schema.
func (v *PrimitiveSchemaValidator) ValidateRaw(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return schema.NewError(schema.ErrCodeMalformedOutput, "items are not valid JSON").WithCause(err)
	}
	if err := v.itemsSchema.Validate(doc); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON so numbers become
// json.Number, as the jsonschema library expects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toSchemaError converts a jsonschema.ValidationError into a schema.Error
// listing every leaf violation with its instance location.
func toSchemaError(err error) *schema.Error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeSchemaViolation, err.Error())
	}

	violations := collectViolations(verr)
	switch len(violations) {
	case 0:
		return schema.NewError(schema.ErrCodeSchemaViolation, verr.Error())
	case 1:
		return schema.NewError(schema.ErrCodeSchemaViolation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	default:
		return schema.NewErrorf(schema.ErrCodeSchemaViolation, "items failed schema validation with %d errors", len(violations)).
			WithDetails(map[string]any{"violations": violations})
	}
}

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
