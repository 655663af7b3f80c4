package validation

import "github.com/rendis/drawsynth/pkg/schema"

// Validator checks a candidate primitive set before it is rendered.
// Implementations must be pure: identical input yields an identical result.
type Validator interface {
	Validate(prims []schema.Primitive, dt schema.DiagramType) *schema.ValidationResult
}
