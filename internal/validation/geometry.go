package validation

import (
	"fmt"
	"strconv"

	"github.com/rendis/drawsynth/pkg/schema"

	"github.com/rendis/drawsynth/internal/geometry"
)

// GeometryValidator checks a primitive set for overlap, canvas bounds,
// arrow connectivity and spacing. It holds no mutable state and is safe for
// concurrent use.
type GeometryValidator struct {
	cfg Config
}

// NewGeometryValidator creates a validator. Zero config fields take defaults.
func NewGeometryValidator(cfg Config) *GeometryValidator {
	return &GeometryValidator{cfg: cfg.WithDefaults()}
}

// Config returns the effective configuration.
func (v *GeometryValidator) Config() Config { return v.cfg }

// Validate runs every check in a fixed order and merges the results.
// Freeform diagrams are accepted unconditionally.
func (v *GeometryValidator) Validate(prims []schema.Primitive, dt schema.DiagramType) *schema.ValidationResult {
	result := schema.NewValidationResult(dt)
	if dt == schema.DiagramFreeform {
		return result
	}

	shapes := collectShapes(prims)

	// Stage 1: overlap.
	result.Merge(validateOverlap(shapes, v.cfg, dt))

	// Stage 2: canvas bounds.
	result.Merge(validateBounds(shapes, v.cfg, dt))

	// Stage 3: arrow connectivity.
	result.Merge(validateConnectivity(prims, shapes, v.cfg, dt))

	// Stage 4: spacing and alignment (warnings only).
	result.Merge(validateSpacing(shapes, dt))

	return result
}

// placed is a boxed primitive together with its input index.
type placed struct {
	index int
	prim  schema.Primitive
	box   geometry.Box
	name  string
}

// connectable reports whether arrows may attach to the shape.
func (p placed) connectable() bool {
	switch p.prim.(type) {
	case *schema.GeoShape, *schema.Polygon:
		return true
	}
	return false
}

func collectShapes(prims []schema.Primitive) []placed {
	var shapes []placed
	for i, p := range prims {
		box, ok := geometry.BoxOf(p)
		if !ok {
			continue
		}
		shapes = append(shapes, placed{index: i, prim: p, box: box, name: describe(p)})
	}
	return shapes
}

// describe names a primitive for issue messages: its quoted label when it has
// one, otherwise its kind and origin.
func describe(p schema.Primitive) string {
	switch v := p.(type) {
	case *schema.GeoShape:
		if v.Label != "" {
			return strconv.Quote(v.Label)
		}
	case *schema.Text:
		return "text " + strconv.Quote(v.Text)
	}
	o := p.Origin()
	return fmt.Sprintf("%s at (%s, %s)", p.Kind(), num(o.X), num(o.Y))
}

// num formats a coordinate without trailing zeros.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
