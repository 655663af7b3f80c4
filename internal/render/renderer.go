// Package render converts accepted primitives into canvas shape records and
// resolves label-addressed arrows into arrow bindings.
package render

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rendis/drawsynth/pkg/schema"
)

// Output is the canvas-ready result of one Render call.
type Output struct {
	Shapes   []schema.RenderedShape `json:"shapes"`
	Bindings []schema.Binding       `json:"bindings"`
}

// Counts tallies rendered shapes by type tag.
func (o *Output) Counts() map[string]int {
	counts := make(map[string]int)
	for _, s := range o.Shapes {
		counts[s.Type]++
	}
	return counts
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithNamespace fixes the uuid namespace ids are derived from, making output
// fully deterministic.
func WithNamespace(ns uuid.UUID) Option {
	return func(r *Renderer) { r.namespace = ns }
}

// Renderer is stateless between calls; each Render call builds its own Session.
// A single Renderer may be used from multiple goroutines.
type Renderer struct {
	namespace uuid.UUID
}

// New creates a Renderer. Without WithNamespace every call draws a random
// namespace, so ids are globally unique.
func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render converts prims into shapes and bindings. Arrows are rendered after
// every other primitive so the label index is complete when they resolve.
// An unrecognised primitive aborts the whole render.
func (r *Renderer) Render(prims []schema.Primitive) (*Output, error) {
	ns := r.namespace
	if ns == uuid.Nil {
		ns = uuid.New()
	}
	sess := newSession(ns)
	out := &Output{Shapes: []schema.RenderedShape{}, Bindings: []schema.Binding{}}

	var arrows []*schema.Arrow
	for i, p := range prims {
		switch v := p.(type) {
		case *schema.GeoShape:
			if !schema.IsGeoKind(v.Shape) {
				return nil, unknownPrimitive(i, string(v.Shape))
			}
			out.Shapes = append(out.Shapes, sess.geo(v))
		case *schema.Text:
			out.Shapes = append(out.Shapes, sess.text(v))
		case *schema.Line:
			out.Shapes = append(out.Shapes, sess.line(v))
		case *schema.Polygon:
			out.Shapes = append(out.Shapes, sess.polygon(v)...)
		case *schema.Arrow:
			arrows = append(arrows, v)
		default:
			return nil, unknownPrimitive(i, fmt.Sprintf("%T", p))
		}
	}

	for _, a := range arrows {
		shape, bindings := sess.arrow(a)
		out.Shapes = append(out.Shapes, shape)
		out.Bindings = append(out.Bindings, bindings...)
	}
	return out, nil
}

func unknownPrimitive(index int, what string) error {
	return schema.NewErrorf(schema.ErrCodeSchemaViolation, "items[%d]: unrecognised primitive %s", index, what).
		WithDetails(map[string]any{"index": index})
}
