package render

import (
	"github.com/rendis/drawsynth/pkg/schema"
)

// Normalized binding anchors: arrows leave a shape at its bottom center and
// enter the next at its top center.
var (
	StartAnchor = schema.Point{X: 0.5, Y: 1}
	EndAnchor   = schema.Point{X: 0.5, Y: 0}
)

type endpoint struct {
	terminal schema.Terminal
	anchor   schema.Point
	target   target
}

// arrow renders an arrow in start-relative coordinates. Explicit arrows use
// their points. Label arrows bind each resolvable end to its shape; an end
// whose label is unknown gets no binding.
func (s *Session) arrow(a *schema.Arrow) (schema.RenderedShape, []schema.Binding) {
	var start, end schema.Point
	var bound []endpoint

	if a.HasPoints() {
		start, end = *a.Start, *a.End
	} else {
		start = a.Origin()
		if from, ok := s.lookup(a.FromLabel); ok {
			start = anchorPoint(from, StartAnchor)
			bound = append(bound, endpoint{schema.TerminalStart, StartAnchor, from})
		}
		end = schema.Point{X: start.X, Y: start.Y + DefaultArrowLength}
		if to, ok := s.lookup(a.ToLabel); ok {
			end = anchorPoint(to, EndAnchor)
			bound = append(bound, endpoint{schema.TerminalEnd, EndAnchor, to})
		}
	}

	props := map[string]any{
		"start":          map[string]any{"x": 0.0, "y": 0.0},
		"end":            map[string]any{"x": end.X - start.X, "y": end.Y - start.Y},
		"bend":           a.Curvature,
		"arrowheadStart": orDefault(a.ArrowheadStart, NoArrowhead),
		"arrowheadEnd":   orDefault(a.ArrowheadEnd, DefaultArrowhead),
		"color":          canvasColor(a.Color),
		"labelColor":     DefaultColor,
		"fill":           "none",
		"dash":           DefaultDash,
		"size":           strokeSize(a.StrokeWidth),
		"font":           DefaultFont,
		"labelPosition":  0.5,
		"scale":          1.0,
		"richText":       richText(a.Label),
	}
	shape := s.base("shape", schema.ShapeTypeArrow, start.X, start.Y, props)

	bindings := make([]schema.Binding, 0, len(bound))
	for _, e := range bound {
		bindings = append(bindings, schema.Binding{
			ID:     s.nextID("binding"),
			Type:   schema.BindingTypeArrow,
			FromID: shape.ID,
			ToID:   e.target.id,
			Props: schema.BindingProps{
				Terminal:         e.terminal,
				NormalizedAnchor: e.anchor,
				IsExact:          false,
				IsPrecise:        true,
			},
		})
	}
	return shape, bindings
}

func anchorPoint(t target, anchor schema.Point) schema.Point {
	return schema.Point{
		X: t.box.MinX + anchor.X*t.box.W(),
		Y: t.box.MinY + anchor.Y*t.box.H(),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
