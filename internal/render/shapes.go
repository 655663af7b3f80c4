package render

import (
	"github.com/rendis/drawsynth/internal/geometry"
	"github.com/rendis/drawsynth/pkg/schema"
)

func (s *Session) base(prefix, typ string, x, y float64, props map[string]any) schema.RenderedShape {
	return schema.RenderedShape{
		ID:      s.nextID(prefix),
		Type:    typ,
		X:       x,
		Y:       y,
		Opacity: 1,
		Props:   props,
	}
}

// geo renders a bounded shape at its label-aware size and indexes its label.
func (s *Session) geo(g *schema.GeoShape) schema.RenderedShape {
	w, h := geometry.GeoSize(g)
	fill := "none"
	if g.FillColor != "" {
		fill = "solid"
	}
	color := g.Color
	if color == "" {
		color = g.FillColor
	}
	props := map[string]any{
		"geo":           string(g.Shape),
		"w":             w,
		"h":             h,
		"color":         canvasColor(color),
		"labelColor":    DefaultColor,
		"fill":          fill,
		"dash":          DefaultDash,
		"size":          strokeSize(g.StrokeWidth),
		"font":          DefaultFont,
		"align":         "middle",
		"verticalAlign": "middle",
		"growY":         0.0,
		"url":           "",
		"scale":         1.0,
		"richText":      richText(g.Label),
	}
	shape := s.base("shape", schema.ShapeTypeGeo, g.X, g.Y, props)
	if g.Label != "" {
		s.remember(g.Label, shape.ID, geometry.NewBox(g.X, g.Y, w, h))
	}
	return shape
}

// text renders a standalone label-less text shape.
func (s *Session) text(t *schema.Text) schema.RenderedShape {
	w, _ := geometry.TextSize(t)
	props := map[string]any{
		"richText":  richText(t.Text),
		"w":         w,
		"autoSize":  false,
		"color":     canvasColor(t.Color),
		"size":      fontSize(t.FontSize),
		"font":      fontFamily(t.FontFamily),
		"textAlign": "start",
		"scale":     1.0,
	}
	return s.base("shape", schema.ShapeTypeText, t.X, t.Y, props)
}

// line renders an open polyline as one multi-point line shape.
func (s *Session) line(l *schema.Line) schema.RenderedShape {
	return s.base("shape", schema.ShapeTypeLine, l.X, l.Y, lineProps(l.Points, l.Color, l.StrokeWidth))
}

// polygon decomposes a closed outline into one line shape per edge, the last
// edge joining the final point back to the first.
func (s *Session) polygon(p *schema.Polygon) []schema.RenderedShape {
	n := len(p.Points)
	shapes := make([]schema.RenderedShape, 0, n)
	for i := 0; i < n; i++ {
		from, to := p.Points[i], p.Points[(i+1)%n]
		seg := []schema.Point{{}, {X: to.X - from.X, Y: to.Y - from.Y}}
		shapes = append(shapes, s.base("shape", schema.ShapeTypeLine,
			p.X+from.X, p.Y+from.Y, lineProps(seg, p.Color, p.StrokeWidth)))
	}
	return shapes
}

func lineProps(pts []schema.Point, color string, stroke float64) map[string]any {
	points := make(map[string]any, len(pts))
	for i, pt := range pts {
		key := indexKey(i)
		points[key] = map[string]any{"id": key, "index": key, "x": pt.X, "y": pt.Y}
	}
	return map[string]any{
		"points": points,
		"color":  canvasColor(color),
		"dash":   DefaultDash,
		"size":   strokeSize(stroke),
		"spline": "line",
		"scale":  1.0,
	}
}
