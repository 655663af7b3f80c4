package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ShapeKind is the wire discriminator of a primitive (the "shape" field).
type ShapeKind string

const (
	ShapeRectangle  ShapeKind = "rectangle"
	ShapeEllipse    ShapeKind = "ellipse"
	ShapeDiamond    ShapeKind = "diamond"
	ShapeStar       ShapeKind = "star"
	ShapeCloud      ShapeKind = "cloud"
	ShapeTriangle   ShapeKind = "triangle"
	ShapeHexagon    ShapeKind = "hexagon"
	ShapeOval       ShapeKind = "oval"
	ShapeTrapezoid  ShapeKind = "trapezoid"
	ShapeRhombus    ShapeKind = "rhombus"
	ShapeHeart      ShapeKind = "heart"
	ShapeXBox       ShapeKind = "x-box"
	ShapeCheckBox   ShapeKind = "check-box"
	ShapeArrowRight ShapeKind = "arrow-right"
	ShapeArrowLeft  ShapeKind = "arrow-left"
	ShapeArrowUp    ShapeKind = "arrow-up"
	ShapeArrowDown  ShapeKind = "arrow-down"

	ShapeText    ShapeKind = "text"
	ShapeArrow   ShapeKind = "arrow"
	ShapeLine    ShapeKind = "line"
	ShapePolygon ShapeKind = "polygon"
)

// GeoKinds lists every bounded "geo" discriminator.
var GeoKinds = []ShapeKind{
	ShapeRectangle, ShapeEllipse, ShapeDiamond, ShapeStar, ShapeCloud, ShapeTriangle,
	ShapeHexagon, ShapeOval, ShapeTrapezoid, ShapeRhombus, ShapeHeart, ShapeXBox,
	ShapeCheckBox, ShapeArrowRight, ShapeArrowLeft, ShapeArrowUp, ShapeArrowDown,
}

// IsGeoKind reports whether k is a bounded geo discriminator.
func IsGeoKind(k ShapeKind) bool {
	for _, g := range GeoKinds {
		if g == k {
			return true
		}
	}
	return false
}

// Default geo size used when the synthesizer omits w/h.
const (
	DefaultGeoWidth  = 150.0
	DefaultGeoHeight = 80.0
)

// Point is a 2D canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Primitive is an abstract drawing instruction prior to canvas rendering.
// The set of implementations is closed: GeoShape, Text, Arrow, Line and Polygon.
type Primitive interface {
	Kind() ShapeKind
	Origin() Point
	// Validate checks the invariants of the variant.
	Validate() error
	primitive()
}

// GeoShape is a bounded shape (rectangle, ellipse, diamond, ...).
type GeoShape struct {
	Shape       ShapeKind `json:"shape"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	W           float64   `json:"w,omitempty"`
	H           float64   `json:"h,omitempty"`
	Label       string    `json:"label,omitempty"`
	Color       string    `json:"color,omitempty"`
	FillColor   string    `json:"fillColor,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
}

// Text is a standalone text label.
type Text struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	W          float64 `json:"w,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	Color      string  `json:"color,omitempty"`
}

// Arrow connects two points or two labelled shapes.
// Start and End are absolute canvas coordinates.
type Arrow struct {
	X              float64 `json:"x,omitempty"`
	Y              float64 `json:"y,omitempty"`
	Start          *Point  `json:"start,omitempty"`
	End            *Point  `json:"end,omitempty"`
	FromLabel      string  `json:"fromLabel,omitempty"`
	ToLabel        string  `json:"toLabel,omitempty"`
	Label          string  `json:"label,omitempty"`
	Curvature      float64 `json:"curvature,omitempty"`
	ArrowheadStart string  `json:"arrowheadStart,omitempty"`
	ArrowheadEnd   string  `json:"arrowheadEnd,omitempty"`
	Color          string  `json:"color,omitempty"`
	StrokeWidth    float64 `json:"strokeWidth,omitempty"`
}

// Line is an open polyline. Points are relative to (X, Y).
type Line struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Points      []Point `json:"points"`
	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Polygon is a closed outline. Points are relative to (X, Y).
type Polygon struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Points      []Point `json:"points"`
	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

func (*GeoShape) primitive() {}
func (*Text) primitive()     {}
func (*Arrow) primitive()    {}
func (*Line) primitive()     {}
func (*Polygon) primitive()  {}

func (g *GeoShape) Kind() ShapeKind { return g.Shape }
func (*Text) Kind() ShapeKind       { return ShapeText }
func (*Arrow) Kind() ShapeKind      { return ShapeArrow }
func (*Line) Kind() ShapeKind       { return ShapeLine }
func (*Polygon) Kind() ShapeKind    { return ShapePolygon }

func (g *GeoShape) Origin() Point { return Point{g.X, g.Y} }
func (t *Text) Origin() Point     { return Point{t.X, t.Y} }
func (l *Line) Origin() Point     { return Point{l.X, l.Y} }
func (p *Polygon) Origin() Point  { return Point{p.X, p.Y} }

// Origin of an explicit arrow is its start point.
func (a *Arrow) Origin() Point {
	if a.Start != nil {
		return *a.Start
	}
	return Point{a.X, a.Y}
}

// HasPoints reports whether both explicit endpoints are set.
func (a *Arrow) HasPoints() bool { return a.Start != nil && a.End != nil }

// HasLabels reports whether both endpoint labels are set.
func (a *Arrow) HasLabels() bool { return a.FromLabel != "" && a.ToLabel != "" }

// ApplyDefaults fills the geo size when absent. Other variants are left untouched.
func ApplyDefaults(p Primitive) {
	g, ok := p.(*GeoShape)
	if !ok {
		return
	}
	if g.W == 0 {
		g.W = DefaultGeoWidth
	}
	if g.H == 0 {
		g.H = DefaultGeoHeight
	}
}

func (g *GeoShape) Validate() error {
	if !IsGeoKind(g.Shape) {
		return NewErrorf(ErrCodeSchemaViolation, "unknown geo shape %q", g.Shape)
	}
	if err := finite("x", g.X, "y", g.Y, "strokeWidth", g.StrokeWidth); err != nil {
		return err
	}
	if err := nonNegative("w", g.W, "h", g.H); err != nil {
		return err
	}
	return nil
}

func (t *Text) Validate() error {
	if err := finite("x", t.X, "y", t.Y); err != nil {
		return err
	}
	return nonNegative("w", t.W, "fontSize", t.FontSize)
}

func (a *Arrow) Validate() error {
	if !a.HasPoints() && !a.HasLabels() {
		return NewError(ErrCodeSchemaViolation,
			"arrow needs explicit start/end points or both fromLabel and toLabel")
	}
	if a.Start != nil {
		if err := finite("start.x", a.Start.X, "start.y", a.Start.Y); err != nil {
			return err
		}
	}
	if a.End != nil {
		if err := finite("end.x", a.End.X, "end.y", a.End.Y); err != nil {
			return err
		}
	}
	return finite("curvature", a.Curvature, "strokeWidth", a.StrokeWidth)
}

func (l *Line) Validate() error {
	if len(l.Points) < 2 {
		return NewErrorf(ErrCodeSchemaViolation, "line needs at least 2 points, got %d", len(l.Points))
	}
	return finitePoints(l.X, l.Y, l.Points)
}

func (p *Polygon) Validate() error {
	if len(p.Points) < 3 {
		return NewErrorf(ErrCodeSchemaViolation, "polygon needs at least 3 points, got %d", len(p.Points))
	}
	return finitePoints(p.X, p.Y, p.Points)
}

// LabelKey is the key labels are matched by: trimmed and lower-cased.
func LabelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// LabelOf returns the label a primitive can be referenced by, or "".
func LabelOf(p Primitive) string {
	switch v := p.(type) {
	case *GeoShape:
		return v.Label
	default:
		return ""
	}
}

func finite(kv ...any) error {
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1].(float64)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewErrorf(ErrCodeSchemaViolation, "%s must be finite", kv[i])
		}
	}
	return nil
}

func nonNegative(kv ...any) error {
	if err := finite(kv...); err != nil {
		return err
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1].(float64) < 0 {
			return NewErrorf(ErrCodeSchemaViolation, "%s must not be negative", kv[i])
		}
	}
	return nil
}

func finitePoints(x, y float64, pts []Point) error {
	if err := finite("x", x, "y", y); err != nil {
		return err
	}
	for i, pt := range pts {
		if err := finite(fmt.Sprintf("points[%d].x", i), pt.X, fmt.Sprintf("points[%d].y", i), pt.Y); err != nil {
			return err
		}
	}
	return nil
}

// --- Wire encoding ---

// MarshalJSON adds the "shape" discriminator.
func (t *Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return json.Marshal(struct {
		Shape ShapeKind `json:"shape"`
		*alias
	}{ShapeText, (*alias)(t)})
}

// MarshalJSON adds the "shape" discriminator.
func (a *Arrow) MarshalJSON() ([]byte, error) {
	type alias Arrow
	return json.Marshal(struct {
		Shape ShapeKind `json:"shape"`
		*alias
	}{ShapeArrow, (*alias)(a)})
}

// MarshalJSON adds the "shape" discriminator.
func (l *Line) MarshalJSON() ([]byte, error) {
	type alias Line
	return json.Marshal(struct {
		Shape ShapeKind `json:"shape"`
		*alias
	}{ShapeLine, (*alias)(l)})
}

// MarshalJSON adds the "shape" discriminator.
func (p *Polygon) MarshalJSON() ([]byte, error) {
	type alias Polygon
	return json.Marshal(struct {
		Shape ShapeKind `json:"shape"`
		*alias
	}{ShapePolygon, (*alias)(p)})
}

// DecodePrimitive decodes one wire object into its variant.
// An unknown discriminator is a schema violation.
func DecodePrimitive(data []byte) (Primitive, error) {
	var head struct {
		Shape ShapeKind `json:"shape"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, NewError(ErrCodeSchemaViolation, "primitive is not a JSON object").WithCause(err)
	}

	var p Primitive
	switch {
	case IsGeoKind(head.Shape):
		p = &GeoShape{}
	case head.Shape == ShapeText:
		p = &Text{}
	case head.Shape == ShapeArrow:
		p = &Arrow{}
	case head.Shape == ShapeLine:
		p = &Line{}
	case head.Shape == ShapePolygon:
		p = &Polygon{}
	case head.Shape == "":
		return nil, NewError(ErrCodeSchemaViolation, `primitive is missing the "shape" field`)
	default:
		return nil, NewErrorf(ErrCodeSchemaViolation, "unknown primitive shape %q", head.Shape).
			WithDetails(map[string]any{"shape": string(head.Shape)})
	}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, NewErrorf(ErrCodeSchemaViolation, "decode %s primitive: %s", head.Shape, err.Error()).WithCause(err)
	}
	return p, nil
}

// Primitives is an ordered primitive list with wire (de)serialisation.
type Primitives []Primitive

// UnmarshalJSON decodes a JSON array of wire objects.
func (ps *Primitives) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewError(ErrCodeSchemaViolation, "primitives must be a JSON array").WithCause(err)
	}
	out := make(Primitives, 0, len(raw))
	for i, r := range raw {
		p, err := DecodePrimitive(r)
		if err != nil {
			var se *Error
			if errors.As(err, &se) {
				se.Message = fmt.Sprintf("items[%d]: %s", i, se.Message)
			}
			return err
		}
		out = append(out, p)
	}
	*ps = out
	return nil
}

// DecodePrimitives decodes a JSON array, validates every element and applies defaults.
func DecodePrimitives(data []byte) (Primitives, error) {
	var ps Primitives
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, err
	}
	for i, p := range ps {
		ApplyDefaults(p)
		if err := p.Validate(); err != nil {
			var se *Error
			if errors.As(err, &se) {
				se.Message = fmt.Sprintf("items[%d]: %s", i, se.Message)
			}
			return nil, err
		}
	}
	return ps, nil
}
