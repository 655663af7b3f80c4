package geometry

import (
	"math"

	"github.com/rendis/drawsynth/pkg/schema"
)

// Box is an axis-aligned bounding box in canvas coordinates.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewBox builds a box from an origin and a size.
func NewBox(x, y, w, h float64) Box {
	return Box{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

func (b Box) W() float64 { return b.MaxX - b.MinX }
func (b Box) H() float64 { return b.MaxY - b.MinY }

// Center returns the box midpoint.
func (b Box) Center() schema.Point {
	return schema.Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Gaps returns the horizontal and vertical clearance between two boxes.
// A negative value means the extents overlap on that axis.
func (b Box) Gaps(o Box) (dx, dy float64) {
	dx = math.Max(o.MinX-b.MaxX, b.MinX-o.MaxX)
	dy = math.Max(o.MinY-b.MaxY, b.MinY-o.MaxY)
	return dx, dy
}

// Crowds reports whether the two boxes, inflated by spacing, intersect on both axes.
// Boxes exactly spacing apart do not crowd. The relation is symmetric.
func (b Box) Crowds(o Box, spacing float64) bool {
	dx, dy := b.Gaps(o)
	return dx < spacing && dy < spacing
}

// Within reports whether b lies inside [-tol, w] x [-tol, h].
func (b Box) Within(w, h, tol float64) bool {
	return b.MinX >= -tol && b.MinY >= -tol && b.MaxX <= w && b.MaxY <= h
}

// EdgeDistance is the distance from p to the nearest point of the box boundary.
// Points inside the box measure to the closest side, so deep interior points
// are far from the edge.
func (b Box) EdgeDistance(p schema.Point) float64 {
	inside := p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
	if inside {
		return math.Min(
			math.Min(p.X-b.MinX, b.MaxX-p.X),
			math.Min(p.Y-b.MinY, b.MaxY-p.Y),
		)
	}
	dx := math.Max(math.Max(b.MinX-p.X, 0), p.X-b.MaxX)
	dy := math.Max(math.Max(b.MinY-p.Y, 0), p.Y-b.MaxY)
	return math.Hypot(dx, dy)
}

// BoundsOf returns the bounding box of a point list offset by origin.
func BoundsOf(origin schema.Point, pts []schema.Point) Box {
	if len(pts) == 0 {
		return NewBox(origin.X, origin.Y, 0, 0)
	}
	b := Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range pts {
		x, y := origin.X+p.X, origin.Y+p.Y
		b.MinX = math.Min(b.MinX, x)
		b.MinY = math.Min(b.MinY, y)
		b.MaxX = math.Max(b.MaxX, x)
		b.MaxY = math.Max(b.MaxY, y)
	}
	return b
}

// BoxOf returns the effective box a primitive occupies on the canvas: the same
// size the renderer draws. Arrows and lines have no box.
func BoxOf(p schema.Primitive) (Box, bool) {
	switch v := p.(type) {
	case *schema.GeoShape:
		w, h := GeoSize(v)
		return NewBox(v.X, v.Y, w, h), true
	case *schema.Text:
		w, h := TextSize(v)
		return NewBox(v.X, v.Y, w, h), true
	case *schema.Polygon:
		return BoundsOf(v.Origin(), v.Points), true
	default:
		return Box{}, false
	}
}
