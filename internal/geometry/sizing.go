package geometry

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rendis/drawsynth/pkg/schema"
)

// Label sizing. A labelled geo shape is never smaller than its label needs.
const (
	LabelCharWidth  = 10.0
	LabelLineHeight = 24.0
	LabelPadX       = 40.0
	LabelPadY       = 24.0

	// MinGeoWidth and MinGeoHeight apply to unlabelled shapes.
	MinGeoWidth  = 40.0
	MinGeoHeight = 40.0
)

// Text sizing.
const (
	MinTextWidth    = 100.0
	TextCharWidth   = 4.0
	DefaultFontSize = 20.0
	TextLineSpacing = 1.25
)

// LabelLines splits a label into display lines.
func LabelLines(label string) []string {
	return strings.Split(strings.ReplaceAll(label, "\r\n", "\n"), "\n")
}

// LabelMinSize returns the smallest box that shows label unclipped.
func LabelMinSize(label string) (w, h float64) {
	lines := LabelLines(label)
	longest := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > longest {
			longest = n
		}
	}
	w = float64(longest)*LabelCharWidth + LabelPadX
	h = float64(len(lines))*LabelLineHeight + LabelPadY
	return w, h
}

// GeoSize is the element-wise maximum of the requested size (defaults when absent)
// and the label-driven minimum.
func GeoSize(g *schema.GeoShape) (w, h float64) {
	w, h = g.W, g.H
	if w == 0 {
		w = schema.DefaultGeoWidth
	}
	if h == 0 {
		h = schema.DefaultGeoHeight
	}
	minW, minH := MinGeoWidth, MinGeoHeight
	if strings.TrimSpace(g.Label) != "" {
		lw, lh := LabelMinSize(g.Label)
		minW, minH = math.Max(minW, lw), math.Max(minH, lh)
	}
	return math.Max(w, minW), math.Max(h, minH)
}

// TextSize returns the box of a standalone text primitive.
// Without an explicit width the text is max(100, 4 x characters) wide.
func TextSize(t *schema.Text) (w, h float64) {
	w = t.W
	if w == 0 {
		w = math.Max(MinTextWidth, TextCharWidth*float64(utf8.RuneCountInString(t.Text)))
	}
	size := t.FontSize
	if size == 0 {
		size = DefaultFontSize
	}
	h = float64(len(LabelLines(t.Text))) * size * TextLineSpacing
	return w, h
}
