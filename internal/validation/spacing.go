package validation

import (
	"fmt"
	"math"
	"sort"

	"github.com/rendis/drawsynth/pkg/schema"
)

// axis selects the coordinate a line of shapes is aligned on.
type axis int

const (
	rowAxis    axis = iota // shapes side by side, aligned on center Y
	columnAxis             // shapes stacked, aligned on center X
)

func (a axis) String() string {
	if a == rowAxis {
		return "row"
	}
	return "column"
}

// validateSpacing groups shapes into rows and columns by center proximity and
// warns about uneven gaps and loose alignment inside each group.
func validateSpacing(shapes []placed, dt schema.DiagramType) *schema.ValidationResult {
	result := schema.NewValidationResult(dt)
	for _, ax := range []axis{rowAxis, columnAxis} {
		for _, group := range alignedGroups(shapes, ax) {
			checkAlignment(group, ax, result)
			checkGaps(group, ax, result)
		}
	}
	return result
}

// alignedGroups clusters shapes whose centers on the alignment axis are within
// AlignTolerance of the first member of the cluster. Only clusters of two or
// more shapes are returned.
func alignedGroups(shapes []placed, ax axis) [][]placed {
	sorted := make([]placed, len(shapes))
	copy(sorted, shapes)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := alignCoord(sorted[i], ax), alignCoord(sorted[j], ax)
		if ci != cj {
			return ci < cj
		}
		return sorted[i].index < sorted[j].index
	})

	var groups [][]placed
	var current []placed
	flush := func() {
		if len(current) >= 2 {
			groups = append(groups, current)
		}
		current = nil
	}
	for _, s := range sorted {
		if len(current) > 0 && alignCoord(s, ax)-alignCoord(current[0], ax) > AlignTolerance {
			flush()
		}
		current = append(current, s)
	}
	flush()
	return groups
}

func alignCoord(s placed, ax axis) float64 {
	c := s.box.Center()
	if ax == rowAxis {
		return c.Y
	}
	return c.X
}

func checkAlignment(group []placed, ax axis, result *schema.ValidationResult) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range group {
		c := alignCoord(s, ax)
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	if hi-lo <= AlignSnap {
		return
	}
	result.Add(schema.ValidationIssue{
		Type:     schema.IssueAlignment,
		Severity: schema.SeverityWarning,
		Message: fmt.Sprintf("%d shapes in a %s have centers %spx apart: align them",
			len(group), ax, num(hi-lo)),
		Indices: indicesOf(group),
		Details: map[string]any{"axis": ax.String(), "spread": hi - lo},
	})
}

// checkGaps sorts a group along the orthogonal axis and warns when the largest
// deviation from the mean gap exceeds both the relative and absolute limits.
func checkGaps(group []placed, ax axis, result *schema.ValidationResult) {
	if len(group) < 3 {
		return
	}
	ordered := make([]placed, len(group))
	copy(ordered, group)
	sort.SliceStable(ordered, func(i, j int) bool {
		return leading(ordered[i], ax) < leading(ordered[j], ax)
	})

	gaps := make([]float64, 0, len(ordered)-1)
	sum := 0.0
	for i := 1; i < len(ordered); i++ {
		g := leading(ordered[i], ax) - trailing(ordered[i-1], ax)
		gaps = append(gaps, g)
		sum += g
	}
	mean := sum / float64(len(gaps))

	maxDev := 0.0
	for _, g := range gaps {
		maxDev = math.Max(maxDev, math.Abs(g-mean))
	}
	if maxDev <= RelativeGapTolerance*math.Abs(mean) || maxDev <= AbsoluteGapTolerance {
		return
	}

	result.Add(schema.ValidationIssue{
		Type:     schema.IssueSpacing,
		Severity: schema.SeverityWarning,
		Message: fmt.Sprintf("uneven gaps in a %s of %d shapes: %s (mean %spx)",
			ax, len(ordered), formatGaps(gaps), num(math.Round(mean))),
		Indices: indicesOf(ordered),
		Details: map[string]any{"axis": ax.String(), "gaps": gaps, "mean_gap": mean},
	})
}

func leading(s placed, ax axis) float64 {
	if ax == rowAxis {
		return s.box.MinX
	}
	return s.box.MinY
}

func trailing(s placed, ax axis) float64 {
	if ax == rowAxis {
		return s.box.MaxX
	}
	return s.box.MaxY
}

func indicesOf(group []placed) []int {
	out := make([]int, len(group))
	for i, s := range group {
		out[i] = s.index
	}
	return out
}

func formatGaps(gaps []float64) string {
	s := "["
	for i, g := range gaps {
		if i > 0 {
			s += ", "
		}
		s += num(math.Round(g))
	}
	return s + "]"
}
