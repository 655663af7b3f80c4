package validation

import (
	"fmt"

	"github.com/rendis/drawsynth/pkg/schema"
)

// validateConnectivity checks that arrows touch the shapes they join.
//
// Explicit arrows: an endpoint is connected when it lies within
// ConnectionThreshold of some connectable shape's edge. No connected endpoint
// is an error, one is a warning. Label arrows are checked against the set of
// shape labels. Two or more boxed shapes of any kind, text included, with
// no arrows at all is a single error.
func validateConnectivity(prims []schema.Primitive, shapes []placed, cfg Config, dt schema.DiagramType) *schema.ValidationResult {
	result := schema.NewValidationResult(dt)

	var targets []placed
	labels := make(map[string]bool)
	for _, s := range shapes {
		if !s.connectable() {
			continue
		}
		targets = append(targets, s)
		if l := schema.LabelOf(s.prim); l != "" {
			labels[schema.LabelKey(l)] = true
		}
	}

	arrows := 0
	for i, p := range prims {
		a, ok := p.(*schema.Arrow)
		if !ok {
			continue
		}
		arrows++

		if a.HasPoints() {
			startOK := touchesAny(*a.Start, targets, cfg.ConnectionThreshold)
			endOK := touchesAny(*a.End, targets, cfg.ConnectionThreshold)
			switch {
			case !startOK && !endOK:
				result.AddError(schema.IssueDisconnected,
					fmt.Sprintf("arrow %d from (%s, %s) to (%s, %s) is not connected to any shape",
						i, num(a.Start.X), num(a.Start.Y), num(a.End.X), num(a.End.Y)), i)
			case !startOK:
				result.AddWarning(schema.IssueDisconnected,
					fmt.Sprintf("arrow %d start (%s, %s) does not touch a shape edge",
						i, num(a.Start.X), num(a.Start.Y)), i)
			case !endOK:
				result.AddWarning(schema.IssueDisconnected,
					fmt.Sprintf("arrow %d end (%s, %s) does not touch a shape edge",
						i, num(a.End.X), num(a.End.Y)), i)
			}
			continue
		}

		for _, l := range []string{a.FromLabel, a.ToLabel} {
			if !labels[schema.LabelKey(l)] {
				result.AddWarning(schema.IssueDisconnected,
					fmt.Sprintf("arrow %d references unknown shape label %q", i, l), i)
			}
		}
	}

	if arrows == 0 && len(shapes) >= 2 {
		result.Add(schema.ValidationIssue{
			Type:     schema.IssueDisconnected,
			Severity: schema.SeverityError,
			Message:  fmt.Sprintf("%d shapes but no arrows: connect the shapes to show the flow", len(shapes)),
			Details:  map[string]any{"shape_count": len(shapes)},
		})
	}

	return result
}

func touchesAny(p schema.Point, targets []placed, threshold float64) bool {
	for _, t := range targets {
		if t.box.EdgeDistance(p) <= threshold {
			return true
		}
	}
	return false
}
