package validation

import (
	"fmt"
	"sort"

	"github.com/rendis/drawsynth/pkg/schema"
)

// validateOverlap reports one error per pair of shapes closer than MinSpacing
// on both axes. Each pair is reported once, named in a canonical order so the
// issue set does not depend on input order.
func validateOverlap(shapes []placed, cfg Config, dt schema.DiagramType) *schema.ValidationResult {
	result := schema.NewValidationResult(dt)

	var issues []schema.ValidationIssue
	for i := 0; i < len(shapes); i++ {
		for j := i + 1; j < len(shapes); j++ {
			a, b := shapes[i], shapes[j]
			if !a.box.Crowds(b.box, cfg.MinSpacing) {
				continue
			}
			if b.name < a.name {
				a, b = b, a
			}
			gapX, gapY := a.box.Gaps(b.box)
			issues = append(issues, schema.ValidationIssue{
				Type:     schema.IssueOverlap,
				Severity: schema.SeverityError,
				Message: fmt.Sprintf("%s overlaps %s (need at least %spx between them)",
					a.name, b.name, num(cfg.MinSpacing)),
				Indices: []int{a.index, b.index},
				Details: map[string]any{
					"shapes":      []string{a.name, b.name},
					"gap_x":       gapX,
					"gap_y":       gapY,
					"min_spacing": cfg.MinSpacing,
				},
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Message < issues[j].Message })
	for _, issue := range issues {
		result.Add(issue)
	}
	return result
}
