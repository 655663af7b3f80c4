package validation

import (
	"fmt"

	"github.com/rendis/drawsynth/pkg/schema"
)

// validateBounds reports every shape whose box leaves the canvas. A small
// negative origin is tolerated.
func validateBounds(shapes []placed, cfg Config, dt schema.DiagramType) *schema.ValidationResult {
	result := schema.NewValidationResult(dt)
	for _, s := range shapes {
		if s.box.Within(cfg.CanvasWidth, cfg.CanvasHeight, OriginTolerance) {
			continue
		}
		result.Add(schema.ValidationIssue{
			Type:     schema.IssueOffCanvas,
			Severity: schema.SeverityError,
			Message: fmt.Sprintf("%s extends outside the %sx%s canvas (spans x %s..%s, y %s..%s)",
				s.name, num(cfg.CanvasWidth), num(cfg.CanvasHeight),
				num(s.box.MinX), num(s.box.MaxX), num(s.box.MinY), num(s.box.MaxY)),
			Indices: []int{s.index},
			Details: map[string]any{
				"shape":         s.name,
				"canvas_width":  cfg.CanvasWidth,
				"canvas_height": cfg.CanvasHeight,
				"min_x":         s.box.MinX,
				"min_y":         s.box.MinY,
				"max_x":         s.box.MaxX,
				"max_y":         s.box.MaxY,
			},
		})
	}
	return result
}
