package schema

import "strings"

// DiagramType decides whether a primitive set goes through geometry validation.
type DiagramType string

const (
	// DiagramStructured covers flowcharts, org charts and sequences; always validated.
	DiagramStructured DiagramType = "structured"
	// DiagramFreeform covers single or artistic compositions where overlap is intended.
	DiagramFreeform DiagramType = "freeform"
)

// ParseDiagramType maps a classification string to a DiagramType.
// Anything other than "freeform" is treated as structured so it gets validated.
func ParseDiagramType(s string) DiagramType {
	if strings.EqualFold(strings.TrimSpace(s), string(DiagramFreeform)) {
		return DiagramFreeform
	}
	return DiagramStructured
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DiagramType) UnmarshalText(text []byte) error {
	*d = ParseDiagramType(string(text))
	return nil
}
