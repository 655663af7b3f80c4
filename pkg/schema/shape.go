package schema

// RenderedShape is a canvas-ready shape record. Field names and the Type values
// ("geo", "text", "arrow", "line") follow the host canvas shape schema.
type RenderedShape struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Rotation float64        `json:"rotation"`
	Opacity  float64        `json:"opacity"`
	Props    map[string]any `json:"props"`
}

// Rendered shape type tags.
const (
	ShapeTypeGeo   = "geo"
	ShapeTypeText  = "text"
	ShapeTypeArrow = "arrow"
	ShapeTypeLine  = "line"
)

// Terminal names the arrow end a binding attaches.
type Terminal string

const (
	TerminalStart Terminal = "start"
	TerminalEnd   Terminal = "end"
)

// Binding attaches an arrow terminal to a target shape so the host canvas keeps
// the arrow connected when the shape moves.
type Binding struct {
	ID     string       `json:"id"`
	Type   string       `json:"type"`
	FromID string       `json:"fromId"`
	ToID   string       `json:"toId"`
	Props  BindingProps `json:"props"`
}

// BindingProps carries the arrow-binding specific fields.
type BindingProps struct {
	Terminal         Terminal `json:"terminal"`
	NormalizedAnchor Point    `json:"normalizedAnchor"`
	IsExact          bool     `json:"isExact"`
	IsPrecise        bool     `json:"isPrecise"`
}

// BindingTypeArrow is the only binding type produced.
const BindingTypeArrow = "arrow"
