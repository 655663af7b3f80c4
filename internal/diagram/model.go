package diagram

// NodeKind classifies an outline node by the outline of its canvas shape.
type NodeKind string

const (
	NodeKindBox      NodeKind = "box"
	NodeKindDecision NodeKind = "decision"
	NodeKindRound    NodeKind = "round"
	NodeKindHexagon  NodeKind = "hexagon"
	NodeKindOther    NodeKind = "other"
)

// Model is the intermediate representation used by all outline renderers.
type Model struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node is one labelled geo shape.
type Node struct {
	ID      string // outline-local identifier, safe for every renderer
	ShapeID string // id of the rendered canvas shape
	Label   string
	Kind    NodeKind
	Geo     string // canvas geo kind
}

// Edge is an arrow bound at both ends.
type Edge struct {
	From  string
	To    string
	Label string
}

// Node returns the node with the given outline ID, or nil.
func (m *Model) Node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
