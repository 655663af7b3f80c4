package diagram

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/drawsynth/internal/render"
	"github.com/rendis/drawsynth/pkg/schema"
)

func geo(kind schema.ShapeKind, label string, y float64) *schema.GeoShape {
	return &schema.GeoShape{Shape: kind, X: 100, Y: y, W: 150, H: 80, Label: label}
}

func renderPrims(t *testing.T, prims ...schema.Primitive) *render.Output {
	t.Helper()
	out, err := render.New(render.WithNamespace(uuid.NameSpaceURL)).Render(prims)
	require.NoError(t, err)
	return out
}

// flowchart renders Start -> Decision -> End with a labelled yes branch.
func flowchart(t *testing.T) *render.Output {
	return renderPrims(t,
		&schema.Text{X: 100, Y: 10, Text: "Title"},
		geo(schema.ShapeEllipse, "Start", 100),
		geo(schema.ShapeDiamond, "Decision", 260),
		geo(schema.ShapeRectangle, "End", 420),
		&schema.Arrow{FromLabel: "Start", ToLabel: "Decision"},
		&schema.Arrow{FromLabel: "Decision", ToLabel: "End", Label: "yes"},
	)
}

func TestBuild_Flowchart(t *testing.T) {
	m := Build(flowchart(t))

	require.Len(t, m.Nodes, 3, "text shapes are not nodes")
	assert.Equal(t, "Start", m.Nodes[0].Label)
	assert.Equal(t, NodeKindRound, m.Nodes[0].Kind)
	assert.Equal(t, NodeKindDecision, m.Nodes[1].Kind)
	assert.Equal(t, NodeKindBox, m.Nodes[2].Kind)
	assert.Equal(t, "rectangle", m.Nodes[2].Geo)
	assert.NotEmpty(t, m.Nodes[0].ShapeID)

	assert.Equal(t, []Edge{
		{From: "n1", To: "n2"},
		{From: "n2", To: "n3", Label: "yes"},
	}, m.Edges)
	assert.Equal(t, [][]string{{"n1"}, {"n2"}, {"n3"}}, m.Levels)
}

func TestBuild_UnboundArrowIsNoEdge(t *testing.T) {
	m := Build(renderPrims(t,
		geo(schema.ShapeRectangle, "A", 100),
		&schema.Arrow{FromLabel: "A", ToLabel: "Nowhere"},
		&schema.Arrow{Start: &schema.Point{X: 0, Y: 0}, End: &schema.Point{X: 10, Y: 10}},
	))

	require.Len(t, m.Nodes, 1)
	assert.Empty(t, m.Edges)
	assert.Equal(t, [][]string{{"n1"}}, m.Levels)
}

func TestBuild_UnlabelledShapesSkipped(t *testing.T) {
	m := Build(renderPrims(t,
		geo(schema.ShapeRectangle, "", 100),
		geo(schema.ShapeRectangle, "Named", 300),
	))
	require.Len(t, m.Nodes, 1)
	assert.Equal(t, "n1", m.Nodes[0].ID)
	assert.Equal(t, "Named", m.Nodes[0].Label)
}

func TestBuild_BranchesShareLevel(t *testing.T) {
	m := Build(renderPrims(t,
		geo(schema.ShapeDiamond, "Check", 100),
		geo(schema.ShapeRectangle, "Left", 300),
		geo(schema.ShapeRectangle, "Right", 500),
		geo(schema.ShapeRectangle, "Join", 700),
		&schema.Arrow{FromLabel: "Check", ToLabel: "Left"},
		&schema.Arrow{FromLabel: "Check", ToLabel: "Right"},
		&schema.Arrow{FromLabel: "Left", ToLabel: "Join"},
		&schema.Arrow{FromLabel: "Right", ToLabel: "Join"},
		&schema.Arrow{FromLabel: "Check", ToLabel: "Join"},
	))
	assert.Equal(t, [][]string{{"n1"}, {"n2", "n3"}, {"n4"}}, m.Levels, "longest path wins")
}

func TestBuild_CycleGoesToFinalLevel(t *testing.T) {
	m := Build(renderPrims(t,
		geo(schema.ShapeRectangle, "Entry", 100),
		geo(schema.ShapeRectangle, "Ping", 300),
		geo(schema.ShapeRectangle, "Pong", 500),
		&schema.Arrow{FromLabel: "Entry", ToLabel: "Ping"},
		&schema.Arrow{FromLabel: "Ping", ToLabel: "Pong"},
		&schema.Arrow{FromLabel: "Pong", ToLabel: "Ping"},
	))
	assert.Equal(t, [][]string{{"n1"}, {"n2", "n3"}}, m.Levels)
}

func TestBuild_NilOutput(t *testing.T) {
	m := Build(nil)
	assert.Empty(t, m.Nodes)
	assert.Empty(t, m.Levels)
}

func TestPlainText(t *testing.T) {
	doc := map[string]any{
		"type": "doc",
		"content": []any{
			map[string]any{"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": "one"}}},
			map[string]any{"type": "paragraph"},
			map[string]any{"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": "two"}}},
		},
	}
	assert.Equal(t, "one\n\ntwo", plainText(doc))
	assert.Equal(t, "", plainText(nil))
	assert.Equal(t, "", plainText("not a doc"))
}
