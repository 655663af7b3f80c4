package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/drawsynth/pkg/schema"
)

func TestRenderMermaid_Flowchart(t *testing.T) {
	m := Build(flowchart(t))
	m.Title = "Approval flow"

	output := RenderMermaid(m)

	assert.Equal(t, `graph TD
    %% Approval flow
    n1(["Start"])
    n2{"Decision"}
    n3["End"]
    n1 --> n2
    n2 -->|yes| n3
`, output)
}

func TestRenderMermaid_EscapesLabels(t *testing.T) {
	m := Build(renderPrims(t,
		geo(schema.ShapeHexagon, `say "hi" | bye`, 100),
		geo(schema.ShapeStar, "Multi\nline", 300),
	))

	output := RenderMermaid(m)
	assert.Contains(t, output, `n1{{"say #quot;hi#quot; #124; bye"}}`)
	assert.Contains(t, output, `n2>"Multi"]`, "only the first label line is shown")
}

func TestRenderMermaid_Empty(t *testing.T) {
	assert.Equal(t, "graph TD\n", RenderMermaid(&Model{}))
}
