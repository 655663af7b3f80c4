package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/drawsynth/internal/render"
	"github.com/rendis/drawsynth/pkg/schema"
)

// Build constructs a Model from rendered shapes and bindings. Labelled geo
// shapes become nodes in canvas order. An arrow becomes an edge only when both
// of its terminals are bound to nodes.
func Build(out *render.Output) *Model {
	m := &Model{}
	if out == nil {
		return m
	}

	byShape := make(map[string]*Node)
	for _, s := range out.Shapes {
		if s.Type != schema.ShapeTypeGeo {
			continue
		}
		label := plainText(s.Props["richText"])
		if label == "" {
			continue
		}
		geo, _ := s.Props["geo"].(string)
		n := &Node{
			ID:      fmt.Sprintf("n%d", len(m.Nodes)+1),
			ShapeID: s.ID,
			Label:   label,
			Kind:    geoToKind(schema.ShapeKind(geo)),
			Geo:     geo,
		}
		m.Nodes = append(m.Nodes, n)
		byShape[s.ID] = n
	}

	// Terminals per arrow.
	type ends struct{ from, to *Node }
	terminals := make(map[string]*ends)
	for _, b := range out.Bindings {
		n, ok := byShape[b.ToID]
		if !ok {
			continue
		}
		e := terminals[b.FromID]
		if e == nil {
			e = &ends{}
			terminals[b.FromID] = e
		}
		switch b.Props.Terminal {
		case schema.TerminalStart:
			e.from = n
		case schema.TerminalEnd:
			e.to = n
		}
	}

	for _, s := range out.Shapes {
		if s.Type != schema.ShapeTypeArrow {
			continue
		}
		e := terminals[s.ID]
		if e == nil || e.from == nil || e.to == nil {
			continue
		}
		m.Edges = append(m.Edges, Edge{
			From:  e.from.ID,
			To:    e.to.ID,
			Label: plainText(s.Props["richText"]),
		})
	}

	m.Levels = buildLevels(m)
	return m
}

// buildLevels assigns each node the length of the longest edge path reaching
// it. Nodes on a cycle that cannot be ordered go to one final level.
func buildLevels(m *Model) [][]string {
	if len(m.Nodes) == 0 {
		return nil
	}

	inDegree := make(map[string]int, len(m.Nodes))
	next := make(map[string][]string, len(m.Nodes))
	for _, e := range m.Edges {
		if e.From == e.To {
			continue
		}
		inDegree[e.To]++
		next[e.From] = append(next[e.From], e.To)
	}

	level := make(map[string]int, len(m.Nodes))
	var queue []string
	for _, n := range m.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, to := range next[id] {
			if level[id]+1 > level[to] {
				level[to] = level[id] + 1
			}
			inDegree[to]--
			if inDegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	var levels [][]string
	var cyclic []string
	for _, n := range m.Nodes {
		if inDegree[n.ID] > 0 {
			cyclic = append(cyclic, n.ID)
			continue
		}
		for len(levels) <= level[n.ID] {
			levels = append(levels, nil)
		}
		levels[level[n.ID]] = append(levels[level[n.ID]], n.ID)
	}
	if len(cyclic) > 0 {
		levels = append(levels, cyclic)
	}
	return levels
}

// geoToKind converts a canvas geo kind to a NodeKind.
func geoToKind(k schema.ShapeKind) NodeKind {
	switch k {
	case schema.ShapeRectangle, schema.ShapeXBox, schema.ShapeCheckBox:
		return NodeKindBox
	case schema.ShapeDiamond, schema.ShapeRhombus:
		return NodeKindDecision
	case schema.ShapeEllipse, schema.ShapeOval:
		return NodeKindRound
	case schema.ShapeHexagon:
		return NodeKindHexagon
	default:
		return NodeKindOther
	}
}

// plainText flattens a rich-text document back into newline separated lines.
func plainText(v any) string {
	doc, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	paragraphs, _ := doc["content"].([]any)
	lines := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		para, _ := p.(map[string]any)
		var line strings.Builder
		content, _ := para["content"].([]any)
		for _, c := range content {
			if node, ok := c.(map[string]any); ok {
				text, _ := node["text"].(string)
				line.WriteString(text)
			}
		}
		lines = append(lines, line.String())
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
