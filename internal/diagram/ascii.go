package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RenderASCII renders a Model as a text-based diagram.
// It uses a level-based layout with box-drawing characters.
func RenderASCII(model *Model) string {
	var b strings.Builder

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n\n", firstLine(model.Title)))
	}

	for levelIdx, level := range model.Levels {
		var boxes []asciiBox
		for _, nodeID := range level {
			node := model.Node(nodeID)
			if node == nil {
				continue
			}
			boxes = append(boxes, makeBox(node))
		}

		renderBoxRow(&b, boxes)

		if levelIdx < len(model.Levels)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	if len(model.Edges) > 0 {
		b.WriteString("\n")
		for _, edge := range model.Edges {
			from, to := model.Node(edge.From), model.Node(edge.To)
			if from == nil || to == nil {
				continue
			}
			line := fmt.Sprintf("%s ─→ %s", firstLine(from.Label), firstLine(to.Label))
			if edge.Label != "" {
				line += fmt.Sprintf(" (%s)", firstLine(edge.Label))
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates an ASCII box for a node. Decisions get angled corners.
func makeBox(node *Node) asciiBox {
	label := firstLine(node.Label)
	n := utf8.RuneCountInString(label)
	width := n + 4 // 2 border + 2 padding

	tl, tr, bl, br := "┌", "┐", "└", "┘"
	switch node.Kind {
	case NodeKindDecision:
		tl, tr, bl, br = "/", "\\", "\\", "/"
	case NodeKindRound:
		tl, tr, bl, br = "╭", "╮", "╰", "╯"
	}

	lines := []string{
		tl + strings.Repeat("─", width-2) + tr,
		"│ " + label + " │",
		bl + strings.Repeat("─", width-2) + br,
	}
	return asciiBox{lines: lines, width: width}
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		if len(box.lines) > maxHeight {
			maxHeight = len(box.lines)
		}
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("    │\n")
	b.WriteString("    ▼\n")
}
