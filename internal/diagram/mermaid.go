package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a Model as a Mermaid flowchart string.
func RenderMermaid(model *Model) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", firstLine(model.Title)))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", mermaidEscapeLabel(firstLine(edge.Label)))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n", edge.From, label, edge.To))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	label := mermaidEscapeLabel(firstLine(node.Label))

	switch node.Kind {
	case NodeKindDecision:
		return fmt.Sprintf("%s{\"%s\"}", node.ID, label)
	case NodeKindRound:
		return fmt.Sprintf("%s([\"%s\"])", node.ID, label)
	case NodeKindHexagon:
		return fmt.Sprintf("%s{{\"%s\"}}", node.ID, label)
	case NodeKindOther:
		return fmt.Sprintf("%s>\"%s\"]", node.ID, label)
	default: // box
		return fmt.Sprintf("%s[\"%s\"]", node.ID, label)
	}
}

var mermaidLabelEscaper = strings.NewReplacer(
	`"`, "#quot;",
	"|", "#124;",
)

// mermaidEscapeLabel escapes characters that end a Mermaid label early.
func mermaidEscapeLabel(s string) string {
	return mermaidLabelEscaper.Replace(s)
}
