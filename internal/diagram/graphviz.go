package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderImage lays the outline out top to bottom with dot and returns PNG bytes.
func RenderImage(ctx context.Context, model *Model) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(firstLine(model.Title))
	}

	connected := make(map[string]bool, len(model.Nodes))
	for _, e := range model.Edges {
		connected[e.From] = true
		connected[e.To] = true
	}

	placed := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, n := range model.Nodes {
		gn, err := graph.CreateNodeByName(n.ID)
		if err != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", n.ID, err)
		}
		gn.SetLabel(firstLine(n.Label))
		styleNode(gn, n.Kind, connected[n.ID])
		placed[n.ID] = gn
	}

	for i, e := range model.Edges {
		from, to := placed[e.From], placed[e.To]
		if from == nil || to == nil {
			continue
		}
		ge, err := graph.CreateEdgeByName(fmt.Sprintf("e%d", i), from, to)
		if err != nil {
			return nil, fmt.Errorf("diagram: create edge %s->%s: %w", e.From, e.To, err)
		}
		if e.Label != "" {
			ge.SetLabel(firstLine(e.Label))
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// styleNode picks the graphviz outline for a node kind. Shapes no arrow
// reaches are drawn dashed and greyed out.
func styleNode(gn *cgraph.Node, kind NodeKind, connected bool) {
	switch kind {
	case NodeKindDecision:
		gn.SetShape(cgraph.DiamondShape)
	case NodeKindRound:
		gn.SetShape(cgraph.EllipseShape)
	case NodeKindHexagon:
		gn.SetShape(cgraph.HexagonShape)
	default:
		gn.SetShape(cgraph.BoxShape)
	}

	if kind == NodeKindOther || !connected {
		gn.SetStyle(cgraph.DashedNodeStyle)
		gn.SetFontColor("#888888")
	}
}
