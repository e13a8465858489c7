package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/recviz/pkg/schema"
)

// pointsPerInch converts layout units, which graphviz treats as points, to
// the inches neato expects for pinned positions.
const pointsPerInch = 72.0

// RenderImage renders the visible part of a Model as a PNG or SVG image.
// Nodes are pinned to the layout coordinates and laid out with neato, so the
// picture matches the panel.
func RenderImage(ctx context.Context, model *Model, format Format) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatPNG:
		gvFormat = graphviz.PNG
	case FormatSVG:
		gvFormat = graphviz.SVG
	default:
		return nil, fmt.Errorf("diagram: %s is not an image format", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.NEATO)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	if model.Title != "" {
		graph.SetLabel(model.Title)
	}
	graph.SetOverlap(true)
	applyTheme(graph, model.Theme)

	// Graphviz puts the origin bottom-left; the layout grows downward.
	var maxY float64
	for _, n := range model.Nodes {
		if n.Point.Y > maxY {
			maxY = n.Point.Y
		}
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.VisibleNodes() {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(node.Text())
		gvNode.SetTooltip(node.Call)
		gvNode.SetPos(node.Point.X/pointsPerInch, (maxY-node.Point.Y)/pointsPerInch)
		gvNode.SetPin(true)
		applyNodeStyle(gvNode, node)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range model.VisibleEdges() {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
		if eErr != nil {
			return nil, fmt.Errorf("diagram: create edge %s->%s: %w", edge.From, edge.To, eErr)
		}
		if edge.Phase == schema.EdgePhaseReturn {
			e.SetStyle(cgraph.DashedEdgeStyle)
		}
		if edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func applyTheme(graph *cgraph.Graph, theme schema.Theme) {
	if theme == schema.ThemeLight {
		graph.SetBackgroundColor("#FFFFFF")
		return
	}
	graph.SetBackgroundColor("#111827")
}

// applyNodeStyle draws every call as a fixed-size circle.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	gvNode.SetShape(cgraph.CircleShape)
	gvNode.SetFixedSize(true)
	gvNode.SetWidth(0.6)
	gvNode.SetHeight(0.6)
	applyVisibilityColor(gvNode, node.Visibility)
}

// applyVisibilityColor sets fill color and style based on visibility.
func applyVisibilityColor(gvNode *cgraph.Node, v schema.Visibility) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	gvNode.SetFontColor("white")
	switch v {
	case schema.VisibilityActive:
		gvNode.SetFillColor("#8B5CF6")
		gvNode.SetColor("#6D28D9")
	case schema.VisibilityCompleted:
		gvNode.SetFillColor("#10B981")
		gvNode.SetColor("#047857")
	default:
		gvNode.SetFillColor("#1F2937")
		gvNode.SetColor("#4B5563")
	}
}
