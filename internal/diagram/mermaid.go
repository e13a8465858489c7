package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/recviz/internal/layout"
	"github.com/rendis/recviz/pkg/schema"
)

// RenderMermaid renders the visible part of a Model as a Mermaid flowchart.
// Edges in the return phase are dotted and stay drawn once the child has
// returned; they carry the returned value on the child's return step.
func RenderMermaid(model *Model) string {
	var b strings.Builder

	if model.Orientation == layout.Horizontal {
		b.WriteString("graph LR\n")
	} else {
		b.WriteString("graph TD\n")
	}
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	visible := model.VisibleNodes()
	for _, n := range visible {
		b.WriteString(fmt.Sprintf("    %s((%q))\n", mermaidSafeID(n.ID), n.Text()))
	}

	for _, e := range model.VisibleEdges() {
		arrow := "-->"
		if e.Phase == schema.EdgePhaseReturn {
			arrow = "-.->"
		}
		label := ""
		if e.Label != "" {
			label = fmt.Sprintf("|%s|", e.Label)
		}
		b.WriteString(fmt.Sprintf("    %s %s%s %s\n",
			mermaidSafeID(e.From), arrow, label, mermaidSafeID(e.To)))
	}

	b.WriteString("\n")
	b.WriteString("    classDef active fill:#8B5CF6,stroke:#6D28D9,color:#fff\n")
	b.WriteString("    classDef completed fill:#10B981,stroke:#047857,color:#fff\n")
	b.WriteString("    classDef pending fill:#1F2937,stroke:#4B5563,color:#fff\n")

	for _, n := range visible {
		b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(n.ID), n.Visibility))
	}
	return b.String()
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}
