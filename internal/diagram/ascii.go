package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/recviz/pkg/schema"
)

// visibilityTag returns a short ASCII indicator for a node visibility.
func visibilityTag(v schema.Visibility) string {
	switch v {
	case schema.VisibilityActive:
		return "[ACTIVE]"
	case schema.VisibilityCompleted:
		return "[DONE]"
	case schema.VisibilityPending:
		return "[PEND]"
	default:
		return ""
	}
}

// RenderASCII renders a Model as an indented call tree. Hidden calls are
// left out; the current event and the call stack are printed above the tree.
func RenderASCII(model *Model) string {
	var b strings.Builder

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n", model.Title))
	}
	if model.Progress != "" {
		b.WriteString("step " + model.Progress)
		if model.Banner != "" {
			b.WriteString("  " + model.Banner)
		}
		b.WriteByte('\n')
	}
	if len(model.Stack) > 0 {
		b.WriteString("stack: " + strings.Join(model.Stack, " > ") + "\n")
	}
	b.WriteByte('\n')

	children := make(map[string][]*Node, len(model.Nodes))
	var roots []*Node
	for _, n := range model.Nodes {
		if !n.Visible() {
			continue
		}
		if n.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		children[n.ParentID] = append(children[n.ParentID], n)
	}

	returning := make(map[string]string)
	for _, e := range model.Edges {
		if e.Visible && e.Label != "" {
			returning[e.To] = e.Label
		}
	}

	var visit func(n *Node, prefix string, last, root bool)
	visit = func(n *Node, prefix string, last, root bool) {
		branch, next := "", ""
		if !root {
			branch, next = "├── ", "│   "
			if last {
				branch, next = "└── ", "    "
			}
		}
		b.WriteString(prefix + branch + n.Call)
		if n.Return != nil {
			b.WriteString(fmt.Sprintf(" = %d", *n.Return))
		}
		b.WriteString(" " + visibilityTag(n.Visibility))
		if v, ok := returning[n.ID]; ok {
			b.WriteString(" ↑ " + v)
		}
		b.WriteByte('\n')
		kids := children[n.ID]
		for i, c := range kids {
			visit(c, prefix+next, i == len(kids)-1, false)
		}
	}
	for _, r := range roots {
		visit(r, "", true, true)
	}

	if model.Final != nil {
		b.WriteString(fmt.Sprintf("\nresult: %d\n", *model.Final))
	}
	return b.String()
}
