package diagram

import (
	"fmt"
	"strconv"

	"github.com/rendis/recviz/internal/layout"
	"github.com/rendis/recviz/internal/player"
	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

// Build assembles a Model from a run, its layout and one player snapshot.
// A nil layout is computed from the trace; a nil snapshot shows the final
// step.
func Build(tr *trace.Trace, res *layout.Result, snap *player.Snapshot) (*Model, error) {
	if tr == nil || tr.Root == nil {
		return nil, fmt.Errorf("diagram: empty trace")
	}
	if res == nil {
		res = layout.Layout(tr)
	}
	if snap == nil {
		snap = player.Frame(tr.Events, tr.Root, len(tr.Events)-1)
	}

	m := &Model{
		Title:       tr.Signature(tr.Root),
		Algorithm:   tr.Algorithm,
		Orientation: res.Orientation,
		Theme:       schema.ThemeDark,
		Banner:      snap.Banner(),
		Progress:    snap.Progress(),
		Final:       snap.Final,
		Nodes:       make([]*Node, 0, len(snap.Order)),
	}
	for _, f := range snap.Stack {
		m.Stack = append(m.Stack, f.Call)
	}

	for _, id := range snap.Order {
		v := snap.Nodes[id]
		pt, ok := res.Point(id)
		if !ok {
			return nil, fmt.Errorf("diagram: node %s has no layout position", id)
		}
		call := v.Call
		if call == "" {
			if n := tr.Node(id); n != nil {
				call = tr.Signature(n)
			}
		}
		m.Nodes = append(m.Nodes, &Node{
			ID:         id,
			ParentID:   v.ParentID,
			Label:      v.Label,
			Call:       call,
			Depth:      v.Depth,
			Level:      res.Level(id),
			Visibility: v.Visibility,
			Return:     v.Return,
			Point:      pt,
		})
	}

	for _, e := range snap.Edges {
		edge := Edge{From: e.From, To: e.To, Phase: e.Phase, Visible: e.Visible}
		if e.ReturnValue != nil {
			edge.Label = itoa(*e.ReturnValue)
		}
		m.Edges = append(m.Edges, edge)
	}
	return m, nil
}

func itoa(v int) string { return strconv.Itoa(v) }
