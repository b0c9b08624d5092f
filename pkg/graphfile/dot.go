package graphfile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/fsm-canvas/pkg/graph"
)

// GenerateDOT converts a document to Graphviz DOT format. Node positions
// are pinned to the editor layout for neato and fdp.
func GenerateDOT(d Document, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph FSM {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=11];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
		sb.WriteString("\n")
	}

	if d.Starting != nil && *d.Starting != "" {
		sb.WriteString("    __start [shape=none, label=\"\", width=0, height=0];\n")
		sb.WriteString(fmt.Sprintf("    __start -> \"%s\";\n", escapeDOT(*d.Starting)))
		sb.WriteString("\n")
	}

	for _, s := range d.States {
		id, ok := s.ID.Value()
		if !ok {
			continue
		}
		shape := "circle"
		if s.Ending {
			shape = "doublecircle"
		}
		// DOT's y axis points up.
		sb.WriteString(fmt.Sprintf("    \"%s\" [shape=%s, pos=\"%g,%g!\"];\n",
			escapeDOT(id), shape, s.Location.X, -s.Location.Y))
	}
	sb.WriteString("\n")

	for _, e := range groupEdges(d) {
		sb.WriteString(fmt.Sprintf("    \"%s\" -> \"%s\" [label=\"%s\"];\n",
			escapeDOT(e.from), escapeDOT(e.to), escapeDOT(e.label)))
	}

	sb.WriteString("}\n")

	return sb.String()
}

type edgeGroup struct {
	from, to   string
	label      string
	start, end graph.Endpoint
}

// groupEdges merges transitions between the same pair of states, keeping
// the order in which each pair first appears.
func groupEdges(d Document) []edgeGroup {
	type key struct{ from, to string }
	index := make(map[key]int)
	var out []edgeGroup
	for _, t := range d.Transitions {
		k := key{t.Start.State, t.End.State}
		if i, ok := index[k]; ok {
			if t.Symbol != "" {
				if out[i].label != "" {
					out[i].label += ", "
				}
				out[i].label += t.Symbol
			}
			continue
		}
		index[k] = len(out)
		out = append(out, edgeGroup{from: k.from, to: k.to, label: t.Symbol, start: t.Start, end: t.End})
	}
	return out
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "<", "\\<")
	s = strings.ReplaceAll(s, ">", "\\>")
	return s
}
