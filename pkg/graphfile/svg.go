package graphfile

import (
	"fmt"
	"html"
	"strings"
)

// RenderSVG renders d to SVG, placing states where the editor left them.
func RenderSVG(d Document, opts Options) string {
	sc := layoutScene(d, opts)
	opts = sc.opts
	r := sc.radius

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<defs>
  <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
    <polygon points="0 0, 10 3.5, 0 7" fill="#333"/>
  </marker>
  <marker id="arrowhead-self" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
    <polygon points="0 0, 10 3.5, 0 7" fill="#666"/>
  </marker>
</defs>
<style>
  .state { fill: white; stroke: #333; stroke-width: 2; }
  .state-initial { fill: #e8f5e9; stroke: #2e7d32; stroke-width: 2; }
  .state-accepting { fill: #fff3e0; stroke: #e65100; stroke-width: 2; }
  .state-both { fill: #e3f2fd; stroke: #1565c0; stroke-width: 2; }
  .state-label { font-family: sans-serif; font-size: %dpx; text-anchor: middle; dominant-baseline: middle; }
  .transition { fill: none; stroke: #333; stroke-width: 1.5; marker-end: url(#arrowhead); }
  .transition-self { fill: none; stroke: #666; stroke-width: 1.5; marker-end: url(#arrowhead-self); }
  .trans-label { font-family: sans-serif; font-size: %dpx; fill: #333; text-anchor: middle; }
  .title { font-family: sans-serif; font-size: %dpx; font-weight: bold; text-anchor: middle; }
</style>
`, opts.Width, opts.Height, opts.Width, opts.Height, opts.FontSize, opts.LabelSize, opts.TitleSize))

	sb.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>
`, opts.Width, opts.Height))

	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="25" class="title">%s</text>
`, opts.Width/2, html.EscapeString(opts.Title)))
	}

	// Transitions go under the states.
	for _, e := range sc.edges {
		switch e.kind {
		case edgeSelf:
			x, y := e.center.X, e.center.Y
			loop := r * 0.6
			sb.WriteString(fmt.Sprintf(`<path d="M%.1f,%.1f C%.1f,%.1f %.1f,%.1f %.1f,%.1f" class="transition-self"/>
`, x-r*0.7, y-r*0.7, x-loop*1.5, y-r-loop*2, x+loop*1.5, y-r-loop*2, x+r*0.7, y-r*0.7))
		case edgeCurved:
			sb.WriteString(fmt.Sprintf(`<path d="M%.1f,%.1f Q%.1f,%.1f %.1f,%.1f" class="transition"/>
`, e.from.X, e.from.Y, e.control.X, e.control.Y, e.to.X, e.to.Y))
		default:
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" class="transition"/>
`, e.from.X, e.from.Y, e.to.X, e.to.Y))
		}
		if e.label != "" {
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" class="trans-label">%s</text>
`, e.labelAt.X, e.labelAt.Y, html.EscapeString(e.label)))
		}
	}

	for _, s := range sc.states {
		x, y := s.at.X, s.at.Y

		if s.initial {
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" class="transition"/>
`, x-r-30, y, x-r-2, y))
		}

		class := stateClass(s)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" class="%s"/>
`, x, y, r, class))
		if s.accepting {
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" class="%s" fill="none"/>
`, x, y, r-4, class))
		}
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" class="state-label">%s</text>
`, x, y, html.EscapeString(s.id)))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func stateClass(s sceneState) string {
	switch {
	case s.initial && s.accepting:
		return "state-both"
	case s.initial:
		return "state-initial"
	case s.accepting:
		return "state-accepting"
	}
	return "state"
}
