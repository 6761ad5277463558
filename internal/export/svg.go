package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Palette cycles through stroke colors, one per trace column.
var Palette = []string{"#00ffff", "#ff00ff", "#00ff00", "#ffaa00", "#ff5555"}

// TraceToSVG draws every column of t against x as a polyline. Non-finite
// samples break the line instead of being plotted.
func TraceToSVG(t *dynamo.Trace, width, height int) string {
	if t == nil || len(t.Samples) < 2 {
		return ""
	}

	minX, maxX := t.Samples[0].X, t.Samples[len(t.Samples)-1].X
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range t.Samples {
		for _, v := range s.State {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}
	if math.IsInf(minY, 1) {
		minY, maxY = -1, 1
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for col, name := range t.Names {
		var d strings.Builder
		pen := false
		for _, s := range t.Samples {
			v := s.State[col]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				pen = false
				continue
			}
			x := (s.X - minX) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if pen {
				d.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			} else {
				if d.Len() > 0 {
					d.WriteByte(' ')
				}
				d.WriteString(fmt.Sprintf("M%.1f,%.1f", x, y))
				pen = true
			}
		}
		if d.Len() == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path data-name="%s" fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, escape(name), Palette[col%len(Palette)], d.String()))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;").Replace(s)
}
