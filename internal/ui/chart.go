package ui

import (
	"fmt"
	"strings"
)

var blocks = []rune(" ▁▂▃▄▅▆▇█")

// ScaleWidth is the width of the value labels left of a chart.
const ScaleWidth = 10

// Window returns the [start, end) range of n points that fits in width
// columns when the view is panned back by offset points from the newest.
func Window(n, width, offset int) (start, end int) {
	if width < 1 {
		width = 1
	}
	if offset < 0 {
		offset = 0
	}
	end = n - offset
	if end < 0 {
		end = 0
	}
	start = end - width
	if start < 0 {
		start = 0
	}
	return start, end
}

// Chart renders values as a block chart height rows tall, one column per
// value, with min and max labels on the left. Values are not styled.
func Chart(values []float64, height int) []string {
	if height < 1 {
		height = 1
	}

	lines := make([]string, height)
	if len(values) == 0 {
		for i := range lines {
			lines[i] = strings.Repeat(" ", ScaleWidth) + "│"
		}
		return lines
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	// Column heights in eighths of a row, at least one eighth so every
	// point is visible.
	levels := height * 8
	heights := make([]int, len(values))
	for i, v := range values {
		if hi == lo {
			heights[i] = levels / 2
			continue
		}
		heights[i] = 1 + int((v-lo)/(hi-lo)*float64(levels-1))
	}

	for row := 0; row < height; row++ {
		base := (height - 1 - row) * 8
		var b strings.Builder
		for _, h := range heights {
			fill := h - base
			switch {
			case fill >= 8:
				b.WriteRune(blocks[8])
			case fill <= 0:
				b.WriteRune(blocks[0])
			default:
				b.WriteRune(blocks[fill])
			}
		}

		label := ""
		switch row {
		case 0:
			label = formatScale(hi)
		case height - 1:
			label = formatScale(lo)
		}
		lines[row] = fmt.Sprintf("%*s│", ScaleWidth, label) + b.String()
	}
	return lines
}

func formatScale(v float64) string {
	s := fmt.Sprintf("%.3f ", v)
	if len(s) > ScaleWidth {
		s = fmt.Sprintf("%.2g ", v)
	}
	return s
}
