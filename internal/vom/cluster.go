package vom

import (
	"strings"

	"github.com/agent-tui/agent-tuid/internal/term"
)

// ClusterGrid walks each row of the grid left to right and groups adjacent
// cells sharing the same style into Clusters. Whitespace-only clusters
// are kept (tagged via IsWhitespace) rather than dropped, so a caller
// doing nth-within-role counting sees the same layout the original grid
// had.
func ClusterGrid(grid [][]term.Cell) []Cluster {
	var clusters []Cluster

	for y, row := range grid {
		if len(row) == 0 {
			continue
		}

		start := 0
		var b strings.Builder
		style := styleOf(row[0])
		b.WriteRune(row[0].Glyph)

		flush := func(endExclusive int) {
			text := b.String()
			clusters = append(clusters, Cluster{
				Rect: Rect{
					X:      start,
					Y:      y,
					Width:  endExclusive - start,
					Height: 1,
				},
				Text:         text,
				Style:        style,
				IsWhitespace: isBlank(text),
			})
			b.Reset()
		}

		for x := 1; x < len(row); x++ {
			cur := styleOf(row[x])
			if !style.equal(cur) {
				flush(x)
				start = x
				style = cur
			}
			b.WriteRune(row[x].Glyph)
		}
		flush(len(row))
	}

	return clusters
}

func styleOf(c term.Cell) ClusterStyle {
	return ClusterStyle{
		Inverse:   c.Style.Inverse,
		BGIndexed: c.Style.BGIndexed,
	}
}

func isBlank(text string) bool {
	for _, r := range text {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

func (a ClusterStyle) equal(b ClusterStyle) bool {
	if a.Inverse != b.Inverse {
		return false
	}
	if (a.BGIndexed == nil) != (b.BGIndexed == nil) {
		return false
	}
	if a.BGIndexed != nil && *a.BGIndexed != *b.BGIndexed {
		return false
	}
	return true
}
