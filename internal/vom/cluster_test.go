package vom

import (
	"testing"

	"github.com/agent-tui/agent-tuid/internal/term"
)

func cell(r rune) term.Cell { return term.Cell{Glyph: r} }

func inverseCell(r rune) term.Cell {
	c := cell(r)
	c.Style.Inverse = true
	return c
}

func TestClusterGridGroupsSameStyleRun(t *testing.T) {
	row := []term.Cell{cell('H'), cell('i')}
	clusters := ClusterGrid([][]term.Cell{row})
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Text != "Hi" {
		t.Errorf("expected text %q, got %q", "Hi", clusters[0].Text)
	}
	if clusters[0].Rect != (Rect{X: 0, Y: 0, Width: 2, Height: 1}) {
		t.Errorf("unexpected rect: %+v", clusters[0].Rect)
	}
}

func TestClusterGridSplitsOnStyleChange(t *testing.T) {
	row := []term.Cell{cell('A'), inverseCell('B'), inverseCell('C')}
	clusters := ClusterGrid([][]term.Cell{row})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Text != "A" || clusters[1].Text != "BC" {
		t.Errorf("unexpected split: %q / %q", clusters[0].Text, clusters[1].Text)
	}
	if !clusters[1].Style.Inverse {
		t.Error("expected second cluster to carry inverse style")
	}
}

func TestClusterGridTagsWhitespace(t *testing.T) {
	row := []term.Cell{cell(' '), cell(' ')}
	clusters := ClusterGrid([][]term.Cell{row})
	if len(clusters) != 1 || !clusters[0].IsWhitespace {
		t.Errorf("expected a single whitespace-tagged cluster, got %+v", clusters)
	}
}

func TestClusterGridMultipleRows(t *testing.T) {
	rows := [][]term.Cell{
		{cell('A')},
		{cell('B')},
	}
	clusters := ClusterGrid(rows)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters across 2 rows, got %d", len(clusters))
	}
	if clusters[0].Rect.Y != 0 || clusters[1].Rect.Y != 1 {
		t.Errorf("expected clusters tagged to their own row, got %+v", clusters)
	}
}
