package vom

import (
	"strings"
	"testing"
)

func makeComponent(role Role, text string, x, y, width int) Component {
	return Component{
		ID:         newComponentID(),
		Role:       role,
		Bounds:     Rect{X: x, Y: y, Width: width, Height: 1},
		Text:       text,
		VisualHash: 12345,
	}
}

func TestSnapshotTextFormatButton(t *testing.T) {
	components := []Component{makeComponent(RoleButton, "[ OK ]", 10, 5, 6)}
	snap := FormatSnapshot(components, SnapshotOptions{})

	if !strings.Contains(snap.Tree, "button") {
		t.Error("expected tree to contain role name")
	}
	if !strings.Contains(snap.Tree, "[ref=e1]") {
		t.Error("expected tree to contain ref")
	}
	if !strings.Contains(snap.Tree, "[ OK ]") {
		t.Error("expected tree to contain text")
	}
}

func TestSnapshotTextFormatMultiple(t *testing.T) {
	components := []Component{
		makeComponent(RoleButton, "[ OK ]", 10, 5, 6),
		makeComponent(RoleInput, ">", 0, 0, 1),
		makeComponent(RoleStaticText, "Hello", 0, 1, 5),
	}
	snap := FormatSnapshot(components, SnapshotOptions{})

	for _, ref := range []string{"[ref=e1]", "[ref=e2]", "[ref=e3]"} {
		if !strings.Contains(snap.Tree, ref) {
			t.Errorf("expected tree to contain %s", ref)
		}
	}
}

func TestSnapshotRefsSequential(t *testing.T) {
	components := []Component{
		makeComponent(RoleButton, "A", 0, 0, 1),
		makeComponent(RoleButton, "B", 5, 0, 1),
	}
	snap := FormatSnapshot(components, SnapshotOptions{})

	a, ok := snap.Refs.Get("e1")
	if !ok || a.Nth != 0 {
		t.Errorf("expected e1 nth=0, got %+v ok=%v", a, ok)
	}
	b, ok := snap.Refs.Get("e2")
	if !ok || b.Nth != 1 {
		t.Errorf("expected e2 nth=1 (same role, second occurrence), got %+v ok=%v", b, ok)
	}
}

func TestSnapshotInteractiveOnlyFiltersStaticText(t *testing.T) {
	components := []Component{
		makeComponent(RoleButton, "[ OK ]", 0, 0, 6),
		makeComponent(RoleStaticText, "just text", 0, 1, 9),
	}
	snap := FormatSnapshot(components, SnapshotOptions{InteractiveOnly: true})

	if snap.Stats.Total != 1 {
		t.Errorf("expected 1 element in interactive-only snapshot, got %d", snap.Stats.Total)
	}
	if strings.Contains(snap.Tree, "just text") {
		t.Error("expected static text to be filtered out")
	}
}

func TestSnapshotStatsCountInteractive(t *testing.T) {
	components := []Component{
		makeComponent(RoleButton, "[ OK ]", 0, 0, 6),
		makeComponent(RolePanel, "┌───┐", 0, 1, 5),
	}
	snap := FormatSnapshot(components, SnapshotOptions{})
	if snap.Stats.Total != 2 || snap.Stats.Interactive != 1 {
		t.Errorf("unexpected stats: %+v", snap.Stats)
	}
}

func TestParseRef(t *testing.T) {
	cases := map[string]string{
		"@e3":    "e3",
		"ref=e3": "e3",
		"e3":     "e3",
	}
	for in, want := range cases {
		got, ok := ParseRef(in)
		if !ok || got != want {
			t.Errorf("ParseRef(%q) = %q, %v; want %q, true", in, got, ok, want)
		}
	}
	if _, ok := ParseRef("not-a-ref"); ok {
		t.Error("expected ParseRef to reject a non-ref string")
	}
	if _, ok := ParseRef("e"); ok {
		t.Error("expected ParseRef to reject bare 'e' with no digits")
	}
}
