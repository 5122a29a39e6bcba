package vom

import "testing"

func cluster(text string, x, y int) Cluster {
	return Cluster{Rect: Rect{X: x, Y: y, Width: len(text), Height: 1}, Text: text}
}

func inverseCluster(text string, x, y int) Cluster {
	c := cluster(text, x, y)
	c.Style.Inverse = true
	return c
}

func bgIndexedCluster(text string, x, y int, idx uint8) Cluster {
	c := cluster(text, x, y)
	c.Style.BGIndexed = &idx
	return c
}

func noCursor() CursorPosition { return CursorPosition{Row: 99, Col: 99} }

func defaultOpts() ClassifyOptions { return DefaultClassifyOptions() }

func TestButtonDetection(t *testing.T) {
	if role := inferRole(cluster("[Submit]", 0, 0), noCursor(), defaultOpts()); role != RoleButton {
		t.Errorf("got %v, want Button", role)
	}
}

func TestCheckboxNotButton(t *testing.T) {
	if role := inferRole(cluster("[x]", 0, 0), noCursor(), defaultOpts()); role != RoleCheckbox {
		t.Errorf("got %v, want Checkbox", role)
	}
}

func TestInputFromCursor(t *testing.T) {
	role := inferRole(cluster("Hello", 0, 0), CursorPosition{Row: 0, Col: 2, Visible: true}, defaultOpts())
	if role != RoleInput {
		t.Errorf("got %v, want Input", role)
	}
}

func TestInputFromUnderscores(t *testing.T) {
	if role := inferRole(cluster("Name: ___", 0, 0), noCursor(), defaultOpts()); role != RoleInput {
		t.Errorf("got %v, want Input", role)
	}
}

func TestTabFromInverse(t *testing.T) {
	if role := inferRole(inverseCluster("Tab1", 0, 0), noCursor(), defaultOpts()); role != RoleTab {
		t.Errorf("got %v, want Tab", role)
	}
}

func TestTabFromBlueBg(t *testing.T) {
	if role := inferRole(bgIndexedCluster("Tab2", 0, 0, 4), noCursor(), defaultOpts()); role != RoleTab {
		t.Errorf("got %v, want Tab", role)
	}
}

func TestMenuItemOutsideTabThreshold(t *testing.T) {
	if role := inferRole(inverseCluster("Option", 0, 5), noCursor(), defaultOpts()); role != RoleMenuItem {
		t.Errorf("got %v, want MenuItem", role)
	}
}

func TestTabRowThresholdConfigurable(t *testing.T) {
	c := inverseCluster("Option", 0, 5)
	if role := inferRole(c, noCursor(), defaultOpts()); role != RoleMenuItem {
		t.Errorf("got %v, want MenuItem at default threshold", role)
	}
	if role := inferRole(c, noCursor(), ClassifyOptions{TabRowThreshold: 5}); role != RoleTab {
		t.Errorf("got %v, want Tab at threshold 5", role)
	}
}

func TestMenuItemWithFilePathNotLink(t *testing.T) {
	if role := inferRole(cluster("> src/main.rs", 0, 5), noCursor(), defaultOpts()); role != RoleMenuItem {
		t.Errorf("got %v, want MenuItem (file path after menu prefix)", role)
	}
}

func TestDashListItemNotDiffLine(t *testing.T) {
	if role := inferRole(cluster("- List item", 0, 5), noCursor(), defaultOpts()); role != RoleMenuItem {
		t.Errorf("got %v, want MenuItem (dash list item)", role)
	}
}

func TestPromptMarkerBeforeMenuItem(t *testing.T) {
	if role := inferRole(cluster(">", 0, 5), noCursor(), defaultOpts()); role != RolePromptMarker {
		t.Errorf("got %v, want PromptMarker", role)
	}
}

func TestProgressBarDetection(t *testing.T) {
	if role := inferRole(cluster("████░░░░", 0, 5), noCursor(), defaultOpts()); role != RoleProgressBar {
		t.Errorf("got %v, want ProgressBar", role)
	}
}

func TestLinkURLDetection(t *testing.T) {
	if role := inferRole(cluster("https://example.com", 0, 5), noCursor(), defaultOpts()); role != RoleLink {
		t.Errorf("got %v, want Link", role)
	}
}

func TestErrorMessageDetection(t *testing.T) {
	if role := inferRole(cluster("Error: something failed", 0, 5), noCursor(), defaultOpts()); role != RoleErrorMessage {
		t.Errorf("got %v, want ErrorMessage", role)
	}
}

func TestDiffLineAdditionDetection(t *testing.T) {
	if role := inferRole(cluster("+ added line", 0, 5), noCursor(), defaultOpts()); role != RoleDiffLine {
		t.Errorf("got %v, want DiffLine", role)
	}
}

func TestCodeBlockDetection(t *testing.T) {
	if role := inferRole(cluster("│ let x = 5;", 0, 5), noCursor(), defaultOpts()); role != RoleCodeBlock {
		t.Errorf("got %v, want CodeBlock", role)
	}
}

func TestCursorTakesPriorityOverButton(t *testing.T) {
	role := inferRole(cluster("[Submit]", 0, 0), CursorPosition{Row: 0, Col: 2, Visible: true}, defaultOpts())
	if role != RoleInput {
		t.Errorf("got %v, want Input (cursor priority over button pattern)", role)
	}
}

func TestSelectedViaInverse(t *testing.T) {
	components := Classify([]Cluster{inverseCluster("Option 1", 0, 5)}, noCursor(), defaultOpts())
	if !components[0].Selected {
		t.Error("expected inverse-styled cluster to be selected")
	}
}

func TestSelectedViaPrefix(t *testing.T) {
	components := Classify([]Cluster{cluster("❯ Selected Option", 0, 5)}, noCursor(), defaultOpts())
	if !components[0].Selected {
		t.Error("expected ❯-prefixed cluster to be selected")
	}
}

func TestNotSelectedByDefault(t *testing.T) {
	components := Classify([]Cluster{cluster("Normal Option", 0, 5)}, noCursor(), defaultOpts())
	if components[0].Selected {
		t.Error("expected plain cluster not to be selected")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	clusters := []Cluster{cluster("[OK]", 0, 0), cluster("Hello", 0, 1)}
	a := Classify(clusters, noCursor(), defaultOpts())
	b := Classify(clusters, noCursor(), defaultOpts())
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Role != b[i].Role || a[i].VisualHash != b[i].VisualHash || a[i].Text != b[i].Text {
			t.Errorf("index %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
