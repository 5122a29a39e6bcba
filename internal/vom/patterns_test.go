package vom

import "testing"

func TestButtonPatterns(t *testing.T) {
	for _, text := range []string{"[Submit]", "[OK]", "<Cancel>", "(Confirm)", "[Y]", "[N]"} {
		if !isButtonText(text) {
			t.Errorf("expected %q to be a button", text)
		}
	}
	for _, text := range []string{"[x]", "[ ]", "[]", "X"} {
		if isButtonText(text) {
			t.Errorf("expected %q not to be a button", text)
		}
	}
}

func TestInputFieldPatterns(t *testing.T) {
	for _, text := range []string{"Name: ___", "___________", "Value: _", "_"} {
		if !isInputField(text) {
			t.Errorf("expected %q to be an input field", text)
		}
	}
	for _, text := range []string{"Hello", ""} {
		if isInputField(text) {
			t.Errorf("expected %q not to be an input field", text)
		}
	}
}

func TestCheckboxPatterns(t *testing.T) {
	for _, text := range []string{"[x]", "[ ]", "☐", "☑"} {
		if !isCheckbox(text) {
			t.Errorf("expected %q to be a checkbox", text)
		}
	}
	for _, text := range []string{"[Submit]", "text"} {
		if isCheckbox(text) {
			t.Errorf("expected %q not to be a checkbox", text)
		}
	}
}

func TestStatusIndicatorPatterns(t *testing.T) {
	for _, text := range []string{"⠋ Loading...", "✓ Done", "✔ Complete"} {
		if !isStatusIndicator(text) {
			t.Errorf("expected %q to be a status indicator", text)
		}
	}
	for _, text := range []string{"Hello", ""} {
		if isStatusIndicator(text) {
			t.Errorf("expected %q not to be a status indicator", text)
		}
	}
}

func TestToolBlockPatterns(t *testing.T) {
	if !isToolBlockBorder("╭─── Tool Use ───╮") || !isToolBlockBorder("╰────────────────╯") {
		t.Error("expected rounded-corner borders to be tool blocks")
	}
	if isToolBlockBorder("┌─────────┐") || isToolBlockBorder("Hello") {
		t.Error("expected square-corner border and plain text not to be tool blocks")
	}
}

func TestPromptMarkerPatterns(t *testing.T) {
	if !isPromptMarker(">") || !isPromptMarker("> ") {
		t.Error("expected bare > to be a prompt marker")
	}
	if isPromptMarker(">>") || isPromptMarker("Hello") {
		t.Error("expected >> and plain text not to be prompt markers")
	}
}

func TestPanelBorderPatterns(t *testing.T) {
	for _, text := range []string{"┌──────────┐", "│          │", "└──────────┘"} {
		if !isPanelBorder(text) {
			t.Errorf("expected %q to be a panel border", text)
		}
	}
	if isPanelBorder("Hello World") {
		t.Error("expected plain text not to be a panel border")
	}
}

func TestMenuItemPatterns(t *testing.T) {
	for _, text := range []string{"> Option 1", "❯ Selected", "• Item", "- List item"} {
		if !isMenuItem(text) {
			t.Errorf("expected %q to be a menu item", text)
		}
	}
	if isMenuItem("Normal text") {
		t.Error("expected plain text not to be a menu item")
	}
}

func TestProgressBarBlockStyle(t *testing.T) {
	for _, text := range []string{"████░░░░", "▓▓▓▓░░░░", "███████░░░"} {
		if !isProgressBar(text) {
			t.Errorf("expected %q to be a progress bar", text)
		}
	}
}

func TestProgressBarBracketStyle(t *testing.T) {
	for _, text := range []string{"[===>    ]", "[####....]", "[========]"} {
		if !isProgressBar(text) {
			t.Errorf("expected %q to be a progress bar", text)
		}
	}
}

func TestProgressBarThreshold(t *testing.T) {
	if !isProgressBar("████████") {
		t.Error("expected full block run to be a progress bar")
	}
	if isProgressBar("█ text here") {
		t.Error("expected mostly-text line not to be a progress bar")
	}
}

func TestProgressBarNotRegularText(t *testing.T) {
	for _, text := range []string{"Hello World", "Loading...", ""} {
		if isProgressBar(text) {
			t.Errorf("expected %q not to be a progress bar", text)
		}
	}
}

func TestLinkURLs(t *testing.T) {
	for _, text := range []string{
		"https://example.com", "http://localhost:3000", "file:///path/to/file", "https://github.com/user/repo",
	} {
		if !isLink(text) {
			t.Errorf("expected %q to be a link", text)
		}
	}
}

func TestLinkFilePaths(t *testing.T) {
	for _, text := range []string{"src/main.rs", "/absolute/path.txt", "./relative/path.js", "../parent/file.py"} {
		if !isLink(text) {
			t.Errorf("expected %q to be a link", text)
		}
	}
}

func TestLinkFilePathsWithLineNumbers(t *testing.T) {
	if !isLink("src/main.rs:42") {
		t.Error("expected file:line to be a link")
	}
}

func TestLinkNotRegularText(t *testing.T) {
	for _, text := range []string{"Hello World", "just some text", ""} {
		if isLink(text) {
			t.Errorf("expected %q not to be a link", text)
		}
	}
}

func TestErrorMessagePrefixes(t *testing.T) {
	for _, text := range []string{"Error: something failed", "error: oops", "ERROR: bad"} {
		if !isErrorMessage(text) {
			t.Errorf("expected %q to be an error message", text)
		}
	}
}

func TestErrorMessageFailureMarkers(t *testing.T) {
	if !isErrorMessage("✗ Failed to compile") || !isErrorMessage("✘ Failed") {
		t.Error("expected failure glyph prefixes to be error messages")
	}
}

func TestErrorMessageNotRegularText(t *testing.T) {
	if isErrorMessage("Hello") || isErrorMessage("") {
		t.Error("expected plain text not to be an error message")
	}
}

func TestDiffLineAdditions(t *testing.T) {
	if !isDiffLine("+ added line") {
		t.Error("expected + prefixed line to be a diff line")
	}
}

func TestDiffLineDeletions(t *testing.T) {
	if !isDiffLine("-removed_line") {
		t.Error("expected - prefixed line to be a diff line")
	}
}

func TestDiffLineHeaders(t *testing.T) {
	if !isDiffLine("@@ -1,5 +1,6 @@") {
		t.Error("expected @@ header to be a diff line")
	}
}

func TestDiffLineNotRegularText(t *testing.T) {
	if isDiffLine("Hello World") || isDiffLine("") {
		t.Error("expected plain text not to be a diff line")
	}
}

func TestCodeBlockBorder(t *testing.T) {
	if !isCodeBlockBorder("│ let x = 5;") {
		t.Error("expected single vertical bar line to be a code block border")
	}
}

func TestCodeBlockNotPanelBorder(t *testing.T) {
	if isCodeBlockBorder("┌──────────┐") {
		t.Error("expected a corner-bearing border not to be a code block border")
	}
}

func TestCodeBlockNotRegularText(t *testing.T) {
	if isCodeBlockBorder("Hello World") || isCodeBlockBorder("") {
		t.Error("expected plain text not to be a code block border")
	}
}
