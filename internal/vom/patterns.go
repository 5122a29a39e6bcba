// Package vom implements the Visual Object Model: clustering the terminal
// grid into same-style runs, classifying each run into a typed Role, and
// rendering the result into an accessibility-style snapshot with stable
// element refs.
package vom

import "strings"

var (
	brailleSpinners = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}
	circleSpinners  = []rune{'◐', '◑', '◒', '◓'}
	statusChars     = []rune{'✓', '✔', '✗', '✘'}
	roundedCorners  = []rune{'╭', '╮', '╰', '╯'}
	boxChars        = []rune{
		'─', '│', '┌', '┐', '└', '┘', '├', '┤', '┬', '┴', '┼', '═', '║', '╔', '╗', '╚', '╝', '╠', '╣',
		'╦', '╩', '╬',
	}
	progressBarChars = []rune{'=', '>', '#', '.', '█', '▓', '░', '-'}
	progressFilled   = []rune{'█', '▓', '▒', '='}
	progressEmpty    = []rune{'░', '▒', ' ', '.'}
	cornerChars      = []rune{'┌', '┐', '└', '┘', '╭', '╮', '╰', '╯'}
	errorPrefixes    = []string{"Error:", "error:", "ERROR:", "Error ", "error ", "ERROR "}
	failureChars     = []rune{'✗', '✘'}
	fileExtensions   = []string{
		".rs", ".js", ".ts", ".tsx", ".jsx", ".py", ".go", ".java", ".c", ".cpp", ".h", ".hpp",
		".md", ".txt", ".json", ".yaml", ".yml", ".toml", ".html", ".css", ".sh", ".sql", ".xml",
		".vue", ".svelte", ".rb", ".php", ".swift", ".kt", ".scala",
	}
)

const minButtonLength = 3
const progressArrow = '>'
const codeBlockBorder = '│'

func containsRune(set []rune, r rune) bool {
	for _, c := range set {
		if c == r {
			return true
		}
	}
	return false
}

func isButtonText(text string) bool {
	if len(text) < minButtonLength {
		return false
	}

	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		inner := text[1 : len(text)-1]
		trimmed := strings.TrimSpace(inner)
		switch trimmed {
		case "x", "X", " ", "", "✓", "✔":
			return false
		}

		for _, c := range inner {
			if isAlpha(c) {
				return true
			}
		}

		progressCount, nonSpace := 0, 0
		for _, c := range inner {
			if containsRune(progressBarChars, c) {
				progressCount++
			}
			if c != ' ' && c != '\t' {
				nonSpace++
			}
		}
		if nonSpace > 0 && progressCount > nonSpace/2 {
			return false
		}
		return true
	}

	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		inner := text[1 : len(text)-1]
		trimmed := strings.TrimSpace(inner)
		switch trimmed {
		case "", " ", "o", "O", "●", "◉":
			return false
		}
		return true
	}

	return strings.HasPrefix(text, "<") && strings.HasSuffix(text, ">")
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isInputField(text string) bool {
	if strings.Contains(text, "___") {
		return true
	}
	if text != "" && strings.Count(text, "_") == len([]rune(text)) {
		allUnderscore := true
		for _, r := range text {
			if r != '_' {
				allUnderscore = false
				break
			}
		}
		if allUnderscore {
			return true
		}
	}
	if strings.HasSuffix(text, ": _") || strings.HasSuffix(text, ":_") {
		return true
	}
	return false
}

func isCheckbox(text string) bool {
	switch text {
	case "[x]", "[X]", "[ ]", "[✓]", "[✔]", "◉", "◯", "●", "○", "◼", "◻", "☐", "☑", "☒":
		return true
	}
	return false
}

const menuItemDashPrefix = "- "

func isMenuItem(text string) bool {
	return strings.HasPrefix(text, ">") ||
		strings.HasPrefix(text, "❯") ||
		strings.HasPrefix(text, "›") ||
		strings.HasPrefix(text, "→") ||
		strings.HasPrefix(text, "▶") ||
		strings.HasPrefix(text, "• ") ||
		strings.HasPrefix(text, "* ") ||
		strings.HasPrefix(text, menuItemDashPrefix)
}

func isPanelBorder(text string) bool {
	total := 0
	for _, r := range text {
		if r != ' ' && r != '\t' {
			total++
		}
	}
	if total == 0 {
		return false
	}
	boxCount := 0
	for _, r := range text {
		if containsRune(boxChars, r) {
			boxCount++
		}
	}
	return boxCount > total/2
}

func isStatusIndicator(text string) bool {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) == 0 {
		return false
	}
	first := runes[0]
	return containsRune(brailleSpinners, first) || containsRune(circleSpinners, first) || containsRune(statusChars, first)
}

func isToolBlockBorder(text string) bool {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) == 0 {
		return false
	}
	first := runes[0]
	last := runes[len(runes)-1]
	return containsRune(roundedCorners, first) || containsRune(roundedCorners, last)
}

func isPromptMarker(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == ">" || text == "> "
}

func isProgressBar(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		inner := text[1 : len(text)-1]
		if inner == "" {
			return false
		}
		innerRunes := []rune(inner)
		progressCount, emptyCount := 0, 0
		for _, c := range innerRunes {
			if containsRune(progressFilled, c) || c == progressArrow || c == '#' {
				progressCount++
			}
			if containsRune(progressEmpty, c) || c == '-' {
				emptyCount++
			}
		}
		return progressCount+emptyCount > len(innerRunes)/2
	}

	runes := []rune(text)
	progressCount := 0
	for _, c := range runes {
		if containsRune(progressFilled, c) || containsRune(progressEmpty, c) {
			progressCount++
		}
	}
	return progressCount > len(runes)/2
}

func isLink(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if strings.HasPrefix(text, "https://") || strings.HasPrefix(text, "http://") ||
		strings.HasPrefix(text, "file://") || strings.HasPrefix(text, "ftp://") {
		return true
	}
	return isFilePath(text)
}

func isFilePath(text string) bool {
	pathPart := text
	if idx := strings.Index(text, ":"); idx >= 0 {
		pathPart = text[:idx]
	}

	if strings.HasPrefix(pathPart, "/") && len(pathPart) > 1 {
		return hasFileExtension(pathPart) || strings.Contains(pathPart, "/")
	}
	if strings.HasPrefix(pathPart, "./") || strings.HasPrefix(pathPart, "../") {
		return true
	}
	if strings.Contains(pathPart, "/") && hasFileExtension(pathPart) {
		return true
	}
	return false
}

func hasFileExtension(text string) bool {
	for _, ext := range fileExtensions {
		if strings.HasSuffix(text, ext) {
			return true
		}
	}
	return false
}

func isErrorMessage(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	runes := []rune(text)
	if len(runes) > 0 && containsRune(failureChars, runes[0]) {
		return true
	}
	return false
}

func isDiffLine(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if strings.HasPrefix(text, "@@") {
		return true
	}
	if strings.HasPrefix(text, "+") && len(text) > 1 {
		return true
	}
	if strings.HasPrefix(text, "-") && len(text) > 1 {
		return true
	}
	return false
}

func isCodeBlockBorder(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if !strings.ContainsRune(text, codeBlockBorder) {
		return false
	}
	for _, c := range text {
		if containsRune(cornerChars, c) {
			return false
		}
	}
	borderCount := strings.Count(text, string(codeBlockBorder))
	return borderCount >= 1 && borderCount <= 3
}
