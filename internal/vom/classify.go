package vom

import "strings"

// ANSI indexed color codes that read as a highlighted tab strip in most
// terminal UIs.
const (
	tabBGBlue = 4
	tabBGCyan = 6
)

// ClassifyOptions tunes the one genuinely ambiguous rule in the
// classifier: how close to the top of the screen an inverse-styled
// cluster has to be before it's a Tab rather than a selected MenuItem.
type ClassifyOptions struct {
	TabRowThreshold int
}

// DefaultClassifyOptions matches the reference classifier's tuning.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{TabRowThreshold: 2}
}

// Classify assigns a Role (and selection state) to every cluster. Order
// matters: clusters are resolved in the grid-walk order ClusterGrid
// produced them in, and the priority chain inside inferRole decides
// between overlapping patterns.
func Classify(clusters []Cluster, cursor CursorPosition, options ClassifyOptions) []Component {
	components := make([]Component, 0, len(clusters))
	for _, c := range clusters {
		role := inferRole(c, cursor, options)
		components = append(components, Component{
			ID:         newComponentID(),
			Role:       role,
			Bounds:     c.Rect,
			Text:       c.Text,
			VisualHash: hashCluster(role, c),
			Selected:   isSelected(c),
		})
	}
	return components
}

func isSelected(c Cluster) bool {
	return c.Style.Inverse || strings.HasPrefix(c.Text, "❯")
}

// inferRole walks the classification priority chain below, in order;
// the first matching rule wins. PromptMarker must be
// checked before MenuItem ("> " alone is a prompt, not a menu item), and
// MenuItem before Link/DiffLine (a dash- or arrow-prefixed line is a menu
// entry even when its text also looks like a file path or a diff).
func inferRole(c Cluster, cursor CursorPosition, options ClassifyOptions) Role {
	text := strings.TrimSpace(c.Text)

	if c.Rect.Y == cursor.Row && cursor.Col >= c.Rect.X && cursor.Col < c.Rect.X+c.Rect.Width {
		return RoleInput
	}

	if isButtonText(text) {
		return RoleButton
	}

	if c.Style.Inverse {
		if c.Rect.Y <= options.TabRowThreshold {
			return RoleTab
		}
		return RoleMenuItem
	}

	if c.Style.BGIndexed != nil {
		idx := *c.Style.BGIndexed
		if idx == tabBGBlue || idx == tabBGCyan {
			return RoleTab
		}
	}

	if isErrorMessage(text) {
		return RoleErrorMessage
	}

	if isInputField(text) {
		return RoleInput
	}

	if isCheckbox(text) {
		return RoleCheckbox
	}

	if isPromptMarker(text) {
		return RolePromptMarker
	}

	if isMenuItem(text) {
		return RoleMenuItem
	}

	if isLink(text) {
		return RoleLink
	}

	if isProgressBar(text) {
		return RoleProgressBar
	}

	if isDiffLine(text) {
		return RoleDiffLine
	}

	if isToolBlockBorder(text) {
		return RoleToolBlock
	}

	if isCodeBlockBorder(text) {
		return RoleCodeBlock
	}

	if isPanelBorder(text) {
		return RolePanel
	}

	if isStatusIndicator(text) {
		return RoleStatus
	}

	return RoleStaticText
}
