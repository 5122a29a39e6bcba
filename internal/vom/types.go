package vom

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Rect is a rectangular region of the grid in (col, row) cell units.
type Rect struct {
	X, Y, Width, Height int
}

// Cluster is a contiguous horizontal run of same-style cells on one row.
type Cluster struct {
	Rect        Rect
	Text        string
	Style       ClusterStyle
	IsWhitespace bool
}

// ClusterStyle is the subset of cell style the classifier reasons about.
type ClusterStyle struct {
	Inverse   bool
	BGIndexed *uint8
}

// Role is the tagged variant a Cluster is classified into.
type Role int

const (
	RoleButton Role = iota
	RoleTab
	RoleInput
	RoleCheckbox
	RoleMenuItem
	RolePromptMarker
	RolePanel
	RoleToolBlock
	RoleCodeBlock
	RoleStatus
	RoleProgressBar
	RoleLink
	RoleErrorMessage
	RoleDiffLine
	RoleStaticText
)

var roleNames = map[Role]string{
	RoleButton:       "button",
	RoleTab:          "tab",
	RoleInput:        "input",
	RoleCheckbox:     "checkbox",
	RoleMenuItem:     "menu_item",
	RolePromptMarker: "prompt_marker",
	RolePanel:        "panel",
	RoleToolBlock:    "tool_block",
	RoleCodeBlock:    "code_block",
	RoleStatus:       "status",
	RoleProgressBar:  "progress_bar",
	RoleLink:         "link",
	RoleErrorMessage: "error_message",
	RoleDiffLine:     "diff_line",
	RoleStaticText:   "static_text",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "static_text"
}

// IsInteractive reports whether the role is one a click/fill/focus use
// case can target. Link is deliberately excluded: is_interactive is the
// authoritative signal and a link in a terminal transcript is rarely a
// clickable element the daemon can act on.
func (r Role) IsInteractive() bool {
	switch r {
	case RoleButton, RoleTab, RoleInput, RoleCheckbox, RoleMenuItem, RolePromptMarker:
		return true
	default:
		return false
	}
}

// Component is a classified, addressable region of the grid.
type Component struct {
	ID         uuid.UUID
	Role       Role
	Bounds     Rect
	Text       string
	VisualHash uint64
	Selected   bool
}

// CursorPosition is the emulator cursor state the classifier checks
// clusters against to detect Input fields under an active caret.
type CursorPosition struct {
	Row     int
	Col     int
	Visible bool
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func formatLine(role Role, text, ref string) string {
	name := strings.TrimSpace(text)
	if name == "" {
		return fmt.Sprintf("- %s [ref=%s]", role, ref)
	}
	return fmt.Sprintf("- %s \"%s\" [ref=%s]", role, escapeQuotes(name), ref)
}
