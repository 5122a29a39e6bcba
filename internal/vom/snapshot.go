package vom

import (
	"strconv"
	"strings"
)

// SnapshotOptions controls what the rendered tree includes.
type SnapshotOptions struct {
	InteractiveOnly bool
}

// Bounds is the RPC-facing rectangle shape (Rect without the vom package
// name leaking into the wire format).
type Bounds struct {
	X, Y, Width, Height int
}

// ElementRef is one entry of a snapshot's ref map: everything a later
// click/fill/assert use case needs to re-locate and act on the element
// by its `eN` reference.
type ElementRef struct {
	Role       string
	Name       string
	HasName    bool
	Bounds     Bounds
	VisualHash uint64
	Nth        int
	Selected   bool
}

// RefMap is a snapshot's `eN -> ElementRef` lookup table.
type RefMap struct {
	Refs map[string]ElementRef
}

// Get looks up a ref, accepting the bare "eN" form.
func (m RefMap) Get(ref string) (ElementRef, bool) {
	e, ok := m.Refs[ref]
	return e, ok
}

// SnapshotStats summarizes a rendered snapshot.
type SnapshotStats struct {
	Total       int
	Interactive int
	Lines       int
}

// AccessibilitySnapshot is the `snapshot` use case's result: a rendered
// tree of lines plus the ref map and counts backing it.
type AccessibilitySnapshot struct {
	Tree  string
	Refs  RefMap
	Stats SnapshotStats
}

// FormatSnapshot numbers the classified components e1, e2, ... in
// classification order (skipping non-interactive roles when
// InteractiveOnly is set) and renders the accessibility tree plus ref
// map described in the snapshot section of the reference model.
func FormatSnapshot(components []Component, options SnapshotOptions) AccessibilitySnapshot {
	refs := RefMap{Refs: make(map[string]ElementRef, len(components))}
	lines := make([]string, 0, len(components))
	refCounter := 0
	interactiveCount := 0
	roleCounts := make(map[string]int, 16)

	for _, c := range components {
		if options.InteractiveOnly && !c.Role.IsInteractive() {
			continue
		}

		refCounter++
		refID := "e" + strconv.Itoa(refCounter)

		if c.Role.IsInteractive() {
			interactiveCount++
		}

		name := strings.TrimSpace(c.Text)
		roleStr := c.Role.String()

		nth := roleCounts[roleStr]
		roleCounts[roleStr] = nth + 1

		lines = append(lines, formatLine(c.Role, c.Text, refID))

		refs.Refs[refID] = ElementRef{
			Role:       roleStr,
			Name:       name,
			HasName:    name != "",
			Bounds:     Bounds(c.Bounds),
			VisualHash: c.VisualHash,
			Nth:        nth,
			Selected:   c.Selected,
		}
	}

	return AccessibilitySnapshot{
		Tree: strings.Join(lines, "\n"),
		Refs: refs,
		Stats: SnapshotStats{
			Total:       refCounter,
			Interactive: interactiveCount,
			Lines:       len(lines),
		},
	}
}

// ParseRef accepts the three ref syntaxes the RPC layer allows: "@eN",
// "ref=eN", or bare "eN".
func ParseRef(arg string) (string, bool) {
	if stripped, ok := strings.CutPrefix(arg, "@"); ok {
		return stripped, true
	}
	if stripped, ok := strings.CutPrefix(arg, "ref="); ok {
		return stripped, true
	}
	if suffix, ok := strings.CutPrefix(arg, "e"); ok {
		if suffix == "" {
			return "", false
		}
		for _, r := range suffix {
			if r < '0' || r > '9' {
				return "", false
			}
		}
		return arg, true
	}
	return "", false
}
