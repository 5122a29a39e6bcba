// Package term drives a VT/ANSI terminal emulator over raw PTY output and
// exposes the resulting grid the way the Visual Object Model and snapshot
// RPCs need it: plain text, ANSI-re-rendered text, cursor state, and a
// monotonic revision counter.
//
// The state machine itself is github.com/charmbracelet/x/vt's SafeEmulator;
// this package adds the spec's revision counter, cursor-visibility tracking
// (DECTCEM), and the cell/style extraction the VOM classifier consumes.
package term

import (
	"image/color"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/x/ansi"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/vt"
)

// Style mirrors the spec's CellStyle: the attributes the VOM classifier
// and the ANSI re-renderer both need. BGIndexed carries the raw ANSI
// palette index when the background is a basic/extended indexed color
// (e.g. 4 = blue, 6 = cyan), which the VOM tab heuristic keys off of;
// it is nil for true-color or default backgrounds.
type Style struct {
	FG        color.Color
	BG        color.Color
	BGIndexed *uint8
	Bold      bool
	Underline bool
	Inverse   bool
}

func indexedColor(c color.Color) *uint8 {
	switch v := c.(type) {
	case ansi.BasicColor:
		idx := uint8(v)
		return &idx
	case ansi.ExtendedColor:
		idx := uint8(v)
		return &idx
	default:
		return nil
	}
}

// Cell is one grid position: a glyph plus its style.
type Cell struct {
	Glyph rune
	Style Style
}

// Cursor is the emulator's cursor position and DECTCEM visibility.
type Cursor struct {
	Row     int
	Col     int
	Visible bool
}

// dectcemShow/Hide are the two escape sequences this package watches for
// to track cursor visibility; the underlying vt emulator doesn't expose a
// cursor-visible accessor, so visibility is tracked independently here.
const (
	dectcemHide = "\x1b[?25l"
	dectcemShow = "\x1b[?25h"
)

// Emulator is a single session's terminal state machine.
type Emulator struct {
	mu       sync.Mutex
	term     vt.Terminal
	cols     int
	rows     int
	revision atomic.Uint64
	visible  atomic.Bool
}

// New creates an emulator of the given size. Cursor visibility defaults to
// true, matching a freshly reset terminal.
func New(cols, rows int) *Emulator {
	e := &Emulator{
		term: vt.NewSafeEmulator(cols, rows),
		cols: cols,
		rows: rows,
	}
	e.visible.Store(true)
	return e
}

// Feed advances the emulator's state machine and bumps Revision().
// Any non-empty write is treated as a state change even if it happens to
// be a no-op visually; callers that need exact-change detection should
// compare ScreenHash before/after instead.
func (e *Emulator) Feed(data []byte) {
	if len(data) == 0 {
		return
	}
	e.term.Write(data)
	e.trackCursorVisibility(data)
	e.revision.Add(1)
}

func (e *Emulator) trackCursorVisibility(data []byte) {
	s := string(data)
	// Last occurrence wins when both appear in the same chunk.
	hideIdx := strings.LastIndex(s, dectcemHide)
	showIdx := strings.LastIndex(s, dectcemShow)
	if hideIdx < 0 && showIdx < 0 {
		return
	}
	if hideIdx > showIdx {
		e.visible.Store(false)
	} else {
		e.visible.Store(true)
	}
}

// Revision returns the monotonic counter bumped by every Feed call.
func (e *Emulator) Revision() uint64 {
	return e.revision.Load()
}

// Resize reflows the grid to new dimensions. This is a dumb-grid resize:
// no logical re-wrap is attempted, matching §4.2.
func (e *Emulator) Resize(cols, rows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cols, e.rows = cols, rows
	e.term.Resize(cols, rows)
	e.revision.Add(1)
}

// Size returns the current grid dimensions.
func (e *Emulator) Size() (cols, rows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cols, e.rows
}

// Cursor returns the current cursor position and visibility.
func (e *Emulator) Cursor() Cursor {
	pos := e.term.CursorPosition()
	return Cursor{Row: pos.Y, Col: pos.X, Visible: e.visible.Load()}
}

// Grid returns a snapshot of every cell, row-major.
func (e *Emulator) Grid() [][]Cell {
	e.mu.Lock()
	defer e.mu.Unlock()

	grid := make([][]Cell, e.rows)
	for y := 0; y < e.rows; y++ {
		row := make([]Cell, e.cols)
		for x := 0; x < e.cols; x++ {
			row[x] = cellAt(e.term, x, y)
		}
		grid[y] = row
	}
	return grid
}

func cellAt(t vt.Terminal, x, y int) Cell {
	c := t.CellAt(x, y)
	if c == nil || c.Content == "" {
		return Cell{Glyph: ' '}
	}
	runes := []rune(c.Content)
	glyph := ' '
	if len(runes) > 0 {
		glyph = runes[0]
	}
	return Cell{
		Glyph: glyph,
		Style: Style{
			FG:        c.Style.Fg,
			BG:        c.Style.Bg,
			BGIndexed: indexedColor(c.Style.Bg),
			Bold:      c.Style.Attrs&uv.AttrBold != 0,
			Underline: c.Style.Attrs&uv.AttrUnderline != 0,
			Inverse:   c.Style.Attrs&uv.AttrReverse != 0,
		},
	}
}

// ScreenText returns the grid as plain text, rows joined by "\n", with
// trailing spaces trimmed per row.
func (e *Emulator) ScreenText() string {
	grid := e.Grid()
	lines := make([]string, len(grid))
	for i, row := range grid {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(c.Glyph)
		}
		lines[i] = strings.TrimRight(b.String(), " ")
	}
	return strings.Join(lines, "\n")
}

// ScreenRender returns the grid re-rendered with ANSI SGR sequences. The
// round-trip is lossy (exact escape sequences are not reproduced) but
// colors and {bold, underline, inverse} are preserved, satisfying §4.2.
func (e *Emulator) ScreenRender() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term.Render()
}

// ScreenHash is a fast fingerprint of the visible grid plus cursor
// position, useful for "has anything changed" polling.
func (e *Emulator) ScreenHash() uint64 {
	return fnvHash(e.ScreenText(), e.Cursor())
}
