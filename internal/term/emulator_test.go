package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeedAndScreenText(t *testing.T) {
	e := New(20, 3)
	e.Feed([]byte("hello"))
	require.Contains(t, e.ScreenText(), "hello")
}

func TestRevisionBumpsOnFeed(t *testing.T) {
	e := New(20, 3)
	before := e.Revision()
	e.Feed([]byte("x"))
	require.Greater(t, e.Revision(), before)
}

func TestCursorVisibilityTracking(t *testing.T) {
	e := New(20, 3)
	require.True(t, e.Cursor().Visible)
	e.Feed([]byte(dectcemHide))
	require.False(t, e.Cursor().Visible)
	e.Feed([]byte(dectcemShow))
	require.True(t, e.Cursor().Visible)
}

func TestResizeUpdatesSize(t *testing.T) {
	e := New(20, 3)
	e.Resize(40, 10)
	cols, rows := e.Size()
	require.Equal(t, 40, cols)
	require.Equal(t, 10, rows)
}

func TestScreenHashStableAcrossNoChange(t *testing.T) {
	e := New(20, 3)
	e.Feed([]byte("stable"))
	h1 := e.ScreenHash()
	h2 := e.ScreenHash()
	require.Equal(t, h1, h2)
}
