package streamring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteThenReadReturnsBytes(t *testing.T) {
	r := New(MinWindow)
	cur := r.NewCursor()
	r.Write([]byte("hello"))
	res := r.Read(cur, 1024, 0)
	require.Equal(t, "hello", string(res.Data))
	require.Zero(t, res.DroppedBytes)
	require.Equal(t, int64(5), res.NextCursor.Seq)
}

func TestReadNonBlockingWhenCaughtUp(t *testing.T) {
	r := New(MinWindow)
	cur := r.NewCursor()
	res := r.Read(cur, 1024, 0)
	require.Empty(t, res.Data)
	require.Zero(t, res.DroppedBytes)
	require.False(t, res.Closed)
}

func TestDroppedBytesWhenCursorFallsBehind(t *testing.T) {
	window := MinWindow
	r := New(window)
	cur := r.NewCursor()
	// Write more than the window so the cursor's start position is evicted.
	big := make([]byte, window+1024)
	r.Write(big)
	res := r.Read(cur, 1024, 0)
	require.Positive(t, res.DroppedBytes)
	require.Empty(t, res.Data)
	require.Equal(t, res.NextCursor.Seq, res.LatestCursor.Seq)
}

func TestReadIsMonotonic(t *testing.T) {
	r := New(MinWindow)
	cur := r.NewCursor()
	r.Write([]byte("abc"))
	res := r.Read(cur, 1, 0)
	require.GreaterOrEqual(t, res.NextCursor.Seq, cur.Seq)
}

func TestMaxBytesLimitsChunk(t *testing.T) {
	r := New(MinWindow)
	cur := r.NewCursor()
	r.Write([]byte("abcdef"))
	res := r.Read(cur, 3, 0)
	require.Equal(t, "abc", string(res.Data))
}

func TestSubscribeWaitWakesOnWrite(t *testing.T) {
	r := New(MinWindow)
	sub := r.Subscribe()
	done := make(chan bool, 1)
	go func() {
		done <- sub.Wait(time.Second)
	}()
	time.Sleep(20 * time.Millisecond)
	r.Write([]byte("x"))
	require.True(t, <-done)
}

func TestSubscribeWaitTimesOut(t *testing.T) {
	r := New(MinWindow)
	sub := r.Subscribe()
	require.False(t, sub.Wait(30*time.Millisecond))
}

func TestClosedReportedAfterDrain(t *testing.T) {
	r := New(MinWindow)
	cur := r.NewCursor()
	r.Write([]byte("bye"))
	r.MarkClosed()
	res := r.Read(cur, 1024, 0)
	require.True(t, res.Closed)
}
