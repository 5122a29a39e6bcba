package rpc

import (
	"encoding/base64"
	"time"
)

// Flow-control constants for the two streaming methods. Both read the
// ring in chunks of the same size and poll it in streamPollTimeout
// slices. attach_stream serves a raw byte tail for scripted consumers,
// hence the longer heartbeat; live_preview_stream serves a
// screen-oriented feed for a human watching along, so it heartbeats more
// often and re-sends a full init frame after any drop.
const (
	attachMaxChunk    = 64 * 1024
	attachHeartbeat   = 30 * time.Second
	liveMaxChunk      = 64 * 1024
	liveHeartbeat     = 5 * time.Second
	streamPollTimeout = 200 * time.Millisecond
)

func streamAttach(r *Router, req Request) (Response, StreamFunc) {
	var p sessionIDParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error()), nil
	}
	sess, err := r.exec.Manager.Resolve(p.Session)
	if err != nil {
		return domainError(req.ID, err), nil
	}

	ring := sess.Stream()
	cursor := ring.LatestCursor()
	cols, rows := sess.Size()

	resp := success(req.ID, map[string]any{"event": "ready", "session_id": sess.ID, "cols": cols, "rows": rows})

	fn := func(send func(event any) error) {
		lastHeartbeat := time.Now()
		for {
			if r.done() {
				send(map[string]any{"event": "closed"})
				return
			}

			read := ring.Read(cursor, attachMaxChunk, streamPollTimeout)
			cursor = read.NextCursor

			if read.DroppedBytes > 0 {
				if err := send(map[string]any{"event": "dropped", "dropped_bytes": read.DroppedBytes}); err != nil {
					return
				}
			}
			if len(read.Data) > 0 {
				if err := send(map[string]any{
					"event":         "output",
					"data":          base64.StdEncoding.EncodeToString(read.Data),
					"bytes":         len(read.Data),
					"dropped_bytes": read.DroppedBytes,
				}); err != nil {
					return
				}
			}
			if read.Closed {
				send(map[string]any{"event": "closed"})
				return
			}
			if time.Since(lastHeartbeat) >= attachHeartbeat {
				if err := send(map[string]any{"event": "heartbeat"}); err != nil {
					return
				}
				lastHeartbeat = time.Now()
			}
		}
	}
	return resp, fn
}

func streamLivePreview(r *Router, req Request) (Response, StreamFunc) {
	var p sessionIDParams
	if err := decodeParams(req.Params, &p); err != nil {
		return standardError(req.ID, CodeInvalidParams, err.Error()), nil
	}
	sess, err := r.exec.Manager.Resolve(p.Session)
	if err != nil {
		return domainError(req.ID, err), nil
	}

	ring := sess.Stream()
	cursor := ring.LatestCursor()
	cols, rows := sess.Size()

	resp := success(req.ID, map[string]any{"event": "ready", "session_id": sess.ID, "cols": cols, "rows": rows})

	fn := func(send func(event any) error) {
		if err := send(map[string]any{"event": "init", "time": nowMs(), "cols": cols, "rows": rows, "init": sess.ScreenText()}); err != nil {
			return
		}

		lastHeartbeat := time.Now()
		lastCols, lastRows := cols, rows

		for {
			if r.done() {
				send(map[string]any{"event": "closed", "time": nowMs()})
				return
			}

			curCols, curRows := sess.Size()
			if curCols != lastCols || curRows != lastRows {
				lastCols, lastRows = curCols, curRows
				if err := send(map[string]any{"event": "resize", "time": nowMs(), "cols": curCols, "rows": curRows}); err != nil {
					return
				}
			}

			read := ring.Read(cursor, liveMaxChunk, streamPollTimeout)
			cursor = read.NextCursor

			if read.DroppedBytes > 0 {
				if err := send(map[string]any{"event": "dropped", "time": nowMs(), "dropped_bytes": read.DroppedBytes}); err != nil {
					return
				}
				if err := send(map[string]any{"event": "init", "time": nowMs(), "cols": curCols, "rows": curRows, "init": sess.ScreenText()}); err != nil {
					return
				}
			}
			if len(read.Data) > 0 {
				if err := send(map[string]any{
					"event":    "output",
					"time":     nowMs(),
					"data_b64": base64.StdEncoding.EncodeToString(read.Data),
				}); err != nil {
					return
				}
			}
			if read.Closed {
				send(map[string]any{"event": "closed", "time": nowMs()})
				return
			}
			if time.Since(lastHeartbeat) >= liveHeartbeat {
				if err := send(map[string]any{"event": "heartbeat", "time": nowMs()}); err != nil {
					return
				}
				lastHeartbeat = time.Now()
			}
		}
	}
	return resp, fn
}

func nowMs() int64 { return time.Now().UnixMilli() }
