// Package rpc implements the daemon's JSON-RPC 2.0 request envelope, the
// method-name dispatch table over the use-case layer, and the two
// streaming methods (attach_stream, live_preview_stream) that take over
// a connection after their initial response.
package rpc

import (
	"encoding/json"
	"errors"

	"github.com/agent-tui/agent-tuid/internal/apperr"
)

// Request is one decoded JSON-RPC 2.0 request frame.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ErrorData is the domain-error envelope every non-standard error code
// carries in addition to {code, message}.
type ErrorData struct {
	Category   string         `json:"category"`
	Retryable  bool           `json:"retryable"`
	Context    map[string]any `json:"context,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// Response is one JSON-RPC 2.0 response frame: exactly one of Result or
// Error is populated, mirroring the wire contract, not enforced by the
// Go type system since omitempty already keeps the unused side out of
// the marshaled object.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Standard JSON-RPC 2.0 codes this daemon actually emits.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
)

func success(id uint64, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func standardError(id uint64, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}}
}

// domainError converts a use-case failure into a response. An
// *apperr.Error carries the full envelope; anything else (a programmer
// error slipping past the use-case layer) is reported as invalid params
// rather than inventing a vaguer catch-all code the client can't act on.
func domainError(id uint64, err error) Response {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return Response{
			JSONRPC: "2.0",
			ID:      id,
			Error: &Error{
				Code:    appErr.Code(),
				Message: appErr.Error(),
				Data: &ErrorData{
					Category:   string(appErr.Category()),
					Retryable:  appErr.IsRetryable(),
					Context:    appErr.Context(),
					Suggestion: appErr.Suggestion(),
				},
			},
		}
	}
	return standardError(id, CodeInvalidParams, err.Error())
}

// decodeParams unmarshals an object-shaped params payload into out,
// leaving out at its zero value for array, null, or absent params —
// every method this router serves expects named parameters, not
// positional ones.
func decodeParams(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	trimmed := raw
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t' || trimmed[0] == '\n') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) == 0 || trimmed[0] == '[' || string(trimmed) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}
