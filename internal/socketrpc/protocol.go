package socketrpc

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes widget.Controller over a Unix domain socket.
// Each method maps 1:1 to the Controller interface.
//
//   Method        Params                                  Result
//   ───────────   ─────────────────────────────────────   ─────────────────────────────
//   Mount         {Key: string, Payload: Payload}         raw result (number or {page, sort})
//   Snapshot      {Key: string}                           widget.Snapshot
//   Keys          (none)                                  []string
//   ClickHeader   {Key: string, Column: string}           Event
//   Page          {Key: string, Action: string}           Event
//   GoTo          {Key: string, Page: int}                Event
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params (includes invalid payloads)
//   -32603  Internal error (marshal failure)
//   -32000  Application error
//   -32001  Unknown table instance key

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeApplication    = -32000
	codeUnknownKey     = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// Unwrap maps well-known codes back to their sentinel errors so callers
// can use errors.Is across the socket.
func (e *RPCError) Unwrap() error {
	switch e.Code {
	case codeInvalidParams:
		return model.ErrInvalidPayload
	case codeUnknownKey:
		return widget.ErrUnknownKey
	}
	return nil
}

// errorCode picks the JSON-RPC code for an application error.
func errorCode(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidPayload):
		return codeInvalidParams
	case errors.Is(err, widget.ErrUnknownKey):
		return codeUnknownKey
	}
	return codeApplication
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/sortable-table/sortable-table.sock, falling
// back to ~/.local/state/sortable-table/sortable-table.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "sortable-table", "sortable-table.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/sortable-table.sock"
	}
	return filepath.Join(home, ".local", "state", "sortable-table", "sortable-table.sock")
}
