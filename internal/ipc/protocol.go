package ipc

import "encoding/json"

// Request is one command sent to the daemon. Payload is command-specific and
// may be absent.
type Request struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the daemon's reply. Data carries command-specific results such
// as the configuration document or history pages.
type Response struct {
	OK      bool            `json:"ok"`
	State   string          `json:"state,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
