package forum

import "encoding/json"

const (
	// client -> server
	frameAuth    = "auth"
	frameMessage = "message"
	framePing    = "ping"

	// server -> client
	frameAuthSuccess = "auth_success"
	frameAuthError   = "auth_error"
	frameUserStatus  = "user_status"
	frameUsersList   = "users_list"
	frameError       = "error"
	framePong        = "pong"
)

// frameProbe peeks at the type discriminator before the payload is decoded
// into a concrete frame struct.
type frameProbe struct {
	Type string `json:"type"`
}

// AuthFrame opens the application-level handshake right after the transport
// connects. The connection is not usable until the server answers with
// auth_success.
type AuthFrame struct {
	Type   string `json:"type"`
	UserID int    `json:"userId"`
	Token  string `json:"token"`
}

// MessageFrame carries a private text message in either direction.
// ClientID is generated by the sending client and echoed back by the server,
// which lets the receiver side drop duplicates of its own messages.
type MessageFrame struct {
	Type      string `json:"type"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	ClientID  string `json:"client_id,omitempty"`
}

// UserStatusFrame patches a single roster entry.
type UserStatusFrame struct {
	Type     string `json:"type"`
	UserID   int    `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// UsersListFrame replaces the roster wholesale.
type UsersListFrame struct {
	Type  string      `json:"type"`
	Users []UserEntry `json:"users"`
}

// ServerErrorFrame is sent for auth_error and error frames.
type ServerErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PingFrame is the application-level keepalive; the server answers with pong.
type PingFrame struct {
	Type string `json:"type"`
}

func decodeFrame[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
