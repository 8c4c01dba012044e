package forum

import "time"

// Config controls how the chat client connects.
type Config struct {
	// URL of the websocket endpoint, e.g. "ws://localhost:8080/ws".
	// The bearer token is appended as a query parameter on dial.
	URL string

	// UserID and Token identify the session for the application-level
	// handshake. An empty token is a hard stop: no connection attempt is
	// made without one.
	UserID int
	Token  string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// Reconnect behavior after a non-normal close:
	// delay = min(BaseReconnectDelay << attempt, MaxReconnectDelay),
	// up to MaxReconnectAttempts automatic attempts.
	BaseReconnectDelay   time.Duration
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int

	// PingInterval is the application-level keepalive period. Zero disables
	// keepalive pings.
	PingInterval time.Duration

	// MessageRate and MessageBurst throttle outgoing private messages.
	MessageRate  float64
	MessageBurst int
}

// DefaultConfig returns sensible defaults. Set a timeout to 0 to disable it.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:     10 * time.Second,
		ReadTimeout:          60 * time.Second,
		WriteTimeout:         10 * time.Second,
		BaseReconnectDelay:   time.Second,
		MaxReconnectDelay:    30 * time.Second,
		MaxReconnectAttempts: 5,
		PingInterval:         54 * time.Second,
		MessageRate:          5,
		MessageBurst:         10,
	}
}
