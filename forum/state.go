package forum

// ConnState represents the current state of the chat connection.
type ConnState int

const (
	// StateDisconnected means the client is not connected and not retrying.
	StateDisconnected ConnState = iota

	// StateConnecting means the client is dialing the server.
	StateConnecting

	// StateOpenUnauth means the transport is open but the application-level
	// handshake has not been acknowledged yet.
	StateOpenUnauth

	// StateAuthenticated means the server accepted the auth frame and the
	// connection is fully usable.
	StateAuthenticated

	// StateGaveUp means the automatic retry budget is exhausted; a new
	// connection requires an explicit Reconnect call.
	StateGaveUp

	// StateClosed means the client was closed intentionally (close code
	// 1000). Closed connections are never retried.
	StateClosed
)

// String returns the string representation of a ConnState.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpenUnauth:
		return "open_unauth"
	case StateAuthenticated:
		return "authenticated"
	case StateGaveUp:
		return "gave_up"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent describes a state transition.
type StateEvent struct {
	Old ConnState
	New ConnState
	Err error // cause of the transition, if any
}
