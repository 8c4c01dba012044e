package forum

import "time"

// MessageEvent is emitted when a private message is delivered over the
// socket. Timestamp keeps the server's RFC 3339 string; Time decodes it.
type MessageEvent struct {
	From      int
	To        int
	Content   string
	Timestamp string
	ClientID  string
}

// Time parses the server timestamp. Zero time on malformed input.
func (ev MessageEvent) Time() time.Time {
	t, err := time.Parse(time.RFC3339, ev.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// UserStatusEvent is emitted when a single user goes online or offline.
type UserStatusEvent struct {
	UserID   int
	IsOnline bool
}

// UsersListEvent is emitted when the server pushes a full roster snapshot.
type UsersListEvent struct {
	Users []UserEntry
}
