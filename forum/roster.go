package forum

import (
	"sort"
	"strings"
	"sync"
)

// UserEntry is a single roster row.
type UserEntry struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	IsOnline    bool   `json:"isOnline"`
	LastMessage string `json:"lastMessage,omitempty"` // RFC 3339, empty if never chatted
}

// Roster holds the set of known chat peers. Snapshots replace it wholesale;
// user_status frames patch single entries in place.
type Roster struct {
	mu      sync.RWMutex
	entries map[int]UserEntry
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{entries: make(map[int]UserEntry)}
}

// Replace swaps the whole roster for a fresh server snapshot.
func (r *Roster) Replace(users []UserEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[int]UserEntry, len(users))
	for _, u := range users {
		r.entries[u.ID] = u
	}
}

// SetStatus patches the online flag of one entry. Unknown users are added so
// a presence event arriving before the first snapshot is not lost. It reports
// whether an existing entry was patched.
func (r *Roster) SetStatus(userID int, online bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		r.entries[userID] = UserEntry{ID: userID, IsOnline: online}
		return false
	}
	e.IsOnline = online
	r.entries[userID] = e
	return true
}

// Touch bumps the last-message time of one entry.
func (r *Roster) Touch(userID int, timestamp string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		return
	}
	e.LastMessage = timestamp
	r.entries[userID] = e
}

// Get returns a single entry by id.
func (r *Roster) Get(userID int) (UserEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	return e, ok
}

// Len returns the number of entries.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns the roster sorted for display: online users first, then
// by last message time (newest first), then alphabetically.
func (r *Roster) Snapshot() []UserEntry {
	r.mu.RLock()
	out := make([]UserEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsOnline != b.IsOnline {
			return a.IsOnline
		}
		if a.LastMessage != b.LastMessage {
			if a.LastMessage == "" {
				return false
			}
			if b.LastMessage == "" {
				return true
			}
			// RFC 3339 strings order the same as the times they encode
			return a.LastMessage > b.LastMessage
		}
		return strings.ToLower(a.Username) < strings.ToLower(b.Username)
	})
	return out
}
