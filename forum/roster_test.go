package forum

import "testing"

func TestRosterSetStatusPatchesInPlace(t *testing.T) {
	r := NewRoster()
	r.Replace([]UserEntry{
		{ID: 1, Username: "alice", IsOnline: true},
		{ID: 2, Username: "bob", IsOnline: false},
	})

	if !r.SetStatus(2, true) {
		t.Fatalf("expected existing entry to be patched")
	}
	e, ok := r.Get(2)
	if !ok || !e.IsOnline || e.Username != "bob" {
		t.Fatalf("unexpected entry after patch: %+v", e)
	}
}

func TestRosterSetStatusUnknownUser(t *testing.T) {
	r := NewRoster()
	if r.SetStatus(9, true) {
		t.Fatalf("unknown user should not count as patched")
	}
	e, ok := r.Get(9)
	if !ok || !e.IsOnline {
		t.Fatalf("presence event before first snapshot was lost: %+v", e)
	}
}

func TestRosterTouch(t *testing.T) {
	r := NewRoster()
	r.Replace([]UserEntry{{ID: 1, Username: "alice"}})
	r.Touch(1, "2025-03-01T10:00:00Z")
	e, _ := r.Get(1)
	if e.LastMessage != "2025-03-01T10:00:00Z" {
		t.Fatalf("unexpected last message %q", e.LastMessage)
	}
	// touching an unknown user is a no-op
	r.Touch(5, "2025-03-01T10:00:00Z")
	if r.Len() != 1 {
		t.Fatalf("touch must not create entries")
	}
}

func TestRosterSnapshotOrder(t *testing.T) {
	r := NewRoster()
	r.Replace([]UserEntry{
		{ID: 1, Username: "zoe", IsOnline: true},
		{ID: 2, Username: "Adam", IsOnline: true},
		{ID: 3, Username: "mia", IsOnline: false, LastMessage: "2025-03-01T12:00:00Z"},
		{ID: 4, Username: "noah", IsOnline: false, LastMessage: "2025-03-02T09:00:00Z"},
		{ID: 5, Username: "ben", IsOnline: false},
		{ID: 6, Username: "amy", IsOnline: true, LastMessage: "2025-03-01T08:00:00Z"},
	})

	got := r.Snapshot()
	want := []int{6, 2, 1, 4, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("snapshot length %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got user %d (%s), want %d", i, got[i].ID, got[i].Username, id)
		}
	}
}
