package forum

import "testing"

func TestQueueDrainOrder(t *testing.T) {
	q := newMessageQueue()
	q.Push(PendingMessage{ClientID: "a", Content: "first"})
	q.Push(PendingMessage{ClientID: "b", Content: "second"})
	q.Push(PendingMessage{ClientID: "c", Content: "third"})
	if q.Len() != 3 {
		t.Fatalf("len = %d, want 3", q.Len())
	}

	got := q.Drain()
	if len(got) != 3 || got[0].ClientID != "a" || got[1].ClientID != "b" || got[2].ClientID != "c" {
		t.Fatalf("unexpected drain order: %+v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("drain must empty the queue, len = %d", q.Len())
	}
	if q.Drain() != nil {
		t.Fatalf("draining an empty queue should return nil")
	}
}

func TestQueueRepushAfterFailedFlush(t *testing.T) {
	q := newMessageQueue()
	q.Push(PendingMessage{ClientID: "a"})
	q.Push(PendingMessage{ClientID: "b"})

	pending := q.Drain()
	// pretend the first went out and the connection died
	for _, m := range pending[1:] {
		q.Push(m)
	}
	got := q.Drain()
	if len(got) != 1 || got[0].ClientID != "b" {
		t.Fatalf("unexpected remainder: %+v", got)
	}
}
