package forum

import "sync"

// PendingMessage is a private message composed while the connection was not
// usable. Queued messages are flushed in FIFO order once the connection
// re-authenticates.
type PendingMessage struct {
	ClientID  string
	To        int
	From      int
	Content   string
	Timestamp string
}

// messageQueue is an unbounded FIFO of pending messages.
type messageQueue struct {
	mu    sync.Mutex
	items []PendingMessage
}

func newMessageQueue() *messageQueue {
	return &messageQueue{}
}

func (q *messageQueue) Push(m PendingMessage) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
}

// Drain removes and returns all queued messages in the order they were
// pushed. Messages that fail to send afterwards must be re-pushed by the
// caller; Drain itself never drops anything silently.
func (q *messageQueue) Drain() []PendingMessage {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

func (q *messageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
