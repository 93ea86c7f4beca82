package querying

import (
	"sync"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

// event is one item read from the worker, in emission order.
type event struct {
	msg messages.Message
	// err is a decode error, or the exit cause when terminal is set.
	err      error
	terminal bool
}

// inbox is the unbounded queue between the reader and the consumer loop.
// The reader never blocks on it, so control responses keep flowing while
// the loop is busy with a tool.
type inbox struct {
	mu     sync.Mutex
	items  []event
	signal chan struct{}
}

func newInbox() *inbox {
	return &inbox{signal: make(chan struct{}, 1)}
}

func (q *inbox) push(ev event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// ready fires after a push.
func (q *inbox) ready() <-chan struct{} {
	return q.signal
}

func (q *inbox) drain() []event {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil

	return items
}
