package events

import (
	"sync"

	"github.com/mathieu-neron/callvote/internal/metrics"
	"github.com/mathieu-neron/callvote/internal/model"
)

// DefaultMailboxSize bounds each client's undelivered messages.
const DefaultMailboxSize = 64

// Mailboxes queues client messages per slot until the client drains them
// over HTTP. When a mailbox is full the oldest message is evicted.
type Mailboxes struct {
	mu       sync.Mutex
	capacity int
	boxes    map[int][]model.ClientMessage
}

func NewMailboxes(capacity int) *Mailboxes {
	if capacity <= 0 {
		capacity = DefaultMailboxSize
	}
	return &Mailboxes{
		capacity: capacity,
		boxes:    make(map[int][]model.ClientMessage),
	}
}

func (m *Mailboxes) HandleEvent(model.GameEvent) {}

func (m *Mailboxes) HandleMessage(msg model.ClientMessage, to model.Recipients) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, slot := range to.Slots {
		box := append(m.boxes[slot], msg)
		if over := len(box) - m.capacity; over > 0 {
			metrics.Metrics.MessagesDropped.Add(float64(over))
			box = append(box[:0:0], box[over:]...)
		}
		m.boxes[slot] = box
	}
}

// Drain returns and removes every queued message for slot, oldest first.
func (m *Mailboxes) Drain(slot int) []model.ClientMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.boxes[slot]
	delete(m.boxes, slot)
	return msgs
}

// Clear drops slot's mailbox, e.g. when the client disconnects.
func (m *Mailboxes) Clear(slot int) {
	m.mu.Lock()
	delete(m.boxes, slot)
	m.mu.Unlock()
}

// Pending reports how many messages wait for slot.
func (m *Mailboxes) Pending(slot int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boxes[slot])
}
