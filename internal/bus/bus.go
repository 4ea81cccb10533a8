// Package bus is a small in-process publish/subscribe channel. It
// decouples a view's locally-caused events (an optimistic message
// insert, a mark-read) from the views that display their effects,
// without waiting for the external feed to echo them back.
//
// A Bus is an explicit, injectable object so independent sessions and
// tests never interfere through shared global state.
package bus

import "sync"

// Envelope carries one published event.
type Envelope struct {
	Name    string
	Payload any
}

// Event names published on the bus.
const (
	MessageInserted = "message.inserted"
	MessagesRead    = "messages.read"
)

type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Envelope
	next   int
	buffer int
	closed bool
}

// New creates a bus whose subscribers each get a buffered channel of
// the given depth. A subscriber that falls behind loses events rather
// than blocking publishers.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[int]chan Envelope),
		buffer: buffer,
	}
}

// Publish delivers the event to every current subscriber. Non-blocking:
// a full subscriber channel drops the event for that subscriber.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- Envelope{Name: name, Payload: payload}:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func
// removes the subscription and closes its channel; it is safe to call
// more than once.
func (b *Bus) Subscribe() (<-chan Envelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Envelope, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close tears down the bus and all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
