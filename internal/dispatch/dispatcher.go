package dispatch

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/botstream/internal/classify"
)

// DefaultBufferSize is the per-subscriber delivery buffer when the caller
// passes zero.
const DefaultBufferSize = 256

// Stats contains dispatcher counters.
type Stats struct {
	Received    int64 // Messages published
	Delivered   int64 // Per-subscriber successful deliveries
	Dropped     int64 // Per-subscriber drops (full buffer)
	Subscribers int   // Currently attached subscribers
}

// Dispatcher delivers classified messages to all attached subscribers and
// caches the most recent message regardless of kind.
type Dispatcher struct {
	logger     *slog.Logger
	bufferSize int

	mu        sync.Mutex
	subs      map[uuid.UUID]*Subscription
	latest    classify.Message
	hasLatest bool
	closed    bool

	received  int64
	delivered int64
	dropped   int64
}

// Subscription is one consumer's attachment to the dispatcher.
type Subscription struct {
	id uuid.UUID
	ch chan classify.Message
	d  *Dispatcher

	once sync.Once
}

// New creates a Dispatcher with the given per-subscriber buffer size.
func New(bufferSize int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	return &Dispatcher{
		logger:     logger,
		bufferSize: bufferSize,
		subs:       make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe attaches a new consumer. The consumer reads from Messages() and
// must call Unsubscribe when done; its channel is closed at that point.
func (d *Dispatcher) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.New(),
		ch: make(chan classify.Message, d.bufferSize),
		d:  d,
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		// Late subscriber on a closed dispatcher gets an already-closed
		// channel rather than a blocked read.
		close(sub.ch)
		return sub
	}

	d.subs[sub.id] = sub
	return sub
}

// Messages returns the subscriber's delivery channel. It is closed when the
// subscriber unsubscribes or the dispatcher shuts down.
func (s *Subscription) Messages() <-chan classify.Message {
	return s.ch
}

// Unsubscribe detaches this subscriber. Idempotent; other subscribers are
// unaffected.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.d.mu.Lock()
		defer s.d.mu.Unlock()
		if _, ok := s.d.subs[s.id]; ok {
			delete(s.d.subs, s.id)
			close(s.ch)
		}
	})
}

// Publish stores msg in the latest-message slot and delivers it to every
// attached subscriber. Publishers are serialized, so subscribers observe
// messages in publish order.
func (d *Dispatcher) Publish(msg classify.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.latest = msg
	d.hasLatest = true
	d.received++

	for _, sub := range d.subs {
		select {
		case sub.ch <- msg:
			d.delivered++
		default:
			d.dropped++
			d.logger.Warn("subscriber buffer full, dropping message",
				"subscriber", sub.id,
				"kind", msg.Kind,
			)
		}
	}
}

// Latest returns the most recently published message. The second return is
// false before the first publish or after a Reset.
func (d *Dispatcher) Latest() (classify.Message, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest, d.hasLatest
}

// Reset clears the latest-message slot. The connection manager calls this
// before opening a new transport so a prior session's data cannot leak into
// the new one. Subscribers and counters are untouched.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = classify.Message{}
	d.hasLatest = false
}

// SubscriberCount returns the number of attached subscribers.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Received:    d.received,
		Delivered:   d.delivered,
		Dropped:     d.dropped,
		Subscribers: len(d.subs),
	}
}

// Close detaches and closes all subscribers. Further publishes are no-ops.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	for id, sub := range d.subs {
		delete(d.subs, id)
		close(sub.ch)
	}
}
