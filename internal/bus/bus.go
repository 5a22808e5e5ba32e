package bus

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bus is an in-process publish/subscribe event bus with namespace filtering.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	next   int
	onDrop func(namespace string, evt Event)
}

type subscription struct {
	namespace string
	ch        chan Event
	block     bool
	done      chan struct{}
	once      sync.Once
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// OnDrop registers fn to be called for every event a subscriber misses.
func (b *Bus) OnDrop(fn func(namespace string, evt Event)) {
	b.mu.Lock()
	b.onDrop = fn
	b.mu.Unlock()
}

// Publish sends an event to all subscribers whose namespace is a prefix of
// evt.Kind. Missing ID and Timestamp are filled in. A lossy subscriber with a
// full buffer misses the event; a blocking subscriber makes Publish wait
// until it has room or unsubscribes.
func (b *Bus) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.mu.RLock()
	matched := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Kind, sub.namespace) {
			matched = append(matched, sub)
		}
	}
	onDrop := b.onDrop
	b.mu.RUnlock()

	for _, sub := range matched {
		if !sub.deliver(evt) && onDrop != nil {
			onDrop(sub.namespace, evt)
		}
	}
}

func (s *subscription) deliver(evt Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	if !s.block {
		select {
		case s.ch <- evt:
			return true
		default:
			return false
		}
	}
	select {
	case s.ch <- evt:
		return true
	case <-s.done:
		return false
	}
}

// Subscribe returns a channel that receives events matching the given namespace prefix.
// bufSize controls the channel buffer. Returns the channel and an unsubscribe function.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	return b.subscribe(namespace, bufSize, false)
}

// SubscribeBlocking is like Subscribe but never misses an event: once the
// buffer is full, publishers wait for the subscriber to drain it.
func (b *Bus) SubscribeBlocking(namespace string, bufSize int) (<-chan Event, func()) {
	return b.subscribe(namespace, bufSize, true)
}

func (b *Bus) subscribe(namespace string, bufSize int, block bool) (<-chan Event, func()) {
	sub := &subscription{
		namespace: namespace,
		ch:        make(chan Event, bufSize),
		block:     block,
		done:      make(chan struct{}),
	}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	return sub.ch, func() {
		sub.once.Do(func() { close(sub.done) })
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
