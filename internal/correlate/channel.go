package correlate

import "sync"

// Channel is an injected message capability: post a message, or
// subscribe to every subsequent message until the returned cancel
// function runs. Implementations must deliver each posted message to
// every live subscriber.
type Channel interface {
	Post(msg interface{})
	Subscribe(fn func(msg interface{})) (cancel func())
}

// Bus is an in-process Channel. Delivery is synchronous in Post's
// caller: subscribers must not block.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(msg interface{})
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(msg interface{}))}
}

// Post delivers msg to every current subscriber.
func (b *Bus) Post(msg interface{}) {
	b.mu.RLock()
	fns := make([]func(msg interface{}), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(msg)
	}
}

// Subscribe registers fn for all future messages. The cancel function
// is idempotent.
func (b *Bus) Subscribe(fn func(msg interface{})) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// SubscriberCount reports live subscriptions; used to verify that
// waits do not leak listeners.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
