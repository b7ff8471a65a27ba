package correlate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmadawais/wordpress-playground/internal/protocol"
)

// DefaultTimeout bounds how long a forwarded request waits for its reply.
const DefaultTimeout = 25 * time.Second

var (
	// ErrTimeout indicates no matching reply arrived before the deadline.
	ErrTimeout = errors.New("correlate: reply deadline exceeded")
	// ErrProtocol indicates a matching reply arrived without a usable payload.
	ErrProtocol = errors.New("correlate: malformed reply")
)

// Correlator owns the request-id counter and the pending-request table
// for one process. The counter is private state: no other component
// reads or writes it.
type Correlator struct {
	lastID  atomic.Int64
	mu      sync.Mutex
	pending map[int64]*Pending
}

// New creates a correlator with an empty pending table.
func New() *Correlator {
	return &Correlator{pending: make(map[int64]*Pending)}
}

// NextID returns an id strictly greater than every previously returned
// value in this process. Ids are never reused.
func (c *Correlator) NextID() int64 {
	return c.lastID.Add(1)
}

// Send tags msg with a fresh id, posts it on ch, and returns the id.
// It does not wait for a reply.
func (c *Correlator) Send(ch Channel, msg *protocol.RequestMessage) int64 {
	id := c.NextID()
	msg.RequestID = id
	ch.Post(msg)
	return id
}

// Pending is one live entry in the correlation table. It resolves or
// rejects exactly once and removes itself from the table on either
// outcome.
type Pending struct {
	id     int64
	owner  *Correlator
	mu     sync.Mutex // holds off settlement until the subscription handle is recorded
	cancel func()
	once   sync.Once
	result chan outcome
}

type outcome struct {
	resp *protocol.Response
	err  error
}

// Register creates a pending entry for id and starts listening on ch
// before any message can arrive. Callers broadcast after registering,
// then block in Wait; the listen-first order means an instant reply
// cannot slip past the subscription.
func (c *Correlator) Register(ch Channel, id int64) *Pending {
	p := &Pending{
		id:     id,
		owner:  c,
		result: make(chan outcome, 1),
	}

	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel = ch.Subscribe(func(msg interface{}) {
		reply, ok := msg.(*protocol.ResponseMessage)
		if !ok || reply.Type != protocol.TypeResponse || reply.RequestID != id {
			return // unrelated traffic is left for other waiters
		}
		if reply.Response == nil {
			p.settle(nil, ErrProtocol)
			return
		}
		p.settle(reply.Response, nil)
	})

	return p
}

// Wait blocks until the entry resolves, the timeout elapses, or ctx is
// done. The subscription is removed on every exit path. A timeout only
// stops local waiting; a reply arriving afterwards is dropped silently
// because the entry is no longer pending.
func (p *Pending) Wait(ctx context.Context, timeout time.Duration) (*protocol.Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-p.result:
		return out.resp, out.err
	case <-timer.C:
		p.settle(nil, ErrTimeout)
	case <-ctx.Done():
		p.settle(nil, ctx.Err())
	}

	out := <-p.result
	return out.resp, out.err
}

// settle resolves or rejects the entry exactly once, unsubscribes, and
// removes it from the owning table.
func (p *Pending) settle(resp *protocol.Response, err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.cancel()
		p.mu.Unlock()

		p.owner.mu.Lock()
		delete(p.owner.pending, p.id)
		p.owner.mu.Unlock()

		p.result <- outcome{resp: resp, err: err}
	})
}

// Await registers a waiter for id on ch and blocks for the first
// matching reply: the one-call form of Register + Wait.
func (c *Correlator) Await(ctx context.Context, ch Channel, id int64, timeout time.Duration) (*protocol.Response, error) {
	return c.Register(ch, id).Wait(ctx, timeout)
}

// PendingCount reports live entries in the correlation table.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
