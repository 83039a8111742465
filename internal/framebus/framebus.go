// Package framebus distributes captured frames to analysis workers without
// ever blocking the capture path.
//
// Philosophy: drop frames, never queue. A posture scan wants the latest
// frame, not a backlog of stale ones.
//
// Two drop policies are supported:
//   - DropNew: non-blocking send to a subscriber channel; the incoming
//     frame is dropped when the buffer is full (backpressure).
//   - DropOld: a single-slot mailbox holding only the latest frame; new
//     frames overwrite unconsumed ones. The analysis worker subscribes
//     this way so scoring always sees the freshest capture.
package framebus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

var (
	ErrBusClosed          = errors.New("framebus: bus is closed")
	ErrSubscriberExists   = errors.New("framebus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("framebus: subscriber not found")
	ErrNilChannel         = errors.New("framebus: nil channel provided")
	ErrReceiverClosed     = errors.New("framebus: receiver is closed")
)

// DropPolicy defines how the bus handles frames when a subscriber cannot
// keep up.
type DropPolicy int

const (
	DropNew DropPolicy = iota
	DropOld
)

// SubscriberStats tracks frame distribution metrics for one subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber struct {
	id     string
	policy DropPolicy
	stats  *SubscriberStats

	ch      chan<- types.Frame // DropNew
	mailbox *latestFrameBox    // DropOld
}

// Bus fans frames out to registered subscribers. Publish never blocks.
type Bus struct {
	mu             sync.RWMutex
	subscribers    map[string]*subscriber
	totalPublished uint64
	closed         bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber)}
}

// Subscribe registers a channel with the DropNew policy.
func (b *Bus) Subscribe(id string, ch chan<- types.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	if ch == nil {
		return ErrNilChannel
	}

	b.subscribers[id] = &subscriber{
		id:     id,
		policy: DropNew,
		stats:  &SubscriberStats{},
		ch:     ch,
	}
	return nil
}

// SubscribeDropOld registers a latest-frame mailbox subscriber and returns
// its receiver.
func (b *Bus) SubscribeDropOld(id string) (*FrameReceiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return nil, ErrSubscriberExists
	}

	sub := &subscriber{
		id:      id,
		policy:  DropOld,
		stats:   &SubscriberStats{},
		mailbox: newLatestFrameBox(),
	}
	b.subscribers[id] = sub
	return &FrameReceiver{box: sub.mailbox}, nil
}

// Publish distributes a frame to all subscribers without blocking.
func (b *Bus) Publish(frame types.Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	atomic.AddUint64(&b.totalPublished, 1)

	for _, sub := range b.subscribers {
		switch sub.policy {
		case DropNew:
			select {
			case sub.ch <- frame:
				atomic.AddUint64(&sub.stats.Sent, 1)
			default:
				atomic.AddUint64(&sub.stats.Dropped, 1)
			}
		case DropOld:
			if sub.mailbox.set(frame) {
				atomic.AddUint64(&sub.stats.Dropped, 1)
			}
			atomic.AddUint64(&sub.stats.Sent, 1)
		}
	}
}

// Unsubscribe removes a subscriber and closes its mailbox if any.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscribers[id]
	if !exists {
		return ErrSubscriberNotFound
	}
	if sub.mailbox != nil {
		sub.mailbox.close()
	}
	delete(b.subscribers, id)
	return nil
}

// Stats returns a snapshot of one subscriber's counters.
func (b *Bus) Stats(id string) (SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sub, exists := b.subscribers[id]
	if !exists {
		return SubscriberStats{}, ErrSubscriberNotFound
	}
	return SubscriberStats{
		Sent:    atomic.LoadUint64(&sub.stats.Sent),
		Dropped: atomic.LoadUint64(&sub.stats.Dropped),
	}, nil
}

// TotalPublished returns the number of frames ever published.
func (b *Bus) TotalPublished() uint64 {
	return atomic.LoadUint64(&b.totalPublished)
}

// Close shuts down the bus and wakes all mailbox receivers.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		if sub.mailbox != nil {
			sub.mailbox.close()
		}
	}
	b.subscribers = nil
}
