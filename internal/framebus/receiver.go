package framebus

import (
	"sync"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// FrameReceiver is the consumer side of a DropOld subscription: a
// single-slot mailbox with take semantics. Receive blocks until a frame
// arrives and consumes it, so a worker never re-analyzes the same frame.
type FrameReceiver struct {
	box *latestFrameBox
}

// Receive blocks until a frame is available or the receiver is closed.
// The second return value is false on shutdown.
func (r *FrameReceiver) Receive() (types.Frame, bool) {
	return r.box.take()
}

// TryReceive consumes the stored frame without blocking.
func (r *FrameReceiver) TryReceive() (types.Frame, bool) {
	return r.box.tryTake()
}

// Close wakes any blocked Receive call.
func (r *FrameReceiver) Close() {
	r.box.close()
}

// latestFrameBox is the mailbox behind a DropOld subscription.
type latestFrameBox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *types.Frame
	closed bool
}

func newLatestFrameBox() *latestFrameBox {
	b := &latestFrameBox{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// set stores a frame, overwriting any unconsumed one. Returns true when an
// unconsumed frame was overwritten.
func (b *latestFrameBox) set(frame types.Frame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	overwritten := b.frame != nil
	b.frame = &frame
	b.cond.Broadcast()
	return overwritten
}

func (b *latestFrameBox) take() (types.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.frame == nil && !b.closed {
		b.cond.Wait()
	}
	if b.frame == nil {
		return types.Frame{}, false
	}
	frame := *b.frame
	b.frame = nil
	return frame, true
}

func (b *latestFrameBox) tryTake() (types.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame == nil {
		return types.Frame{}, false
	}
	frame := *b.frame
	b.frame = nil
	return frame, true
}

func (b *latestFrameBox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}
