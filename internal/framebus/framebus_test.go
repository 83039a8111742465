package framebus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

func frameWithSeq(seq uint64) types.Frame {
	return types.Frame{Seq: seq, Timestamp: time.Now()}
}

func TestSubscribeAndPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan types.Frame, 4)
	if err := bus.Subscribe("worker", ch); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.Publish(frameWithSeq(1))
	bus.Publish(frameWithSeq(2))

	for want := uint64(1); want <= 2; want++ {
		select {
		case f := <-ch:
			if f.Seq != want {
				t.Errorf("expected seq %d, got %d", want, f.Seq)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}
	if got := bus.TotalPublished(); got != 2 {
		t.Errorf("expected 2 published, got %d", got)
	}
}

func TestSubscribeErrors(t *testing.T) {
	bus := New()

	ch := make(chan types.Frame, 1)
	if err := bus.Subscribe("dup", ch); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Subscribe("dup", ch); !errors.Is(err, ErrSubscriberExists) {
		t.Errorf("expected ErrSubscriberExists, got %v", err)
	}
	if err := bus.Subscribe("nilch", nil); !errors.Is(err, ErrNilChannel) {
		t.Errorf("expected ErrNilChannel, got %v", err)
	}

	bus.Close()
	if err := bus.Subscribe("late", ch); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
	if _, err := bus.SubscribeDropOld("late"); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan types.Frame, 1)
	if err := bus.Subscribe("slow", ch); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := uint64(0); i < 100; i++ {
			bus.Publish(frameWithSeq(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	stats, err := bus.Stats("slow")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sent+stats.Dropped != 100 {
		t.Errorf("expected sent+dropped=100, got %d+%d", stats.Sent, stats.Dropped)
	}
	if stats.Dropped == 0 {
		t.Error("expected drops on a 1-slot channel fed 100 frames")
	}
}

func TestDropOldKeepsLatestFrame(t *testing.T) {
	bus := New()
	defer bus.Close()

	recv, err := bus.SubscribeDropOld("analyzer")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.Publish(frameWithSeq(1))
	bus.Publish(frameWithSeq(2))
	bus.Publish(frameWithSeq(3))

	f, ok := recv.TryReceive()
	if !ok {
		t.Fatal("expected a frame")
	}
	if f.Seq != 3 {
		t.Errorf("expected the latest frame seq 3, got %d", f.Seq)
	}

	// Take semantics: the slot is now empty.
	if _, ok := recv.TryReceive(); ok {
		t.Error("expected the mailbox to be empty after a take")
	}

	stats, err := bus.Stats("analyzer")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Dropped != 2 {
		t.Errorf("expected 2 overwrites counted as drops, got %d", stats.Dropped)
	}
}

func TestReceiveBlocksUntilFrame(t *testing.T) {
	bus := New()
	defer bus.Close()

	recv, err := bus.SubscribeDropOld("analyzer")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	got := make(chan types.Frame, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if f, ok := recv.Receive(); ok {
			got <- f
		}
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Publish(frameWithSeq(7))

	select {
	case f := <-got:
		if f.Seq != 7 {
			t.Errorf("expected seq 7, got %d", f.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive never woke up")
	}
	wg.Wait()
}

func TestCloseWakesBlockedReceiver(t *testing.T) {
	bus := New()
	recv, err := bus.SubscribeDropOld("analyzer")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	done := make(chan bool, 1)
	go func() {
		_, ok := recv.Receive()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected ok=false on shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("Receive not woken by Close")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan types.Frame, 1)
	if err := bus.Subscribe("worker", ch); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Unsubscribe("worker"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if err := bus.Unsubscribe("worker"); !errors.Is(err, ErrSubscriberNotFound) {
		t.Errorf("expected ErrSubscriberNotFound, got %v", err)
	}

	bus.Publish(frameWithSeq(1))
	if len(ch) != 0 {
		t.Error("unsubscribed channel must not receive frames")
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	bus := New()
	bus.Close()
	bus.Publish(frameWithSeq(1))
	if got := bus.TotalPublished(); got != 0 {
		t.Errorf("expected no publishes after close, got %d", got)
	}
	// Closing twice is safe.
	bus.Close()
}
