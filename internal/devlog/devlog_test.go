package devlog

import (
	"sync"
	"testing"
	"time"
)

func entry(input string) Entry {
	now := time.Now()
	return Entry{Kind: KindCardFront, RequestAt: now, ResponseAt: now, Input: input}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for _, in := range []string{"a", "b", "c", "d"} {
		r.Record(entry(in))
	}

	got := r.Entries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Input != "b" || got[2].Input != "d" {
		t.Errorf("entries = %v", got)
	}
}

func TestRingConcurrentRecord(t *testing.T) {
	r := NewRing(128)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(entry("x"))
		}()
	}
	wg.Wait()
	if len(r.Entries()) != 64 {
		t.Errorf("len = %d, want 64", len(r.Entries()))
	}
}

func TestTeeFansOut(t *testing.T) {
	a, b := NewRing(8), NewRing(8)
	sink := Tee(a, b, Discard)
	sink.Record(entry("hello"))

	if len(a.Entries()) != 1 || len(b.Entries()) != 1 {
		t.Error("entry not delivered to all sinks")
	}
}

func TestBroadcasterDropsWhenFull(t *testing.T) {
	b := NewBroadcaster()
	ch := b.subscribe()
	defer b.unsubscribe(ch)

	for i := 0; i < streamBuffer+10; i++ {
		b.Record(entry("x"))
	}
	if len(ch) != streamBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), streamBuffer)
	}
}

func TestBroadcasterSubscriberCount(t *testing.T) {
	b := NewBroadcaster()
	if b.SubscriberCount() != 0 {
		t.Fatal("fresh broadcaster has subscribers")
	}
	ch := b.subscribe()
	if b.SubscriberCount() != 1 {
		t.Error("subscribe not counted")
	}
	b.unsubscribe(ch)
	if b.SubscriberCount() != 0 {
		t.Error("unsubscribe not counted")
	}
}
