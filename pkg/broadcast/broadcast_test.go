package broadcast

import (
	"testing"
	"time"
)

func TestBroadcaster_DeliversToSubscriber(t *testing.T) {
	b := New[int](4)
	sub := b.Subscribe()
	defer sub.Close()

	b.Publish(42)

	select {
	case v := <-sub.C:
		if v != 42 {
			t.Errorf("got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no value received")
	}
}

func TestBroadcaster_FanOutToMultiple(t *testing.T) {
	b := New[string](4)
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Close()
	defer s2.Close()

	b.Publish("hello")

	for _, sub := range []Subscription[string]{s1, s2} {
		select {
		case v := <-sub.C:
			if v != "hello" {
				t.Errorf("got %q, want hello", v)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed publish")
		}
	}
}

func TestBroadcaster_FullBufferDropsOldest(t *testing.T) {
	b := New[int](1)
	sub := b.Subscribe()
	defer sub.Close()

	b.Publish(1)
	b.Publish(2) // buffer full, should drop 1 and deliver 2

	select {
	case v := <-sub.C:
		if v != 2 {
			t.Errorf("got %d, want 2 (most recent)", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no value received")
	}
}

func TestBroadcaster_CloseEndsSubscription(t *testing.T) {
	b := New[int](1)
	sub := b.Subscribe()
	b.Close()

	_, ok := <-sub.C
	if ok {
		t.Error("expected channel to be closed")
	}
}
