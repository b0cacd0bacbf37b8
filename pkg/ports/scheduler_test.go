package ports

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerScheduler_FixedDelay(t *testing.T) {
	s := NewTickerScheduler()
	defer s.CancelAll()

	var calls int32
	s.ScheduleWithFixedDelay(func() {
		atomic.AddInt32(&calls, 1)
	}, time.Millisecond, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n < 2 {
		t.Errorf("calls = %d, want >= 2", n)
	}
}

func TestTickerScheduler_Once(t *testing.T) {
	s := NewTickerScheduler()
	defer s.CancelAll()

	done := make(chan struct{})
	s.ScheduleOnce(func() { close(done) }, time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ScheduleOnce task never ran")
	}
}

func TestTickerScheduler_CancelIsIdempotent(t *testing.T) {
	s := NewTickerScheduler()
	cancel := s.ScheduleWithFixedDelay(func() {}, time.Millisecond, time.Millisecond)
	cancel()
	cancel()
	s.CancelAll()
	s.CancelAll()
}

func TestTickerScheduler_CancelStopsFutureCalls(t *testing.T) {
	s := NewTickerScheduler()
	var calls int32
	cancel := s.ScheduleWithFixedDelay(func() {
		atomic.AddInt32(&calls, 1)
	}, time.Millisecond, time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	cancel()
	n := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&calls) > n+1 {
		t.Errorf("task kept running after cancel: before=%d after=%d", n, atomic.LoadInt32(&calls))
	}
	s.CancelAll()
}
