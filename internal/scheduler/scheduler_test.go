package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingEvicter struct {
	calls atomic.Int32
}

func (e *countingEvicter) Evict(time.Duration) int {
	e.calls.Add(1)
	return 1
}

func TestStartRunsSweep(t *testing.T) {
	e := &countingEvicter{}
	s := New(e, time.Minute, 20*time.Millisecond, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for e.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if e.calls.Load() == 0 {
		t.Fatal("expected at least one sweep")
	}
}

func TestStartDisabled(t *testing.T) {
	e := &countingEvicter{}
	s := New(e, 0, time.Millisecond, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	if e.calls.Load() != 0 {
		t.Fatal("disabled scheduler must not sweep")
	}
}
