package rvbscheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSubmitRunsTaskToCompletion(t *testing.T) {
	s := New(2)
	defer s.Close()

	var ran atomic.Bool
	s.Submit("sensor-a", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	waitFor(t, ran.Load)
}

func TestSubmitSupersedesInFlightTaskForSameSensor(t *testing.T) {
	s := New(2)
	defer s.Close()

	started := make(chan struct{})
	var firstCancelled atomic.Bool
	s.Submit("sensor-a", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		firstCancelled.Store(true)
		return ctx.Err()
	})
	<-started

	var secondRan atomic.Bool
	s.Submit("sensor-a", func(ctx context.Context) error {
		secondRan.Store(true)
		return nil
	})

	waitFor(t, secondRan.Load)
	if !firstCancelled.Load() {
		t.Error("expected first task to observe cancellation once superseded")
	}
}

func TestDistinctSensorsRunConcurrently(t *testing.T) {
	s := New(4)
	defer s.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	release := make(chan struct{})
	s.Submit("a", func(ctx context.Context) error {
		wg.Done()
		<-release
		return nil
	})
	s.Submit("b", func(ctx context.Context) error {
		wg.Done()
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected both sensors' tasks to start concurrently")
	}
	close(release)
}

func TestPoolSizeBoundsConcurrency(t *testing.T) {
	s := New(1)
	defer s.Close()

	var active atomic.Int32
	var maxActive atomic.Int32
	release := make(chan struct{})

	track := func(ctx context.Context) error {
		n := active.Add(1)
		for {
			old := maxActive.Load()
			if n <= old || maxActive.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		return nil
	}
	s.Submit("a", track)
	s.Submit("b", track)
	time.Sleep(50 * time.Millisecond)
	if maxActive.Load() > 1 {
		t.Errorf("pool of size 1 allowed %d concurrent tasks", maxActive.Load())
	}
	close(release)
}

func TestCancelStopsSensorWithoutReplacement(t *testing.T) {
	s := New(2)
	defer s.Close()

	started := make(chan struct{})
	s.Submit("a", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started
	s.Cancel("a")
	waitFor(t, func() bool { return s.Active() == 0 })
}
