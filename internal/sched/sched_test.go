package sched

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestQueueRunsInDueOrder(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	var mu sync.Mutex
	var got []string
	var wg sync.WaitGroup
	add := func(d time.Duration, name string) {
		wg.Add(1)
		q.After(d, func() {
			mu.Lock()
			got = append(got, name)
			mu.Unlock()
			wg.Done()
		})
	}
	add(60*time.Millisecond, "late")
	add(10*time.Millisecond, "early")
	add(30*time.Millisecond, "middle")

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not run")
	}

	want := []string{"early", "middle", "late"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestQueueNeverOverlaps(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	var mu sync.Mutex
	running, maxRunning := 0, 0
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		q.After(0, func() {
			mu.Lock()
			running++
			maxRunning = max(maxRunning, running)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	if maxRunning != 1 {
		t.Errorf("max concurrent tasks: got %d, want 1", maxRunning)
	}
}

func TestQueueClosedDropsTasks(t *testing.T) {
	q := NewQueue()
	q.Close()
	q.Close()
	ran := make(chan struct{}, 1)
	q.After(0, func() { ran <- struct{}{} })
	select {
	case <-ran:
		t.Fatal("task ran after Close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManualAdvance(t *testing.T) {
	var m Manual
	var got []string
	m.After(100*time.Millisecond, func() {
		got = append(got, "ready")
		m.After(50*time.Millisecond, func() { got = append(got, "caret") })
	})
	m.After(100*time.Millisecond, func() { got = append(got, "second") })

	m.Advance(99 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("ran early: %v", got)
	}
	m.Advance(1 * time.Millisecond)
	if want := []string{"ready", "second"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if m.Pending() != 1 {
		t.Fatalf("pending: got %d, want 1", m.Pending())
	}
	m.Advance(time.Second)
	if want := []string{"ready", "second", "caret"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
