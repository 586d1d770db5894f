package capture

import (
	"io"
	"log"
	"sync"
	"testing"

	"github.com/macrolink-io/macrolink/internal/eventlog"
)

func testSession() *Session {
	return New(eventlog.New(eventlog.WithLogger(log.New(io.Discard, "", 0))))
}

func TestCaptureLifecycle(t *testing.T) {
	s := testSession()
	if s.Status() != StateIdle {
		t.Fatalf("expected idle, got %s", s.Status())
	}

	if err := s.Start(0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Status() != StateListening {
		t.Fatalf("expected listening, got %s", s.Status())
	}

	if !s.Observe(9001, "10.0.0.5:40000", "LIGHT_ON") {
		t.Fatal("expected observe to capture")
	}
	if s.Status() != StateCaptured {
		t.Fatalf("expected captured, got %s", s.Status())
	}

	result, state := s.Poll()
	if state != StateCaptured || result.Trigger != "LIGHT_ON" || result.Port != 9001 || result.Source != "10.0.0.5:40000" {
		t.Fatalf("unexpected poll result %+v (%s)", result, state)
	}

	// Read-once: the value is gone and the slot is free.
	if _, state := s.Poll(); state != StateIdle {
		t.Errorf("expected idle after collection, got %s", state)
	}
	if err := s.Start(0); err != nil {
		t.Errorf("slot should be reusable: %v", err)
	}
}

func TestStartWhileListeningFails(t *testing.T) {
	s := testSession()
	if err := s.Start(0); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(0); err == nil {
		t.Error("expected error while listening")
	}
}

func TestStartDiscardsUncollectedValue(t *testing.T) {
	s := testSession()
	if err := s.Start(0); err != nil {
		t.Fatal(err)
	}
	s.Observe(9001, "peer", "STALE")

	// An abandoned capture does not lock the slot; restarting clears it.
	if err := s.Start(0); err != nil {
		t.Fatalf("restart over uncollected value: %v", err)
	}
	if s.Status() != StateListening {
		t.Fatalf("expected listening after restart, got %s", s.Status())
	}

	s.Observe(9002, "peer", "FRESH")
	result, state := s.Poll()
	if state != StateCaptured || result.Trigger != "FRESH" || result.Port != 9002 {
		t.Errorf("expected fresh value after restart, got %+v (%s)", result, state)
	}
}

func TestObserveIgnoredWhenNotListening(t *testing.T) {
	s := testSession()
	if s.Observe(9001, "peer", "GO") {
		t.Error("idle session must not capture")
	}

	s.Start(0)
	s.Observe(9001, "peer", "FIRST")
	if s.Observe(9001, "peer", "SECOND") {
		t.Error("captured session must not overwrite its value")
	}

	result, _ := s.Poll()
	if result.Trigger != "FIRST" {
		t.Errorf("expected first value kept, got %q", result.Trigger)
	}
}

func TestObservePortFilter(t *testing.T) {
	s := testSession()
	s.Start(9002)

	if s.Observe(9001, "peer", "WRONG_PORT") {
		t.Error("expected trigger on other port ignored")
	}
	if s.Status() != StateListening {
		t.Fatalf("expected still listening, got %s", s.Status())
	}
	if !s.Observe(9002, "peer", "RIGHT_PORT") {
		t.Error("expected trigger on requested port captured")
	}
}

func TestCancelReleasesSlot(t *testing.T) {
	s := testSession()
	s.Cancel() // idle no-op

	s.Start(0)
	s.Cancel()
	if s.Status() != StateIdle {
		t.Fatalf("expected idle after cancel, got %s", s.Status())
	}

	s.Start(0)
	s.Observe(9001, "peer", "GO")
	s.Cancel()
	if result, state := s.Poll(); state != StateIdle || result.Trigger != "" {
		t.Errorf("expected cancelled value discarded, got %+v (%s)", result, state)
	}
}

func TestConcurrentObserversCaptureOnce(t *testing.T) {
	s := testSession()
	s.Start(0)

	var wg sync.WaitGroup
	captured := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if s.Observe(9001, "peer", "GO") {
				captured <- n
			}
		}(i)
	}
	wg.Wait()
	close(captured)

	var winners int
	for range captured {
		winners++
	}
	if winners != 1 {
		t.Errorf("expected exactly one observer to win, got %d", winners)
	}
}
