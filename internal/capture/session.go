package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/macrolink-io/macrolink/internal/eventlog"
)

// State is the capture session's lifecycle phase.
type State string

const (
	// StateIdle means no capture is in progress.
	StateIdle State = "idle"
	// StateListening means the next received trigger string will be captured.
	StateListening State = "listening"
	// StateCaptured means a trigger string is waiting to be collected.
	StateCaptured State = "captured"
)

// Session is the daemon-wide capture slot. At most one capture runs at a
// time; the UI claims it, the next trigger string received on a matching
// listener fills it, and a poll collects the value exactly once.
type Session struct {
	events *eventlog.Log

	mu       sync.Mutex
	state    State
	port     int
	captured string
	fromPort int
	source   string
	started  time.Time
}

// New constructs an idle capture session.
func New(events *eventlog.Log) *Session {
	return &Session{events: events, state: StateIdle}
}

// Start claims the capture slot. port limits the capture to one listener;
// zero accepts a trigger from any listener. Starting over an uncollected
// value discards it and listens again; starting while another capture is
// still listening fails.
func (s *Session) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateListening {
		return fmt.Errorf("capture: already %s", s.state)
	}
	s.state = StateListening
	s.port = port
	s.captured = ""
	s.fromPort = 0
	s.source = ""
	s.started = time.Now()

	if port > 0 {
		s.events.Append("TCP Capture", fmt.Sprintf("Started listening for TCP command on port %d", port))
	} else {
		s.events.Append("TCP Capture", "Started listening for TCP command")
	}
	return nil
}

// Observe offers a received trigger string to the session. It returns true
// when the session was listening and took the value. Routing continues
// regardless; capture observes traffic, it never consumes it.
func (s *Session) Observe(port int, source, trigger string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateListening {
		return false
	}
	if s.port > 0 && s.port != port {
		return false
	}
	s.state = StateCaptured
	s.captured = trigger
	s.fromPort = port
	s.source = source

	s.events.Append("TCP Capture", fmt.Sprintf("Captured %q from %s on port %d", trigger, source, port))
	return true
}

// Result is a collected capture value.
type Result struct {
	Trigger string `json:"trigger"`
	Port    int    `json:"port"`
	Source  string `json:"source"`
}

// Poll reports the session state and, once a value has been captured,
// returns it and resets the session to idle. The value is delivered to
// exactly one poller.
func (s *Session) Poll() (Result, State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCaptured {
		return Result{}, s.state
	}
	result := Result{Trigger: s.captured, Port: s.fromPort, Source: s.source}
	s.reset()
	return result, StateCaptured
}

// Cancel releases the capture slot from any state. Cancelling an idle
// session is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return
	}
	s.reset()
	s.events.Append("TCP Capture", "Capture cancelled")
}

// Status returns the current phase without consuming a captured value.
func (s *Session) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) reset() {
	s.state = StateIdle
	s.port = 0
	s.captured = ""
	s.fromPort = 0
	s.source = ""
	s.started = time.Time{}
}
