package eventlog

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEntries bounds the in-memory event log. Oldest entries are
// dropped once the bound is exceeded.
const DefaultMaxEntries = 200

// Entry is one operator-visible event. Entries have no correctness role;
// they exist so operators can diagnose trigger handling without reproducing.
type Entry struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
}

// String renders the entry the way it appears in the UI event feed.
func (e Entry) String() string {
	return "[" + e.Time.Format("2006-01-02 15:04:05") + "] " + e.Kind + ": " + e.Detail
}

// Log is an append-only bounded event log with live subscriptions.
type Log struct {
	logger *log.Logger

	mu      sync.RWMutex
	entries []Entry
	max     int
	subs    map[uint64]*Subscription
	nextID  uint64
}

// Option customises log behaviour.
type Option func(*Log)

// WithMaxEntries overrides the retention bound.
func WithMaxEntries(max int) Option {
	return func(l *Log) {
		if max > 0 {
			l.max = max
		}
	}
}

// WithLogger overrides the logger that mirrors appended events.
func WithLogger(logger *log.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New constructs an event log with the default retention bound.
func New(opts ...Option) *Log {
	l := &Log{
		logger: log.Default(),
		max:    DefaultMaxEntries,
		subs:   make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records an event and fans it out to subscribers. Safe for
// concurrent use from any goroutine.
func (l *Log) Append(kind, detail string) Entry {
	entry := Entry{
		ID:     uuid.New().String(),
		Time:   time.Now(),
		Kind:   kind,
		Detail: detail,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Printf("%s: %s", kind, detail)
	}

	// Fan out under the read lock so Close (which takes the write lock
	// before closing a channel) cannot race a delivery.
	l.mu.RLock()
	for _, sub := range l.subs {
		sub.deliver(entry)
	}
	l.mu.RUnlock()
	return entry
}

// Recent returns up to n entries, oldest first. n <= 0 returns everything
// retained.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if n > 0 && len(l.entries) > n {
		start = len(l.entries) - n
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Subscription is a consumer of live event entries.
type Subscription struct {
	id     uint64
	ch     chan Entry
	log    *Log
	closed sync.Once
}

// Subscribe registers a live consumer. The channel is buffered; when the
// consumer falls behind, the oldest pending entry is dropped so appends
// never block the ingestion path.
func (l *Log) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}

	l.mu.Lock()
	l.nextID++
	sub := &Subscription{
		id:  l.nextID,
		ch:  make(chan Entry, buffer),
		log: l,
	}
	l.subs[sub.id] = sub
	l.mu.Unlock()
	return sub
}

// C exposes the entry channel.
func (s *Subscription) C() <-chan Entry {
	return s.ch
}

// Close removes the subscription and closes the channel.
func (s *Subscription) Close() {
	s.closed.Do(func() {
		s.log.mu.Lock()
		delete(s.log.subs, s.id)
		s.log.mu.Unlock()
		close(s.ch)
	})
}

func (s *Subscription) deliver(entry Entry) {
	select {
	case s.ch <- entry:
		return
	default:
	}

	// Channel full: drop the oldest pending entry and retry once.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- entry:
	default:
	}
}
