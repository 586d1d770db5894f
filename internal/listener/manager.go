package listener

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/eventlog"
)

// maxLineLength bounds a single received trigger line. Show controllers send
// short command strings; anything longer is a misbehaving peer.
const maxLineLength = 4096

// Sink receives trimmed, non-empty trigger lines from listener connections.
type Sink interface {
	HandleTrigger(ctx context.Context, port int, source, trigger string)
}

// Manager owns the set of active TCP listeners and reconciles it against
// the configured set. Listeners accept plain-text connections and forward
// each received line to the sink.
type Manager struct {
	sink   Sink
	events *eventlog.Log
	logger *log.Logger
	host   string

	mu        sync.Mutex
	listeners map[int]*portListener
	closed    bool
}

// Options configures a listener manager.
type Options struct {
	Sink   Sink
	Events *eventlog.Log
	Logger *log.Logger

	// Host limits the bind address. Empty binds all interfaces.
	Host string
}

// NewManager constructs a manager with no active listeners.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[Listener] ", log.LstdFlags)
	}
	return &Manager{
		sink:      opts.Sink,
		events:    opts.Events,
		logger:    logger,
		host:      opts.Host,
		listeners: make(map[int]*portListener),
	}
}

// Reconcile brings the active listener set in line with the desired one:
// enabled ports not yet listening are started, ports that are disabled or
// gone are stopped, ports already matching are left untouched. Bind
// failures are collected and returned; the remaining ports still reconcile.
func (m *Manager) Reconcile(desired []store.TCPListener) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("listener: manager is shut down")
	}

	want := make(map[int]store.TCPListener, len(desired))
	for _, l := range desired {
		if !l.Enabled {
			continue
		}
		if _, dup := want[l.Port]; dup {
			m.logger.Printf("Port %d configured twice, keeping the first entry", l.Port)
			continue
		}
		want[l.Port] = l
	}

	var errs []error

	for port, pl := range m.listeners {
		if _, keep := want[port]; !keep {
			pl.stop()
			delete(m.listeners, port)
			m.logEvent("TCP Listener", fmt.Sprintf("Stopped listening on port %d", port))
		}
	}

	for port, cfg := range want {
		if _, running := m.listeners[port]; running {
			continue
		}
		pl, err := m.start(cfg)
		if err != nil {
			errs = append(errs, err)
			m.logEvent("TCP Listener", fmt.Sprintf("Failed to open port %d: %v", port, err))
			continue
		}
		m.listeners[port] = pl
		m.logEvent("TCP Listener", fmt.Sprintf("Listening on port %d (%s)", port, cfg.Name))
	}

	return errors.Join(errs...)
}

// Status describes one active listener.
type Status struct {
	Port  int    `json:"port"`
	Name  string `json:"name"`
	Peers int    `json:"peers"`
}

// Statuses returns the active listeners sorted by port.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.listeners))
	for _, pl := range m.listeners {
		out = append(out, Status{Port: pl.cfg.Port, Name: pl.cfg.Name, Peers: pl.peerCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// Shutdown stops every listener and closes all peer connections. The
// manager cannot be reused afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for port, pl := range m.listeners {
		pl.stop()
		delete(m.listeners, port)
	}
}

func (m *Manager) start(cfg store.TCPListener) (*portListener, error) {
	addr := fmt.Sprintf("%s:%d", m.host, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listener: open port %d: %w", cfg.Port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pl := &portListener{
		cfg:    cfg,
		ln:     ln,
		cancel: cancel,
		conns:  make(map[net.Conn]struct{}),
		mgr:    m,
	}
	pl.wg.Add(1)
	go pl.acceptLoop(ctx)
	return pl, nil
}

func (m *Manager) logEvent(kind, detail string) {
	m.logger.Printf("%s", detail)
	if m.events != nil {
		m.events.Append(kind, detail)
	}
}

type portListener struct {
	cfg    store.TCPListener
	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mgr    *Manager

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

func (pl *portListener) acceptLoop(ctx context.Context) {
	defer pl.wg.Done()

	for {
		conn, err := pl.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			pl.mgr.logger.Printf("Accept on port %d failed: %v", pl.cfg.Port, err)
			return
		}

		pl.track(conn)
		pl.wg.Add(1)
		go pl.serveConn(ctx, conn)
	}
}

func (pl *portListener) serveConn(ctx context.Context, conn net.Conn) {
	defer pl.wg.Done()
	defer pl.untrack(conn)
	defer conn.Close()

	source := conn.RemoteAddr().String()
	pl.mgr.logger.Printf("Client %s connected on port %d", source, pl.cfg.Port)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), maxLineLength)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pl.mgr.sink.HandleTrigger(ctx, pl.cfg.Port, source, line)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		pl.mgr.logger.Printf("Client %s on port %d read error: %v", source, pl.cfg.Port, err)
	}
	pl.mgr.logger.Printf("Client %s disconnected from port %d", source, pl.cfg.Port)
}

func (pl *portListener) track(conn net.Conn) {
	pl.connMu.Lock()
	pl.conns[conn] = struct{}{}
	pl.connMu.Unlock()
}

func (pl *portListener) untrack(conn net.Conn) {
	pl.connMu.Lock()
	delete(pl.conns, conn)
	pl.connMu.Unlock()
}

func (pl *portListener) peerCount() int {
	pl.connMu.Lock()
	defer pl.connMu.Unlock()
	return len(pl.conns)
}

func (pl *portListener) stop() {
	pl.cancel()
	pl.ln.Close()

	pl.connMu.Lock()
	for conn := range pl.conns {
		conn.Close()
	}
	pl.connMu.Unlock()

	pl.wg.Wait()
}
