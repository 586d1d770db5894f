package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/macrolink-io/macrolink/internal/automator"
	"github.com/macrolink-io/macrolink/internal/capture"
	"github.com/macrolink-io/macrolink/internal/catalog"
	configstore "github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/eventlog"
	"github.com/macrolink-io/macrolink/internal/listener"
	"github.com/macrolink-io/macrolink/internal/router"
	"github.com/macrolink-io/macrolink/internal/server"
)

// storeQueryTimeout bounds context deadlines for store lookups during
// daemon operation (config reloads, catalog persistence).
const storeQueryTimeout = 5 * time.Second

// Options groups dependencies required to construct a Daemon.
type Options struct {
	Store  *configstore.Store
	Logger *log.Logger

	// Binding is the HTTP API bind address. Empty binds localhost only.
	Binding string
	// Port overrides the stored web port when non-zero.
	Port int
	// ListenerHost limits trigger listener binds. Empty binds all interfaces.
	ListenerHost string
}

// Daemon wires the TCP listeners, the trigger router, the Automator client
// and the HTTP API together and keeps them consistent with the stored
// configuration.
type Daemon struct {
	store     *configstore.Store
	logger    *log.Logger
	events    *eventlog.Log
	capture   *capture.Session
	client    *automator.Client
	catalogs  *catalog.Service
	router    *router.Router
	listeners *listener.Manager
	apiServer *server.APIServer

	snapshot  atomic.Pointer[configstore.Snapshot]
	startTime time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a daemon. Call Start to bring it up.
func New(opts Options) (*Daemon, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("daemon: store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[Daemon] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		store:  opts.Store,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	d.events = eventlog.New(eventlog.WithLogger(componentLogger(logger, "Events")))
	d.capture = capture.New(d.events)
	d.client = automator.NewClient(automator.Options{
		Logger: componentLogger(logger, "Automator"),
	})
	d.catalogs = catalog.NewService(catalog.Options{
		Fetcher:     d.client,
		Persistence: opts.Store,
		Logger:      componentLogger(logger, "Catalog"),
	})
	d.router = router.New(router.Options{
		Snapshot: d.Snapshot,
		Dispatch: d.client,
		Types:    d.catalogs,
		Events:   d.events,
		Logger:   componentLogger(logger, "Router"),
	})
	d.listeners = listener.NewManager(listener.Options{
		Sink:   d,
		Events: d.events,
		Logger: componentLogger(logger, "Listener"),
		Host:   opts.ListenerHost,
	})

	port := opts.Port
	if port == 0 {
		qctx, qcancel := context.WithTimeout(ctx, storeQueryTimeout)
		webPort, err := opts.Store.WebPort(qctx)
		qcancel()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("daemon: read web port: %w", err)
		}
		port = webPort
	}
	d.apiServer = server.New(server.Options{
		Backend: d,
		Events:  d.events,
		Capture: d.capture,
		Logger:  componentLogger(logger, "APIServer"),
		Binding: opts.Binding,
		Port:    port,
	})

	return d, nil
}

func componentLogger(base *log.Logger, name string) *log.Logger {
	return log.New(base.Writer(), "["+name+"] ", base.Flags())
}

// Start loads the configuration, opens the TCP listeners and the HTTP API.
func (d *Daemon) Start() error {
	if err := d.ReloadConfig(d.ctx); err != nil {
		return err
	}
	if err := d.apiServer.Start(); err != nil {
		return err
	}
	if err := writePIDFile(); err != nil {
		d.logger.Printf("Pid file: %v", err)
	}
	d.startTime = time.Now()
	d.logger.Printf("Started, HTTP API on port %d", d.apiServer.Port())
	return nil
}

// ReloadConfig rebuilds the routing snapshot from the store and reconciles
// the TCP listeners against it. Runs after every configuration write.
func (d *Daemon) ReloadConfig(ctx context.Context) error {
	snap, err := d.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("daemon: load config: %w", err)
	}
	d.snapshot.Store(snap)

	if dups := snap.DuplicateTriggers(); len(dups) > 0 {
		d.logger.Printf("Duplicate trigger strings configured, first match wins: %s", strings.Join(dups, ", "))
	}

	if err := d.listeners.Reconcile(snap.Listeners); err != nil {
		// Routing still works for the ports that did come up.
		d.logger.Printf("Listener reconcile: %v", err)
		return nil
	}
	return nil
}

// Shutdown stops the HTTP API, then the TCP listeners, then the store.
func (d *Daemon) Shutdown() error {
	d.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.apiServer.Shutdown(ctx); err != nil {
		d.logger.Printf("HTTP shutdown: %v", err)
	}

	d.listeners.Shutdown()
	d.client.Close()
	removePIDFile()

	if err := d.store.Close(); err != nil {
		return fmt.Errorf("daemon: close store: %w", err)
	}
	d.logger.Printf("Stopped")
	return nil
}

// Port returns the bound HTTP API port. Valid after Start.
func (d *Daemon) Port() int {
	return d.apiServer.Port()
}

// Snapshot returns the current routing configuration.
func (d *Daemon) Snapshot() *configstore.Snapshot {
	if snap := d.snapshot.Load(); snap != nil {
		return snap
	}
	return &configstore.Snapshot{}
}

// HandleTrigger feeds one received trigger line to the capture session and
// the router. Capture observes the line; routing proceeds regardless.
func (d *Daemon) HandleTrigger(ctx context.Context, port int, source, trigger string) {
	d.capture.Observe(port, source, trigger)
	d.router.HandleTrigger(ctx, port, source, trigger)
}
