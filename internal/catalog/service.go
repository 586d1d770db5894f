package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/macrolink-io/macrolink/internal/config/store"
)

// Fetcher pulls live item lists from one Automator instance. Implemented by
// the automator HTTP client.
type Fetcher interface {
	FetchMacros(ctx context.Context, inst store.Automator) ([]Item, error)
	FetchButtons(ctx context.Context, inst store.Automator) ([]Item, error)
	FetchShortcuts(ctx context.Context, inst store.Automator) ([]Item, error)
}

// Persistence is the subset of the config store the catalog service needs.
type Persistence interface {
	SaveCatalog(ctx context.Context, automatorID string, payload []byte, updated time.Time) error
	LoadCatalog(ctx context.Context, automatorID string) ([]byte, time.Time, error)
}

// Service keeps one cached catalog per Automator instance and refreshes it
// on demand. Refreshes for different instances may run concurrently; a
// second refresh for the same instance waits for the first.
type Service struct {
	fetcher Fetcher
	persist Persistence
	logger  *log.Logger

	mu    sync.Mutex
	cache map[string]*Catalog
	perID map[string]*sync.Mutex
	nowFn func() time.Time
}

// Options configures a catalog service.
type Options struct {
	Fetcher     Fetcher
	Persistence Persistence
	Logger      *log.Logger
}

// NewService constructs a catalog service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		fetcher: opts.Fetcher,
		persist: opts.Persistence,
		logger:  logger,
		cache:   make(map[string]*Catalog),
		perID:   make(map[string]*sync.Mutex),
		nowFn:   time.Now,
	}
}

func (s *Service) lockFor(automatorID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.perID[automatorID]
	if !ok {
		m = &sync.Mutex{}
		s.perID[automatorID] = m
	}
	return m
}

// Refresh fetches macros, buttons and shortcuts from the instance and
// replaces the cached catalog. Partial failures keep the failed section's
// previous contents; if every section fails the cached catalog survives
// untouched and an error is returned.
func (s *Service) Refresh(ctx context.Context, inst store.Automator) (*Catalog, error) {
	if !inst.Enabled {
		return nil, fmt.Errorf("catalog: automator %s is disabled", inst.ID)
	}

	m := s.lockFor(inst.ID)
	m.Lock()
	defer m.Unlock()

	// Loads the persisted catalog on first access so a refresh right after
	// a restart still has the previous items to fall back on.
	prev := s.Get(ctx, inst.ID)

	macros, errMacros := s.fetcher.FetchMacros(ctx, inst)
	buttons, errButtons := s.fetcher.FetchButtons(ctx, inst)
	shortcuts, errShortcuts := s.fetcher.FetchShortcuts(ctx, inst)

	if errMacros != nil && errButtons != nil && errShortcuts != nil {
		if prev != nil {
			s.logger.Printf("[Catalog] Refresh failed for %s, keeping cached catalog from %s: %v",
				inst.Name, prev.LastUpdated.Format(time.RFC3339), errMacros)
			return prev, fmt.Errorf("catalog: refresh %s: %w", inst.ID, errMacros)
		}
		return nil, fmt.Errorf("catalog: refresh %s: %w", inst.ID, errMacros)
	}

	next := &Catalog{AutomatorID: inst.ID, LastUpdated: s.nowFn().UTC()}
	next.Macros = s.section(prev, errMacros, macros, func(c *Catalog) []Item { return c.Macros }, inst.Name, "macros")
	next.Buttons = s.section(prev, errButtons, buttons, func(c *Catalog) []Item { return c.Buttons }, inst.Name, "buttons")
	next.Shortcuts = s.section(prev, errShortcuts, shortcuts, func(c *Catalog) []Item { return c.Shortcuts }, inst.Name, "shortcuts")

	s.put(next)
	if err := s.save(ctx, next); err != nil {
		s.logger.Printf("[Catalog] Persist failed for %s: %v", inst.Name, err)
	}
	return next, nil
}

func (s *Service) section(prev *Catalog, fetchErr error, fresh []Item, pick func(*Catalog) []Item, name, kind string) []Item {
	if fetchErr != nil {
		s.logger.Printf("[Catalog] Fetching %s from %s failed, keeping cached list: %v", kind, name, fetchErr)
		if prev != nil {
			return pick(prev)
		}
		return nil
	}
	return dedupeByID(fresh)
}

// Get returns the cached catalog for an instance, loading it from the
// config store on first access. Returns nil when nothing is cached.
func (s *Service) Get(ctx context.Context, automatorID string) *Catalog {
	if c := s.get(automatorID); c != nil {
		return c
	}
	if s.persist == nil {
		return nil
	}

	payload, updated, err := s.persist.LoadCatalog(ctx, automatorID)
	if err != nil {
		if !store.IsNotFound(err) {
			s.logger.Printf("[Catalog] Loading persisted catalog for %s failed: %v", automatorID, err)
		}
		return nil
	}

	var c Catalog
	if err := json.Unmarshal(payload, &c); err != nil {
		s.logger.Printf("[Catalog] Persisted catalog for %s is corrupt: %v", automatorID, err)
		return nil
	}
	c.AutomatorID = automatorID
	if c.LastUpdated.IsZero() {
		c.LastUpdated = updated
	}
	s.put(&c)
	return s.get(automatorID)
}

// TypeOf infers the item type for a mapping target. An explicit stored type
// wins; otherwise the cached catalog is consulted; otherwise macro.
func (s *Service) TypeOf(ctx context.Context, automatorID, itemID, storedType string) ItemType {
	if t := ParseItemType(storedType); t != TypeUnknown {
		return t
	}
	if c := s.Get(ctx, automatorID); c != nil {
		for _, item := range c.Macros {
			if item.ID == itemID {
				return TypeMacro
			}
		}
		for _, item := range c.Buttons {
			if item.ID == itemID {
				return TypeButton
			}
		}
		for _, item := range c.Shortcuts {
			if item.ID == itemID {
				return TypeShortcut
			}
		}
	}
	return TypeMacro
}

// Forget drops the cached catalog for a removed instance.
func (s *Service) Forget(automatorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, automatorID)
	delete(s.perID, automatorID)
}

func (s *Service) get(automatorID string) *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache[automatorID]
}

func (s *Service) put(c *Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[c.AutomatorID] = c
}

func (s *Service) save(ctx context.Context, c *Catalog) error {
	if s.persist == nil {
		return nil
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("catalog: marshal %s: %w", c.AutomatorID, err)
	}
	return s.persist.SaveCatalog(ctx, c.AutomatorID, payload, c.LastUpdated)
}
