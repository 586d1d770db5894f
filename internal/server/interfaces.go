package server

import (
	"context"
	"time"

	"github.com/macrolink-io/macrolink/internal/automator"
	"github.com/macrolink-io/macrolink/internal/catalog"
	"github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/listener"
)

// Backend is the daemon surface the HTTP API exposes. Configuration writes
// go through the backend so the daemon can rebuild its snapshot and
// reconcile listeners after every change.
type Backend interface {
	Snapshot() *store.Snapshot
	ListenerStatuses() []listener.Status
	StartTime() time.Time

	ConfigDocument(ctx context.Context) (store.Document, error)
	ApplyConfig(ctx context.Context, doc store.Document) error

	AddAutomator(ctx context.Context, inst store.Automator) (store.Automator, error)
	UpdateAutomator(ctx context.Context, inst store.Automator) error
	DeleteAutomator(ctx context.Context, id string, deleteMappings bool) (int, error)

	TestAutomator(ctx context.Context, id string) (store.Automator, automator.ConnectionStatus, error)
	RefreshCatalog(ctx context.Context, id string) (*catalog.Catalog, error)
	CatalogItems(ctx context.Context, id string) []catalog.Item
	ManualTrigger(ctx context.Context, automatorID string, itemType catalog.ItemType, itemID string) automator.Outcome

	Settings(ctx context.Context, keys ...string) (map[string]string, error)
	SaveSettings(ctx context.Context, values map[string]string) error
}
