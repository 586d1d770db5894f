package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/macrolink-io/macrolink/internal/automator"
	"github.com/macrolink-io/macrolink/internal/catalog"
	configstore "github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/listener"
	"github.com/macrolink-io/macrolink/internal/validate"
)

// The daemon is the API server's backend: every configuration write runs
// through here so the snapshot and the listeners stay in sync.

// ListenerStatuses reports the active TCP listeners.
func (d *Daemon) ListenerStatuses() []listener.Status {
	return d.listeners.Statuses()
}

// StartTime reports when the daemon came up.
func (d *Daemon) StartTime() time.Time {
	return d.startTime
}

// ConfigDocument exports the full configuration document.
func (d *Daemon) ConfigDocument(ctx context.Context) (configstore.Document, error) {
	return d.store.LoadDocument(ctx)
}

// ApplyConfig imports a configuration document and reconciles.
func (d *Daemon) ApplyConfig(ctx context.Context, doc configstore.Document) error {
	if err := d.store.ImportDocument(ctx, doc); err != nil {
		return err
	}
	d.events.Append("Config", "Configuration updated")
	return d.ReloadConfig(ctx)
}

// AddAutomator registers a new Automator instance.
func (d *Daemon) AddAutomator(ctx context.Context, inst configstore.Automator) (configstore.Automator, error) {
	inst.URL = automator.NormalizeBaseURL(inst.URL)
	if inst.URL != "" {
		if err := validate.HTTPURL(inst.URL); err != nil {
			return configstore.Automator{}, err
		}
	}
	if err := d.store.AddAutomator(ctx, inst); err != nil {
		return configstore.Automator{}, err
	}
	d.events.Append("Config", fmt.Sprintf("Automator %q added", inst.Name))
	if err := d.ReloadConfig(ctx); err != nil {
		return configstore.Automator{}, err
	}
	return inst, nil
}

// UpdateAutomator rewrites an existing Automator instance.
func (d *Daemon) UpdateAutomator(ctx context.Context, inst configstore.Automator) error {
	inst.URL = automator.NormalizeBaseURL(inst.URL)
	if inst.URL != "" {
		if err := validate.HTTPURL(inst.URL); err != nil {
			return err
		}
	}
	if err := d.store.UpdateAutomator(ctx, inst); err != nil {
		return err
	}
	d.events.Append("Config", fmt.Sprintf("Automator %q updated", inst.Name))
	return d.ReloadConfig(ctx)
}

// DeleteAutomator removes an instance and optionally its mappings. The
// cached catalog for the instance is dropped either way.
func (d *Daemon) DeleteAutomator(ctx context.Context, id string, deleteMappings bool) (int, error) {
	removed, err := d.store.DeleteAutomator(ctx, id, deleteMappings)
	if err != nil {
		return 0, err
	}
	d.catalogs.Forget(id)
	d.events.Append("Config", fmt.Sprintf("Automator %s removed (%d mappings dropped)", id, removed))
	if err := d.ReloadConfig(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}

// TestAutomator probes an instance's reachability.
func (d *Daemon) TestAutomator(ctx context.Context, id string) (configstore.Automator, automator.ConnectionStatus, error) {
	inst, err := d.resolveForOps(ctx, id)
	if err != nil {
		return configstore.Automator{}, automator.ConnectionStatus{}, err
	}
	status := d.client.CheckConnection(ctx, inst)
	d.events.Append("Connection Test", fmt.Sprintf("[%s] %s", inst.Name, status.Detail))
	return inst, status, nil
}

// RefreshCatalog forces a catalog refresh for an instance.
func (d *Daemon) RefreshCatalog(ctx context.Context, id string) (*catalog.Catalog, error) {
	inst, err := d.resolveForOps(ctx, id)
	if err != nil {
		return nil, err
	}
	cat, err := d.catalogs.Refresh(ctx, inst)
	if err != nil {
		return cat, err
	}
	d.events.Append("Catalog", fmt.Sprintf("[%s] Catalog refreshed, %d items", inst.Name, len(cat.Items())))
	return cat, nil
}

// CatalogItems returns the cached item list for an instance.
func (d *Daemon) CatalogItems(ctx context.Context, id string) []catalog.Item {
	cat := d.catalogs.Get(ctx, id)
	if cat == nil {
		return nil
	}
	return cat.Items()
}

// ManualTrigger dispatches one item outside the TCP path (UI test button).
func (d *Daemon) ManualTrigger(ctx context.Context, automatorID string, itemType catalog.ItemType, itemID string) automator.Outcome {
	out := d.client.Trigger(ctx, d.Snapshot(), automatorID, itemType, itemID, "")
	if out.OK() {
		d.events.Append("HTTP Trigger", out.Detail)
	} else {
		d.events.Append("HTTP Trigger Failed", out.Detail)
	}
	return out
}

// Settings reads stored UI settings.
func (d *Daemon) Settings(ctx context.Context, keys ...string) (map[string]string, error) {
	return d.store.LoadSettings(ctx, keys...)
}

// SaveSettings persists UI settings.
func (d *Daemon) SaveSettings(ctx context.Context, values map[string]string) error {
	if err := d.store.SaveSettings(ctx, values); err != nil {
		return err
	}
	d.events.Append("Config", "Settings updated")
	return nil
}

// resolveForOps picks the instance for an operator action. An empty id is
// allowed when exactly one enabled instance exists.
func (d *Daemon) resolveForOps(ctx context.Context, id string) (configstore.Automator, error) {
	if id == "" {
		inst, err := automator.ResolveInstance(d.Snapshot(), "")
		if err != nil {
			return configstore.Automator{}, err
		}
		return inst, nil
	}
	return d.store.GetAutomator(ctx, id)
}
