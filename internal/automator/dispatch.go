package automator

import (
	"context"
	"fmt"

	"github.com/macrolink-io/macrolink/internal/catalog"
	"github.com/macrolink-io/macrolink/internal/config/store"
)

// OutcomeKind classifies a dispatch attempt.
type OutcomeKind string

const (
	// OutcomeDispatched means the instance accepted the trigger (2xx).
	OutcomeDispatched OutcomeKind = "dispatched"
	// OutcomeConfigError means the configuration made dispatch impossible:
	// unknown, disabled or ambiguous instance, or a missing URL.
	OutcomeConfigError OutcomeKind = "config_error"
	// OutcomeTransportError means the instance could not be reached.
	OutcomeTransportError OutcomeKind = "transport_error"
	// OutcomeHTTPError means the instance answered with a non-2xx status.
	OutcomeHTTPError OutcomeKind = "http_error"
)

// Outcome is the result of a single dispatch attempt. Dispatch is
// fire-and-forget: one request, no retries, the outcome says what happened.
type Outcome struct {
	Kind       OutcomeKind
	Instance   store.Automator
	StatusCode int
	Detail     string
	Err        error
}

// OK reports whether the trigger was accepted.
func (o Outcome) OK() bool { return o.Kind == OutcomeDispatched }

// ResolveInstance picks the target instance for a dispatch. An explicit id
// must name a known, enabled instance. An empty id is allowed only when
// exactly one enabled instance exists.
func ResolveInstance(snap *store.Snapshot, automatorID string) (store.Automator, error) {
	if automatorID != "" {
		inst, ok := snap.AutomatorByID(automatorID)
		if !ok {
			return store.Automator{}, fmt.Errorf("automator %s is not configured", automatorID)
		}
		if !inst.Enabled {
			return store.Automator{}, fmt.Errorf("automator %q is disabled", inst.Name)
		}
		return inst, nil
	}

	enabled := snap.EnabledAutomators()
	switch len(enabled) {
	case 0:
		return store.Automator{}, fmt.Errorf("no enabled automator configured")
	case 1:
		return enabled[0], nil
	default:
		return store.Automator{}, fmt.Errorf("%d automators enabled, mapping must name one", len(enabled))
	}
}

// Trigger dispatches one executable item on the resolved instance. itemName
// is used only for operator-facing detail text.
func (c *Client) Trigger(ctx context.Context, snap *store.Snapshot, automatorID string, itemType catalog.ItemType, itemID, itemName string) Outcome {
	inst, err := ResolveInstance(snap, automatorID)
	if err != nil {
		return Outcome{Kind: OutcomeConfigError, Detail: err.Error(), Err: err}
	}
	return c.TriggerOn(ctx, inst, itemType, itemID, itemName)
}

// TriggerOn dispatches one executable item on a specific instance.
func (c *Client) TriggerOn(ctx context.Context, inst store.Automator, itemType catalog.ItemType, itemID, itemName string) Outcome {
	if NormalizeBaseURL(inst.URL) == "" {
		err := fmt.Errorf("automator %q has no URL configured", inst.Name)
		return Outcome{Kind: OutcomeConfigError, Instance: inst, Detail: err.Error(), Err: err}
	}
	if !inst.Enabled {
		err := fmt.Errorf("automator %q is disabled", inst.Name)
		return Outcome{Kind: OutcomeConfigError, Instance: inst, Detail: err.Error(), Err: err}
	}

	label := itemName
	if label == "" {
		label = itemID
	}

	resp, err := c.get(ctx, inst, itemType.EndpointPath(itemID))
	if err != nil {
		detail := classifyTransportError(err)
		c.logger.Printf("Trigger %s %q on %s failed: %s", itemType, label, inst.Name, detail)
		return Outcome{Kind: OutcomeTransportError, Instance: inst, Detail: detail, Err: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := fmt.Sprintf("HTTP %d", resp.StatusCode)
		c.logger.Printf("Trigger %s %q on %s rejected: %s", itemType, label, inst.Name, detail)
		return Outcome{
			Kind:       OutcomeHTTPError,
			Instance:   inst,
			StatusCode: resp.StatusCode,
			Detail:     detail,
			Err:        fmt.Errorf("automator %q answered %s", inst.Name, detail),
		}
	}

	return Outcome{
		Kind:       OutcomeDispatched,
		Instance:   inst,
		StatusCode: resp.StatusCode,
		Detail:     fmt.Sprintf("[%s] Calling %s: %s", inst.Name, displayType(itemType), label),
	}
}

func displayType(t catalog.ItemType) string {
	switch t {
	case catalog.TypeButton:
		return "button"
	case catalog.TypeShortcut:
		return "shortcut"
	default:
		return "macro"
	}
}
