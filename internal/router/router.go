package router

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/macrolink-io/macrolink/internal/automator"
	"github.com/macrolink-io/macrolink/internal/catalog"
	"github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/eventlog"
)

// Dispatcher sends a resolved trigger to an Automator instance. Implemented
// by the automator client.
type Dispatcher interface {
	Trigger(ctx context.Context, snap *store.Snapshot, automatorID string, itemType catalog.ItemType, itemID, itemName string) automator.Outcome
}

// TypeInferrer resolves the item type for a mapping target. Implemented by
// the catalog service.
type TypeInferrer interface {
	TypeOf(ctx context.Context, automatorID, itemID, storedType string) catalog.ItemType
}

// SnapshotFunc returns the current routing configuration.
type SnapshotFunc func() *store.Snapshot

// Router turns received trigger strings into Automator dispatches. Every
// attempt, matched or not, lands in the event log.
type Router struct {
	snapshot SnapshotFunc
	dispatch Dispatcher
	types    TypeInferrer
	events   *eventlog.Log
	logger   *log.Logger
}

// Options configures a router.
type Options struct {
	Snapshot SnapshotFunc
	Dispatch Dispatcher
	Types    TypeInferrer
	Events   *eventlog.Log
	Logger   *log.Logger
}

// New constructs a router.
func New(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[Router] ", log.LstdFlags)
	}
	return &Router{
		snapshot: opts.Snapshot,
		dispatch: opts.Dispatch,
		types:    opts.Types,
		events:   opts.Events,
		logger:   logger,
	}
}

// Result describes how one received trigger string was handled.
type Result struct {
	Trigger    string
	Command    store.TCPCommand
	Matched    bool
	Mapped     bool
	Dispatched bool
	Outcome    automator.Outcome
	Reason     string
}

// HandleTrigger resolves and dispatches one trimmed trigger string received
// on a TCP listener. Matching is case-insensitive exact; the first command
// in document order wins. Unmatched and unmapped triggers are logged and
// dropped, never an error.
func (r *Router) HandleTrigger(ctx context.Context, port int, source, trigger string) Result {
	r.events.Append("TCP Command", fmt.Sprintf("Received %q on port %d from %s", trigger, port, source))

	snap := r.snapshot()
	result := Result{Trigger: trigger}

	cmd, ok := snap.FindCommand(trigger)
	if !ok {
		result.Reason = fmt.Sprintf("no command defined for %q", trigger)
		r.events.Append("TCP Command", fmt.Sprintf("No command defined for %q", trigger))
		return result
	}
	result.Command = cmd
	result.Matched = true

	mapping, ok := snap.MappingFor(cmd.ID)
	if !ok {
		result.Reason = fmt.Sprintf("command %q is not mapped to an action", cmd.Name)
		r.events.Append("TCP Command", fmt.Sprintf("Command %q is not mapped to an action", cmd.Name))
		return result
	}
	result.Mapped = true

	if mapping.AutomatorID == "" {
		result.Reason = fmt.Sprintf("mapping for command %q has no automator configured", cmd.Name)
		r.events.Append("Mapping Error", fmt.Sprintf("Mapping for command %q has no automator configured", cmd.Name))
		r.logger.Printf("Mapping for command %q has no automator configured", cmd.Name)
		return result
	}

	itemType := r.types.TypeOf(ctx, mapping.AutomatorID, mapping.TargetItemID, mapping.ItemType)

	out := r.dispatch.Trigger(ctx, snap, mapping.AutomatorID, itemType, mapping.TargetItemID, mapping.TargetItemName)
	result.Outcome = out
	if out.OK() {
		result.Dispatched = true
		r.events.Append("HTTP Trigger", out.Detail)
	} else {
		result.Reason = out.Detail
		r.events.Append("HTTP Trigger Failed", fmt.Sprintf("Command %q: %s", cmd.Name, out.Detail))
		r.logger.Printf("Dispatch for command %q failed: %s", cmd.Name, out.Detail)
	}
	return result
}
