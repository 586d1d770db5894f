package router

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/macrolink-io/macrolink/internal/automator"
	"github.com/macrolink-io/macrolink/internal/catalog"
	"github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/eventlog"
)

type dispatchCall struct {
	automatorID string
	itemType    catalog.ItemType
	itemID      string
	itemName    string
}

type fakeDispatcher struct {
	calls   []dispatchCall
	outcome automator.Outcome
}

func (f *fakeDispatcher) Trigger(ctx context.Context, snap *store.Snapshot, automatorID string, itemType catalog.ItemType, itemID, itemName string) automator.Outcome {
	f.calls = append(f.calls, dispatchCall{automatorID, itemType, itemID, itemName})
	return f.outcome
}

type fakeTypes struct{ byID map[string]catalog.ItemType }

func (f *fakeTypes) TypeOf(ctx context.Context, automatorID, itemID, storedType string) catalog.ItemType {
	if t := catalog.ParseItemType(storedType); t != catalog.TypeUnknown {
		return t
	}
	if t, ok := f.byID[itemID]; ok {
		return t
	}
	return catalog.TypeMacro
}

func testSnapshot() *store.Snapshot {
	return &store.Snapshot{
		Commands: []store.TCPCommand{
			{ID: "c1", Name: "Lights", Trigger: "LIGHT_ON"},
			{ID: "c2", Name: "Shadowed", Trigger: "light_on"},
			{ID: "c3", Name: "Unmapped", Trigger: "NOOP"},
		},
		Automators: []store.Automator{
			{ID: "a1", Name: "Rack", URL: "http://rack:3114", Enabled: true},
		},
		Mappings: []store.CommandMapping{
			{TCPCommandID: "c1", AutomatorID: "a1", TargetItemID: "m5", TargetItemName: "Lights up"},
		},
	}
}

func testRouter(snap *store.Snapshot, d Dispatcher) (*Router, *eventlog.Log) {
	events := eventlog.New(eventlog.WithLogger(log.New(io.Discard, "", 0)))
	r := New(Options{
		Snapshot: func() *store.Snapshot { return snap },
		Dispatch: d,
		Types:    &fakeTypes{byID: map[string]catalog.ItemType{"m5": catalog.TypeMacro}},
		Events:   events,
		Logger:   log.New(io.Discard, "", 0),
	})
	return r, events
}

func TestHandleTriggerDispatchesMatch(t *testing.T) {
	d := &fakeDispatcher{outcome: automator.Outcome{Kind: automator.OutcomeDispatched, Detail: "[Rack] Calling macro: Lights up"}}
	r, events := testRouter(testSnapshot(), d)

	result := r.HandleTrigger(context.Background(), 9001, "10.0.0.5:40000", "LIGHT_ON")
	if !result.Dispatched {
		t.Fatalf("expected dispatch, got %+v", result)
	}
	if len(d.calls) != 1 {
		t.Fatalf("expected 1 dispatch call, got %d", len(d.calls))
	}
	call := d.calls[0]
	if call.automatorID != "a1" || call.itemID != "m5" || call.itemType != catalog.TypeMacro {
		t.Errorf("unexpected call %+v", call)
	}

	entries := events.Recent(0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 events, got %d", len(entries))
	}
	if entries[0].Kind != "TCP Command" || !strings.Contains(entries[0].Detail, `"LIGHT_ON"`) {
		t.Errorf("unexpected receive event %+v", entries[0])
	}
	if entries[1].Kind != "HTTP Trigger" {
		t.Errorf("unexpected dispatch event %+v", entries[1])
	}
}

func TestHandleTriggerCaseInsensitiveFirstWins(t *testing.T) {
	d := &fakeDispatcher{outcome: automator.Outcome{Kind: automator.OutcomeDispatched}}
	r, _ := testRouter(testSnapshot(), d)

	result := r.HandleTrigger(context.Background(), 9001, "peer", "Light_On")
	if !result.Matched || result.Command.ID != "c1" {
		t.Errorf("expected first command in document order, got %+v", result.Command)
	}
}

func TestHandleTriggerNoCommand(t *testing.T) {
	d := &fakeDispatcher{}
	r, events := testRouter(testSnapshot(), d)

	result := r.HandleTrigger(context.Background(), 9001, "peer", "UNKNOWN")
	if result.Matched || result.Dispatched {
		t.Fatalf("expected drop, got %+v", result)
	}
	if len(d.calls) != 0 {
		t.Error("dispatcher must not be called for unmatched triggers")
	}
	entries := events.Recent(0)
	if len(entries) != 2 || !strings.Contains(entries[1].Detail, "No command defined") {
		t.Errorf("unexpected events %+v", entries)
	}
}

func TestHandleTriggerUnmappedCommand(t *testing.T) {
	d := &fakeDispatcher{}
	r, events := testRouter(testSnapshot(), d)

	result := r.HandleTrigger(context.Background(), 9001, "peer", "NOOP")
	if !result.Matched || result.Mapped {
		t.Fatalf("expected matched but unmapped, got %+v", result)
	}
	if len(d.calls) != 0 {
		t.Error("dispatcher must not be called for unmapped commands")
	}
	entries := events.Recent(0)
	if !strings.Contains(entries[1].Detail, "not mapped") {
		t.Errorf("unexpected events %+v", entries)
	}
}

func TestHandleTriggerMappingWithoutAutomator(t *testing.T) {
	// Even with exactly one enabled instance, a mapping that names no
	// automator is a configuration error, not a dispatch.
	snap := testSnapshot()
	snap.Mappings[0].AutomatorID = ""
	d := &fakeDispatcher{outcome: automator.Outcome{Kind: automator.OutcomeDispatched}}
	r, events := testRouter(snap, d)

	result := r.HandleTrigger(context.Background(), 9001, "peer", "LIGHT_ON")
	if !result.Matched || !result.Mapped || result.Dispatched {
		t.Fatalf("expected mapping error, got %+v", result)
	}
	if len(d.calls) != 0 {
		t.Error("dispatcher must not be called for a mapping without an automator")
	}
	entries := events.Recent(0)
	if entries[1].Kind != "Mapping Error" || !strings.Contains(entries[1].Detail, "no automator configured") {
		t.Errorf("unexpected events %+v", entries)
	}
}

func TestHandleTriggerDispatchFailureLogged(t *testing.T) {
	d := &fakeDispatcher{outcome: automator.Outcome{Kind: automator.OutcomeTransportError, Detail: "connection refused"}}
	r, events := testRouter(testSnapshot(), d)

	result := r.HandleTrigger(context.Background(), 9001, "peer", "LIGHT_ON")
	if result.Dispatched {
		t.Fatalf("expected failure, got %+v", result)
	}
	entries := events.Recent(0)
	if entries[1].Kind != "HTTP Trigger Failed" || !strings.Contains(entries[1].Detail, "connection refused") {
		t.Errorf("unexpected failure event %+v", entries[1])
	}
}

func TestHandleTriggerStoredTypeOverridesInference(t *testing.T) {
	snap := testSnapshot()
	snap.Mappings[0].ItemType = "button"
	d := &fakeDispatcher{outcome: automator.Outcome{Kind: automator.OutcomeDispatched}}
	r, _ := testRouter(snap, d)

	r.HandleTrigger(context.Background(), 9001, "peer", "LIGHT_ON")
	if d.calls[0].itemType != catalog.TypeButton {
		t.Errorf("expected stored type used, got %q", d.calls[0].itemType)
	}
}
