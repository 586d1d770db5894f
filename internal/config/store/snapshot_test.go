package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSnapshotLookups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := Document{
		TCPListeners: []TCPListener{{Port: 9001, Enabled: true}},
		TCPCommands: []TCPCommand{
			{ID: "c1", Name: "Light on", Trigger: "LIGHT_ON"},
			{ID: "c2", Name: "Light off", Trigger: "LIGHT_OFF"},
		},
		Automators: []Automator{
			{ID: "a1", Name: "Rack", Enabled: true},
			{ID: "a2", Name: "Spare", Enabled: false},
		},
		CommandMappings: []CommandMapping{
			{TCPCommandID: "c1", AutomatorID: "a1", TargetItemID: "m5", ItemType: "macro"},
		},
	}
	if err := s.ImportDocument(ctx, doc); err != nil {
		t.Fatalf("ImportDocument failed: %v", err)
	}

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	cmd, ok := snap.FindCommand("light_on")
	if !ok || cmd.ID != "c1" {
		t.Errorf("case-insensitive FindCommand failed: %+v ok=%v", cmd, ok)
	}
	if _, ok := snap.FindCommand("UNKNOWN"); ok {
		t.Error("expected no match for unknown trigger")
	}

	m, ok := snap.MappingFor("c1")
	if !ok || m.TargetItemID != "m5" {
		t.Errorf("MappingFor failed: %+v ok=%v", m, ok)
	}
	if _, ok := snap.MappingFor("c2"); ok {
		t.Error("expected no mapping for c2")
	}

	a, ok := snap.AutomatorByID("a2")
	if !ok || a.Name != "Spare" {
		t.Errorf("AutomatorByID failed: %+v ok=%v", a, ok)
	}

	enabled := snap.EnabledAutomators()
	if len(enabled) != 1 || enabled[0].ID != "a1" {
		t.Errorf("EnabledAutomators mismatch: %+v", enabled)
	}
}

func TestSnapshotVersionIncreases(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	second, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if second.Version <= first.Version {
		t.Errorf("expected version to increase: %d then %d", first.Version, second.Version)
	}
}

func TestSnapshotDuplicateTriggers(t *testing.T) {
	snap := &Snapshot{
		Commands: []TCPCommand{
			{ID: "c1", Trigger: "GO"},
			{ID: "c2", Trigger: "go"},
			{ID: "c3", Trigger: "STOP"},
			{ID: "c4", Trigger: "Go"},
		},
	}

	dups := snap.DuplicateTriggers()
	if len(dups) != 1 {
		t.Fatalf("expected one duplicate trigger, got %v", dups)
	}
	if dups[0] != "go" {
		t.Errorf("expected duplicate reported at second occurrence, got %q", dups[0])
	}
}

func TestCatalogPayloadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, _, err := s.LoadCatalog(ctx, "a1"); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError for missing catalog, got %v", err)
	}

	payload := []byte(`{"macros":[{"id":"m1","title":"Cut"}]}`)
	if err := s.SaveCatalog(ctx, "a1", payload, testTime(t)); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}

	got, updated, err := s.LoadCatalog(ctx, "a1")
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: %s", got)
	}
	if updated.IsZero() {
		t.Error("expected non-zero last_updated")
	}
}

func TestCatalogSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "config.db")
	ctx := context.Background()

	s, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	payload := []byte(`{"buttons":[{"id":"b7","name":"Cam 2"}]}`)
	if err := s.SaveCatalog(ctx, "a1", payload, testTime(t)); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, _, err := s.LoadCatalog(ctx, "a1")
	if err != nil {
		t.Fatalf("LoadCatalog after reopen failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch after reopen: %s", got)
	}
}
