package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "config.db")
	s, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestListenersRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	listeners := []TCPListener{
		{Port: 9001, Name: "Camera switcher", Enabled: true},
		{Port: 9002, Name: "Lighting desk", Enabled: false},
	}
	if err := s.ReplaceListeners(ctx, listeners); err != nil {
		t.Fatalf("ReplaceListeners failed: %v", err)
	}

	got, err := s.ListListeners(ctx)
	if err != nil {
		t.Fatalf("ListListeners failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 listeners, got %d", len(got))
	}
	if got[0].Port != 9001 || !got[0].Enabled {
		t.Errorf("first listener mismatch: %+v", got[0])
	}
	if got[1].Port != 9002 || got[1].Enabled {
		t.Errorf("second listener mismatch: %+v", got[1])
	}

	// Replace keeps only the new set.
	if err := s.ReplaceListeners(ctx, listeners[:1]); err != nil {
		t.Fatalf("ReplaceListeners (shrink) failed: %v", err)
	}
	got, err = s.ListListeners(ctx)
	if err != nil {
		t.Fatalf("ListListeners failed: %v", err)
	}
	if len(got) != 1 || got[0].Port != 9001 {
		t.Fatalf("expected only port 9001 after shrink, got %+v", got)
	}
}

func TestCommandsPreserveDocumentOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	commands := []TCPCommand{
		{ID: "c3", Name: "Third", Trigger: "THREE"},
		{ID: "c1", Name: "First", Trigger: "ONE"},
		{ID: "c2", Name: "Second", Trigger: "TWO"},
	}
	if err := s.ReplaceCommands(ctx, commands); err != nil {
		t.Fatalf("ReplaceCommands failed: %v", err)
	}

	got, err := s.ListCommands(ctx)
	if err != nil {
		t.Fatalf("ListCommands failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(got))
	}
	for i, want := range []string{"c3", "c1", "c2"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestAutomatorCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := Automator{ID: "auto_1", Name: "Studio A", URL: "http://10.0.0.5:8080", Enabled: true}
	if err := s.AddAutomator(ctx, a); err != nil {
		t.Fatalf("AddAutomator failed: %v", err)
	}
	if err := s.AddAutomator(ctx, a); err == nil {
		t.Fatal("expected duplicate id to fail")
	}

	got, err := s.GetAutomator(ctx, "auto_1")
	if err != nil {
		t.Fatalf("GetAutomator failed: %v", err)
	}
	if got.Name != "Studio A" {
		t.Errorf("unexpected automator: %+v", got)
	}

	got.Name = "Studio B"
	got.Enabled = false
	if err := s.UpdateAutomator(ctx, got); err != nil {
		t.Fatalf("UpdateAutomator failed: %v", err)
	}
	updated, err := s.GetAutomator(ctx, "auto_1")
	if err != nil {
		t.Fatalf("GetAutomator after update failed: %v", err)
	}
	if updated.Name != "Studio B" || updated.Enabled {
		t.Errorf("update not applied: %+v", updated)
	}

	if err := s.UpdateAutomator(ctx, Automator{ID: "missing"}); !IsNotFound(err) {
		t.Errorf("expected NotFoundError for missing automator, got %v", err)
	}

	if _, err := s.GetAutomator(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteAutomatorRemovesMappings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceAutomators(ctx, []Automator{{ID: "auto_1"}, {ID: "auto_2"}}); err != nil {
		t.Fatalf("ReplaceAutomators failed: %v", err)
	}
	mappings := []CommandMapping{
		{TCPCommandID: "c1", AutomatorID: "auto_1", TargetItemID: "m1"},
		{TCPCommandID: "c2", AutomatorID: "auto_2", TargetItemID: "m2"},
		{TCPCommandID: "c3", AutomatorID: "auto_1", TargetItemID: "m3"},
	}
	if err := s.ReplaceMappings(ctx, mappings); err != nil {
		t.Fatalf("ReplaceMappings failed: %v", err)
	}

	removed, err := s.DeleteAutomator(ctx, "auto_1", true)
	if err != nil {
		t.Fatalf("DeleteAutomator failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 mappings removed, got %d", removed)
	}

	remaining, err := s.ListMappings(ctx)
	if err != nil {
		t.Fatalf("ListMappings failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].TCPCommandID != "c2" {
		t.Errorf("unexpected remaining mappings: %+v", remaining)
	}

	if _, err := s.DeleteAutomator(ctx, "auto_1", true); !IsNotFound(err) {
		t.Errorf("expected NotFoundError on second delete, got %v", err)
	}
}

func TestReplaceMappingsDropsDuplicateCommandIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mappings := []CommandMapping{
		{TCPCommandID: "c1", AutomatorID: "auto_1", TargetItemID: "m1"},
		{TCPCommandID: "c1", AutomatorID: "auto_2", TargetItemID: "m9"},
	}
	if err := s.ReplaceMappings(ctx, mappings); err != nil {
		t.Fatalf("ReplaceMappings failed: %v", err)
	}

	got, err := s.ListMappings(ctx)
	if err != nil {
		t.Fatalf("ListMappings failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(got))
	}
	if got[0].TargetItemID != "m1" {
		t.Errorf("expected first mapping to win, got %+v", got[0])
	}
}

func TestDocumentImportExport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := Document{
		TCPListeners:    []TCPListener{{Port: 9001, Name: "Main", Enabled: true}},
		TCPCommands:     []TCPCommand{{ID: "c1", Name: "Light on", Trigger: "LIGHT_ON"}},
		Automators:      []Automator{{ID: "a1", Name: "Rack", URL: "127.0.0.1:7070", Enabled: true}},
		CommandMappings: []CommandMapping{{TCPCommandID: "c1", AutomatorID: "a1", TargetItemID: "m5", ItemType: "macro"}},
		WebPort:         4000,
		Theme:           "dark",
	}
	if err := s.ImportDocument(ctx, doc); err != nil {
		t.Fatalf("ImportDocument failed: %v", err)
	}

	got, err := s.LoadDocument(ctx)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if len(got.TCPListeners) != 1 || got.TCPListeners[0].Port != 9001 {
		t.Errorf("listeners mismatch: %+v", got.TCPListeners)
	}
	if len(got.TCPCommands) != 1 || got.TCPCommands[0].Trigger != "LIGHT_ON" {
		t.Errorf("commands mismatch: %+v", got.TCPCommands)
	}
	if got.WebPort != 4000 || got.Theme != "dark" {
		t.Errorf("settings mismatch: port=%d theme=%s", got.WebPort, got.Theme)
	}

	// Partial import leaves other sections alone.
	if err := s.ImportDocument(ctx, Document{TCPCommands: []TCPCommand{{ID: "c2", Trigger: "X"}}}); err != nil {
		t.Fatalf("partial ImportDocument failed: %v", err)
	}
	got, err = s.LoadDocument(ctx)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if len(got.TCPListeners) != 1 {
		t.Errorf("partial import should not touch listeners: %+v", got.TCPListeners)
	}
	if len(got.TCPCommands) != 1 || got.TCPCommands[0].ID != "c2" {
		t.Errorf("partial import should replace commands: %+v", got.TCPCommands)
	}
}

func TestWebPortDefault(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	port, err := s.WebPort(ctx)
	if err != nil {
		t.Fatalf("WebPort failed: %v", err)
	}
	if port != DefaultWebPort {
		t.Errorf("expected default port %d, got %d", DefaultWebPort, port)
	}

	if err := s.SaveSettings(ctx, map[string]string{SettingWebPort: "4114"}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	port, err = s.WebPort(ctx)
	if err != nil {
		t.Fatalf("WebPort failed: %v", err)
	}
	if port != 4114 {
		t.Errorf("expected port 4114, got %d", port)
	}
}
