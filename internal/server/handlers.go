package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/eventlog"
	"github.com/macrolink-io/macrolink/internal/listener"
	"github.com/macrolink-io/macrolink/internal/validate"
	"github.com/macrolink-io/macrolink/internal/version"
)

const maxConfigBody = 4 * 1024 * 1024 // 4 MB

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Version         string            `json:"version"`
	UptimeSeconds   int64             `json:"uptime_seconds"`
	SnapshotVersion uint64            `json:"snapshot_version"`
	Listeners       []listener.Status `json:"listeners"`
	CaptureState    string            `json:"capture_state"`
	Commands        int               `json:"commands"`
	Automators      int               `json:"automators"`
}

func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap := s.backend.Snapshot()
	statuses := s.backend.ListenerStatuses()
	if statuses == nil {
		statuses = []listener.Status{}
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Version:         version.String(),
		UptimeSeconds:   int64(time.Since(s.backend.StartTime()).Seconds()),
		SnapshotVersion: snap.Version,
		Listeners:       statuses,
		CaptureState:    string(s.capture.Status()),
		Commands:        len(snap.Commands),
		Automators:      len(snap.Automators),
	})
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		doc, err := s.backend.ConfigDocument(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPost:
		var doc store.Document
		if err := decodeBody(r, &doc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := validateDocument(&doc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.backend.ApplyConfig(r.Context(), doc); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *APIServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries := s.events.Recent(limit)
	if entries == nil {
		entries = []eventlog.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": entries})
}

func (s *APIServer) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	doc, err := s.backend.ConfigDocument(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="macrolink-config.json"`)
	writeJSON(w, http.StatusOK, doc)
}

func (s *APIServer) handleConfigImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var doc store.Document
	if err := decodeBody(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateDocument(&doc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.backend.ApplyConfig(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func (s *APIServer) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	values, err := s.backend.Settings(r.Context(), store.SettingWebPort, store.SettingTheme)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func (s *APIServer) handleSettingsPost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var values map[string]string
	if err := decodeBody(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if port, ok := values[store.SettingWebPort]; ok {
		if _, err := strconv.Atoi(port); err != nil {
			writeError(w, http.StatusBadRequest, "invalid web port")
			return
		}
	}
	if err := s.backend.SaveSettings(r.Context(), values); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxConfigBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func validateDocument(doc *store.Document) error {
	for _, l := range doc.TCPListeners {
		if err := validate.Port(l.Port); err != nil {
			return fmt.Errorf("listener %q: %w", l.Name, err)
		}
	}
	for _, c := range doc.TCPCommands {
		if !validate.Ident(c.ID) {
			return fmt.Errorf("command %q has an invalid id", c.Name)
		}
		if err := validate.TriggerString(c.Trigger); err != nil {
			return fmt.Errorf("command %q: %w", c.Name, err)
		}
	}
	for _, a := range doc.Automators {
		if a.ID == "" {
			return fmt.Errorf("automator %q has no id", a.Name)
		}
	}
	return nil
}
