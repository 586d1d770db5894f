package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/macrolink-io/macrolink/internal/automator"
	"github.com/macrolink-io/macrolink/internal/catalog"
	"github.com/macrolink-io/macrolink/internal/config/store"
)

func (s *APIServer) handleAutomators(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := s.backend.Snapshot()
		automators := snap.Automators
		if automators == nil {
			automators = []store.Automator{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"automators": automators})
	case http.MethodPost:
		var inst store.Automator
		if err := decodeBody(r, &inst); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if inst.ID == "" {
			inst.ID = uuid.New().String()
		}
		if strings.TrimSpace(inst.Name) == "" {
			writeError(w, http.StatusBadRequest, "automator name is required")
			return
		}
		created, err := s.backend.AddAutomator(r.Context(), inst)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAutomatorSubroutes covers /api/automators/{id} (PUT/POST update,
// DELETE remove) and /api/automators/{id}/delete.
func (s *APIServer) handleAutomatorSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/automators/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "automator id required")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.deleteAutomator(w, r, id)
	case len(parts) == 1:
		s.updateAutomator(w, r, id)
	case len(parts) == 2 && parts[1] == "delete":
		s.deleteAutomator(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *APIServer) updateAutomator(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var inst store.Automator
	if err := decodeBody(r, &inst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	inst.ID = id
	if err := s.backend.UpdateAutomator(r.Context(), inst); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *APIServer) deleteAutomator(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	deleteMappings := r.URL.Query().Get("delete_mappings") == "true"
	removed, err := s.backend.DeleteAutomator(r.Context(), id, deleteMappings)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "deleted",
		"removed_mappings": removed,
	})
}

func (s *APIServer) handleAutomatorTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("automator_id")
	inst, status, err := s.backend.TestAutomator(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"automator_id": inst.ID,
		"name":         inst.Name,
		"connected":    status.Connected,
		"detail":       status.Detail,
	})
}

func (s *APIServer) handleAutomatorRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("automator_id")
	cat, err := s.backend.RefreshCatalog(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		// A stale catalog still answers the refresh request.
		if cat != nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":       "stale",
				"detail":       err.Error(),
				"last_updated": cat.LastUpdated,
				"items":        len(cat.Items()),
			})
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "refreshed",
		"last_updated": cat.LastUpdated,
		"items":        len(cat.Items()),
	})
}

func (s *APIServer) handleAutomatorItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("automator_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "automator_id is required")
		return
	}
	items := s.backend.CatalogItems(r.Context(), id)
	if items == nil {
		items = []catalog.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *APIServer) handleManualTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	itemID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/automator/trigger/"), "/")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item id required")
		return
	}
	itemType := catalog.ParseItemType(r.URL.Query().Get("item_type"))
	if itemType == catalog.TypeUnknown {
		itemType = catalog.TypeMacro
	}
	automatorID := r.URL.Query().Get("automator_id")

	out := s.backend.ManualTrigger(r.Context(), automatorID, itemType, itemID)
	switch out.Kind {
	case automator.OutcomeDispatched:
		writeJSON(w, http.StatusOK, map[string]any{"status": "dispatched", "detail": out.Detail})
	case automator.OutcomeConfigError:
		writeError(w, http.StatusBadRequest, out.Detail)
	default:
		writeError(w, http.StatusBadGateway, out.Detail)
	}
}
