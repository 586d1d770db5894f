package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/macrolink-io/macrolink/internal/capture"
)

func (s *APIServer) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// The body is optional; an empty body means capture on any port.
	var req struct {
		Port int `json:"port"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Port < 0 || req.Port > 65535 {
		writeError(w, http.StatusBadRequest, "invalid port")
		return
	}

	if err := s.capture.Start(req.Port); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(capture.StateListening)})
}

func (s *APIServer) handleCaptureStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, state := s.capture.Poll()
	resp := map[string]any{"status": string(state)}
	if state == capture.StateCaptured {
		resp["trigger"] = result.Trigger
		resp["port"] = result.Port
		resp["source"] = result.Source
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleCaptureCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.capture.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": string(capture.StateIdle)})
}
