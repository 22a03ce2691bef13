package session

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/hospi-scanner/internal/scanning"
)

// maxScanSize bounds a submitted payload
const maxScanSize = 1 << 20

// sessionView is the JSON form of a Snapshot. A pending result is never
// included; only a shown result is.
type sessionView struct {
	State          string           `json:"state"`
	Event          EventKind        `json:"event"`
	Seq            uint64           `json:"seq"`
	SessionID      string           `json:"session_id"`
	Scanning       bool             `json:"scanning"`
	Pending        bool             `json:"pending"`
	FailedAttempts int              `json:"failed_attempts"`
	LastError      string           `json:"last_error,omitempty"`
	Result         *scanning.Result `json:"result,omitempty"`
}

func newSessionView(s Snapshot) sessionView {
	view := sessionView{
		State:          s.State.Name(),
		Event:          s.Event,
		Seq:            s.Seq,
		SessionID:      s.SessionID,
		Scanning:       s.Scanning(),
		FailedAttempts: s.FailedAttempts,
		LastError:      s.LastError,
	}
	switch state := s.State.(type) {
	case PendingVerification:
		view.Pending = true
	case ShowingResult:
		result := state.Result
		view.Result = &result
	}
	return view
}

type verifyRequest struct {
	PIN string `json:"pin"`
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{
		"error": message,
	})
}

// handleGetSession returns the current session state
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(s.controller.Snapshot()))
}

// handleSubmitScan submits the request body as a scanned payload
func (s *Server) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScanSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Payload is too large")
			return
		}
		slog.Error("Error reading scan body", "error", err)
		writeError(w, http.StatusBadRequest, "Error reading payload")
		return
	}

	if !s.controller.IsScanning() {
		writeError(w, http.StatusConflict, "Scanner is not active")
		return
	}

	s.controller.SubmitScannedText(string(body))
	writeJSON(w, http.StatusOK, newSessionView(s.controller.Snapshot()))
}

// handleVerifyPin checks a PIN against the pending result
func (s *Server) handleVerifyPin(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, ok := s.controller.State().(PendingVerification); !ok {
		writeError(w, http.StatusConflict, "No result is waiting for verification")
		return
	}

	if !s.controller.VerifyPin(req.PIN) {
		writeError(w, http.StatusUnprocessableEntity, "Incorrect PIN")
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(s.controller.Snapshot()))
}

// handleCancel cancels a pending verification
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.controller.CancelVerification()
	writeJSON(w, http.StatusOK, newSessionView(s.controller.Snapshot()))
}

// handleReset resets the scanner to scan again
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.controller.Reset()
	writeJSON(w, http.StatusOK, newSessionView(s.controller.Snapshot()))
}

// handleClearError clears the last error
func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	s.controller.ClearError()
	writeJSON(w, http.StatusOK, newSessionView(s.controller.Snapshot()))
}

// handleResultText returns the shown result as plain text for copying
func (s *Server) handleResultText(w http.ResponseWriter, r *http.Request) {
	shown, ok := s.controller.State().(ShowingResult)
	if !ok {
		writeError(w, http.StatusNotFound, "No result is shown")
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(shown.Result.ClipboardText()))
}

// handleListEvents returns the audit log, optionally for one session
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusNotFound, "Audit log is disabled")
		return
	}

	var (
		events []*Event
		err    error
	)
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		events, err = s.db.ListSessionEvents(sessionID)
	} else {
		events, err = s.db.ListEvents()
	}
	if err != nil {
		slog.Error("Error listing events", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
