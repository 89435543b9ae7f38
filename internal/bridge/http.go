package bridge

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/eiscpctl/internal/logging"
	"github.com/muurk/eiscpctl/internal/receiver"
	"github.com/muurk/eiscpctl/internal/version"
)

// maxRequestBody bounds POST /command bodies
const maxRequestBody = 4096

var errBadRequest = errors.New(`expected {"command":"...","value":"..."}`)

// Health is the body of GET /healthz
type Health struct {
	Status   string `json:"status"`
	Receiver string `json:"receiver"`
	Clients  int    `json:"clients"`
	Server   string `json:"server"`
}

// handleCommand sends one command and answers with the reply event
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil || req.Command == "" {
		writeJSON(w, http.StatusBadRequest, NewErrorMessage(errBadRequest))
		return
	}

	ev, err := s.receiver.SendCommand(r.Context(), req.Command, req.Value)
	if err != nil {
		logging.Warn("Command failed",
			zap.String("command", req.Command),
			zap.String("value", req.Value),
			zap.Error(err),
		)
		writeJSON(w, StatusFor(err), NewErrorMessage(err))
		return
	}

	msg := NewEventMessage(ev)
	msg.Reply = true
	writeJSON(w, http.StatusOK, msg)
}

// handleHealth reports 200 while the receiver connection is up, 503 otherwise
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.receiver.State()
	h := Health{
		Status:   "ok",
		Receiver: state.String(),
		Clients:  s.ClientCount(),
		Server:   version.Get().UserAgent("eiscp-bridge"),
	}
	code := http.StatusOK
	if state != receiver.StateConnected {
		h.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, h)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}
