package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const maxRequestBytes = 64 << 10

// TurnRunner runs a single conversation turn.
type TurnRunner interface {
	HandleTurn(ctx context.Context, req TurnRequest) TurnResponse
}

// Handler wires HTTP requests to the conversation agent.
type Handler struct {
	agent  TurnRunner
	logger *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(agent TurnRunner, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		agent:  agent,
		logger: logger,
	}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	resp := h.agent.HandleTurn(r.Context(), req)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
