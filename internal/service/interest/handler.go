package interest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/server"
)

// MutualMatcher lets the swipe endpoint check for mutuality right after a
// hello lands, without the ledger depending on the engine package.
type MutualMatcher interface {
	TryFormMutualMatch(ctx context.Context, profileA, profileB string) (*db.Match, error)
}

// Handler binds the ledger to HTTP.
type Handler struct {
	svc     *Service
	matcher MutualMatcher
}

// NewHandler creates the ledger's HTTP binding.
func NewHandler(svc *Service, matcher MutualMatcher) *Handler {
	return &Handler{svc: svc, matcher: matcher}
}

// Register mounts the hello routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/hellos", h.handleRecordAction).Methods(http.MethodPost)
	r.HandleFunc("/hellos/pending", h.handleListPending).Methods(http.MethodGet)
	r.HandleFunc("/hellos/{id}/dismiss", h.handleDismiss).Methods(http.MethodPost)
}

func (h *Handler) handleRecordAction(w http.ResponseWriter, r *http.Request) {
	senderID := server.ProfileID(r)
	if senderID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	var body struct {
		ReceiverID string `json:"receiver_id"`
		Kind       string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.WriteError(w, fmt.Errorf("%w: malformed body", apperr.ErrInvalidArgument))
		return
	}

	result, err := h.svc.RecordAction(r.Context(), senderID, body.ReceiverID, body.Kind)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	resp := map[string]interface{}{
		"action":  result.Action,
		"created": result.Created,
	}

	// A freshly landed hello may complete a mutual pair.
	if result.Created && body.Kind == db.KindHello {
		match, err := h.matcher.TryFormMutualMatch(r.Context(), senderID, body.ReceiverID)
		if err != nil {
			server.WriteError(w, err)
			return
		}
		if match != nil {
			resp["match"] = match
		}
	}

	server.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	receiverID := server.ProfileID(r)
	if receiverID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	pending, err := h.svc.ListPending(r.Context(), receiverID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"hellos": pending})
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	dismisserID := server.ProfileID(r)
	if dismisserID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	action, err := h.svc.DismissHello(r.Context(), mux.Vars(r)["id"], dismisserID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"action": action})
}
