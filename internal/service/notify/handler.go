package notify

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/server"
)

// Register mounts the notification routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/notifications", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/notifications/count", s.handleCount).Methods(http.MethodGet)
	r.HandleFunc("/notifications/read", s.handleMarkAllRead).Methods(http.MethodPost)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	profileID := server.ProfileID(r)
	if profileID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := s.List(r.Context(), profileID, limit)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

func (s *Service) handleCount(w http.ResponseWriter, r *http.Request) {
	profileID := server.ProfileID(r)
	if profileID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	count, err := s.CountUnread(r.Context(), profileID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"count": count})
}

func (s *Service) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	profileID := server.ProfileID(r)
	if profileID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	updated, err := s.MarkAllRead(r.Context(), profileID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}
