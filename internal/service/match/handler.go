package match

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/server"
)

// Register mounts the match routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/hellos/{id}/accept", s.handleAccept).Methods(http.MethodPost)
	r.HandleFunc("/matches", s.handleListMatches).Methods(http.MethodGet)
}

func (s *Service) handleAccept(w http.ResponseWriter, r *http.Request) {
	accepterID := server.ProfileID(r)
	if accepterID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	m, err := s.AcceptHello(r.Context(), mux.Vars(r)["id"], accepterID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"match": m})
}

func (s *Service) handleListMatches(w http.ResponseWriter, r *http.Request) {
	profileID := server.ProfileID(r)
	if profileID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	matches, err := s.ListMatches(r.Context(), profileID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}
