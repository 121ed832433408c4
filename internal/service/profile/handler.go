package profile

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/server"
)

// Register mounts the profile and clan lookup routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/profiles", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/profiles/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{id}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/clan-families", s.handleListClanFamilies).Methods(http.MethodGet)
	r.HandleFunc("/clan-families/{id}/subclans", s.handleListSubclans).Methods(http.MethodGet)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		server.WriteError(w, fmt.Errorf("%w: malformed body", apperr.ErrInvalidArgument))
		return
	}

	p, err := s.Create(r.Context(), in)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, map[string]interface{}{"profile": p})
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"profile": p})
}

func (s *Service) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if server.ProfileID(r) != id {
		server.WriteError(w, fmt.Errorf("%w: profiles are mutated by their owner only", apperr.ErrNotAuthorized))
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		server.WriteError(w, fmt.Errorf("%w: malformed body", apperr.ErrInvalidArgument))
		return
	}

	p, err := s.Update(r.Context(), id, in)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"profile": p})
}

func (s *Service) handleListClanFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := s.ListClanFamilies(r.Context())
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"clan_families": families})
}

func (s *Service) handleListSubclans(w http.ResponseWriter, r *http.Request) {
	subclans, err := s.ListSubclans(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"subclans": subclans})
}
