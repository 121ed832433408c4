package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/server"
)

// Register mounts the conversation routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/matches/{id}/thread", s.handleEnsureThread).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/messages", s.handleListMessages).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/messages", s.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/read", s.handleMarkRead).Methods(http.MethodPost)
}

func (s *Service) handleEnsureThread(w http.ResponseWriter, r *http.Request) {
	if server.ProfileID(r) == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	thread, err := s.EnsureThread(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"thread": thread})
}

func (s *Service) handleListMessages(w http.ResponseWriter, r *http.Request) {
	readerID := server.ProfileID(r)
	if readerID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	q := r.URL.Query()
	var token *string
	if t := q.Get("page_token"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(q.Get("page_size"))

	messages, nextToken, err := s.ListMessages(r.Context(), mux.Vars(r)["id"], readerID, token, limit)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	resp := map[string]interface{}{"messages": messages}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	server.WriteJSON(w, http.StatusOK, resp)
}

func (s *Service) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	senderID := server.ProfileID(r)
	if senderID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		server.WriteError(w, fmt.Errorf("%w: malformed body", apperr.ErrInvalidArgument))
		return
	}

	// Participants send text; the system sentinel is internal only.
	message, err := s.SendMessage(r.Context(), mux.Vars(r)["id"], senderID, body.Content, db.MessageText)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": message})
}

func (s *Service) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	readerID := server.ProfileID(r)
	if readerID == "" {
		server.WriteError(w, fmt.Errorf("%w: missing acting profile", apperr.ErrNotAuthorized))
		return
	}

	updated, err := s.MarkRead(r.Context(), mux.Vars(r)["id"], readerID)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}
