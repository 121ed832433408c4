package discovery

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/heelo-app/heelo-server/internal/server"
)

// Register mounts the discovery routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/discovery", s.handleNextCandidates).Methods(http.MethodGet)
}

func (s *Service) handleNextCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := Filters{
		ClanFamilyID:     q.Get("clan_family_id"),
		SubclanID:        q.Get("subclan_id"),
		LocationCategory: q.Get("location_category"),
		LocationValue:    q.Get("location_value"),
	}
	filters.AgeMin, _ = strconv.Atoi(q.Get("age_min"))
	filters.AgeMax, _ = strconv.Atoi(q.Get("age_max"))

	var viewerID *string
	if id := server.ProfileID(r); id != "" {
		viewerID = &id
	}

	var token *string
	if t := q.Get("page_token"); t != "" {
		token = &t
	}
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	profiles, nextToken, err := s.NextCandidates(r.Context(), viewerID, filters, token, pageSize)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	resp := map[string]interface{}{"profiles": profiles}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	server.WriteJSON(w, http.StatusOK, resp)
}
