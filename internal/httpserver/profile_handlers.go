package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wachat/internal/service"
)

// splitIDs parses a comma separated id list, dropping blanks.
func splitIDs(raw string) []string {
	var ids []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			ids = append(ids, s)
		}
	}
	return ids
}

// @Summary      List profiles
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        user_ids query string false "Comma separated user ids; all profiles when empty"
// @Success      200  {array}   domain.Profile
// @Router       /profiles [get]
func handleListProfiles(profiles *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := profiles.List(r.Context(), splitIDs(r.URL.Query().Get("user_ids")))
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// @Summary      Get a profile
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        userID path string true "User ID"
// @Success      200  {object}  domain.Profile
// @Failure      404  {object}  map[string]string
// @Router       /profiles/{userID} [get]
func handleGetProfile(profiles *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := profiles.Get(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// @Summary      Create or update the caller's profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body service.ProfileInput true "Profile fields"
// @Success      200  {object}  domain.Profile
// @Failure      400  {object}  map[string]string
// @Router       /profiles/me [put]
func handleUpsertMyProfile(profiles *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.ProfileInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		p, err := profiles.Upsert(r.Context(), CurrentUserID(r), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
