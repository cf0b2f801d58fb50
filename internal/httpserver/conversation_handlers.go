package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wachat/internal/domain"
	"wachat/internal/service"
)

type directConversationRequest struct {
	OtherUserID string `json:"other_user_id"`
}

// @Summary      List conversations
// @Description  Conversations of the caller, most recently updated first, with participant profiles
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.ConversationRow
// @Failure      401  {object}  map[string]string
// @Router       /conversations [get]
func handleListConversations(convs *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := convs.ListForUser(r.Context(), CurrentUserID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		if rows == nil {
			rows = []*domain.ConversationRow{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// @Summary      List conversation ids
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   string
// @Router       /conversations/ids [get]
func handleListConversationIDs(convs *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := convs.ListIDs(r.Context(), CurrentUserID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, ids)
	}
}

// @Summary      Open a direct conversation
// @Description  Returns the existing direct conversation with the other user, or creates it
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body directConversationRequest true "Other participant"
// @Success      200  {object}  domain.Conversation
// @Success      201  {object}  domain.Conversation
// @Failure      400  {object}  map[string]string
// @Router       /conversations/direct [post]
func handleCreateDirectConversation(convs *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req directConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		conv, created, err := convs.CreateDirect(r.Context(), CurrentUserID(r), req.OtherUserID)
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, conv)
	}
}

// handleCheckParticipant answers 204 when userID is in the conversation and
// 404 otherwise. The caller must be a participant to ask.
//
// @Summary      Check membership
// @Tags         conversations
// @Security     BearerAuth
// @Param        conversationID path string true "Conversation ID"
// @Param        userID path string true "User ID"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID}/participants/{userID} [get]
func handleCheckParticipant(convs *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convID := chi.URLParam(r, "conversationID")
		ctx := r.Context()

		member, err := convs.IsParticipant(ctx, convID, CurrentUserID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		if !member {
			writeError(w, domain.ErrForbidden)
			return
		}

		ok, err := convs.IsParticipant(ctx, convID, chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody("not a participant"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
