package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wachat/internal/domain"
	"wachat/internal/service"
)

type messageCreateRequest struct {
	Content string             `json:"content"`
	Kind    domain.MessageKind `json:"message_type"`
	FileURL *string            `json:"file_url"`
	ReplyTo *string            `json:"reply_to"`
}

// @Summary      Send a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        conversationID path string true "Conversation ID"
// @Param        input body messageCreateRequest true "Message"
// @Success      201  {object}  domain.Message
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Router       /conversations/{conversationID}/messages [post]
func handleCreateMessage(msgs *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}

		msg, err := msgs.Send(r.Context(), CurrentUserID(r), service.MessageCreateInput{
			ConversationID: chi.URLParam(r, "conversationID"),
			Content:        req.Content,
			Kind:           req.Kind,
			FileURL:        req.FileURL,
			ReplyTo:        req.ReplyTo,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// @Summary      List messages of a conversation
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        conversationID path string true "Conversation ID"
// @Success      200  {array}   domain.Message
// @Failure      403  {object}  map[string]string
// @Router       /conversations/{conversationID}/messages [get]
func handleListMessages(msgs *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := msgs.ListForConversation(r.Context(), CurrentUserID(r), chi.URLParam(r, "conversationID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeMessages(w, list)
	}
}

// @Summary      List messages of several conversations
// @Description  Newest first, restricted to conversations the caller belongs to
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        conversation_ids query string false "Comma separated conversation ids"
// @Success      200  {array}   domain.Message
// @Router       /messages [get]
func handleListRecentMessages(msgs *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := msgs.ListForConversations(r.Context(), CurrentUserID(r), splitIDs(r.URL.Query().Get("conversation_ids")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeMessages(w, list)
	}
}

// @Summary      Get a message
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        messageID path string true "Message ID"
// @Success      200  {object}  domain.Message
// @Failure      404  {object}  map[string]string
// @Router       /messages/{messageID} [get]
func handleGetMessage(msgs *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := msgs.Get(r.Context(), CurrentUserID(r), chi.URLParam(r, "messageID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func writeMessages(w http.ResponseWriter, list []*domain.Message) {
	if list == nil {
		list = []*domain.Message{}
	}
	writeJSON(w, http.StatusOK, list)
}
