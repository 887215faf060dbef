package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/api/middleware"
	"github.com/hugh/lexvault/internal/chat"
)

type ChatHandler struct {
	chat   *chat.Service
	logger *slog.Logger
}

func NewChatHandler(chatService *chat.Service, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chatService, logger: logger}
}

// Send handles POST /api/v1/cases/{id}/messages and returns the reply.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	caseID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if validationFailed(w, req.Validate(chat.MaxMessageChars)) {
		return
	}

	reply, err := h.chat.Send(r.Context(), middleware.GetActor(r.Context()), caseID, req.Content)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MessageFromModel(reply))
}

// History handles GET /api/v1/cases/{id}/messages
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	caseID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	messages, err := h.chat.History(r.Context(), middleware.GetActor(r.Context()), caseID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]dto.MessageDTO, len(messages))
	for i := range messages {
		response[i] = dto.MessageFromModel(&messages[i])
	}
	writeJSON(w, http.StatusOK, response)
}
