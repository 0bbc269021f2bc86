package handlers

import (
	"net/http"

	"webchat-backend/internal/domain"
	"webchat-backend/internal/service/chat"
	"webchat-backend/internal/ws"
	"webchat-backend/pkg/api"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxPageSize caps how many messages one request can fetch.
const maxPageSize = 100

// MessageHandler serves the message endpoints under /chats/{chatID}.
type MessageHandler struct {
	chats    chat.Service
	hub      Broadcaster
	validate *validator.Validate
	logger   *zap.Logger
}

// NewMessageHandler creates a message handler. hub may be nil in tests.
func NewMessageHandler(chats chat.Service, hub Broadcaster, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		chats:    chats,
		hub:      hub,
		validate: validator.New(),
		logger:   logger,
	}
}

// SendMessage handles POST /chats/{chatID}/messages. The message is
// persisted first; live room members only hear about stored messages.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "chatID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	var req api.SendMessageRequest
	if err := api.ParseJSON(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chats.AddMessage(r.Context(), chatID, req.SenderID, req.Content)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if h.hub != nil {
		h.hub.SendToRoom(chatID, ws.EventMessageReceived, ws.NewMessagePayload(msg))
	}
	api.Success(w, http.StatusCreated, msg)
}

// ListMessages handles GET /chats/{chatID}/messages with take, skip and
// before query parameters. Results come back in chronological order.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "chatID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	found, err := h.chats.GetChatByID(r.Context(), chatID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if found == nil {
		api.Error(w, http.StatusNotFound, "Chat not found")
		return
	}

	take := queryInt(r, "take", 50)
	if take <= 0 || take > maxPageSize {
		take = maxPageSize
	}
	skip := queryInt(r, "skip", 0)
	if skip < 0 {
		skip = 0
	}
	before := queryInt64(r, "before", 0)

	messages, err := h.chats.GetChatMessages(r.Context(), chatID, take, skip, before)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, messages)
}

// UpdateMessageStatus handles PUT /messages/{messageID}/status and
// announces the change to the chat's room.
func (h *MessageHandler) UpdateMessageStatus(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(r, "messageID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	var req api.UpdateStatusRequest
	if err := api.ParseJSON(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chats.UpdateMessageStatus(r.Context(), messageID, domain.MessageStatus(req.Status))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if msg == nil {
		api.Error(w, http.StatusNotFound, "Message not found")
		return
	}

	if h.hub != nil {
		h.hub.SendToRoom(msg.ChatID, ws.EventStatusUpdated, ws.StatusPayload{
			MessageID: msg.ID,
			ChatID:    msg.ChatID,
			Status:    msg.Status,
		})
	}
	api.Success(w, http.StatusOK, msg)
}
