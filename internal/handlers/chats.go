package handlers

import (
	"net/http"

	"webchat-backend/internal/service/chat"
	"webchat-backend/internal/service/user"
	"webchat-backend/internal/ws"
	"webchat-backend/pkg/api"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Broadcaster is the slice of the hub the REST handlers need: pushing
// room events for changes made over HTTP.
type Broadcaster interface {
	SendToRoom(roomID int64, event string, data interface{})
}

// ChatHandler serves the /chats endpoints.
type ChatHandler struct {
	chats    chat.Service
	users    user.Service
	hub      Broadcaster
	validate *validator.Validate
	logger   *zap.Logger
}

// NewChatHandler creates a chat handler. hub may be nil in tests.
func NewChatHandler(chats chat.Service, users user.Service, hub Broadcaster, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chats:    chats,
		users:    users,
		hub:      hub,
		validate: validator.New(),
		logger:   logger,
	}
}

// lookupUsername resolves a display name for room-presence broadcasts.
// Resolution failures degrade to an empty name; the membership change
// already succeeded.
func (h *ChatHandler) lookupUsername(r *http.Request, userID int64) string {
	found, err := h.users.GetByID(r.Context(), userID)
	if err != nil || found == nil {
		return ""
	}
	return found.Username
}

// CreateChat handles POST /chats. Creation is idempotent for direct
// chats: posting the same pair again returns the existing chat.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req api.CreateChatRequest
	if err := api.ParseJSON(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.chats.CreateOrGetChat(r.Context(), req.Name, req.ParticipantIDs)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, created)
}

// ListChats handles GET /chats.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.GetAllChats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, chats)
}

// GetChat handles GET /chats/{chatID}.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
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
	api.Success(w, http.StatusOK, found)
}

// ListUserChats handles GET /users/{userID}/chats.
func (h *ChatHandler) ListUserChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	chats, err := h.chats.GetUserChats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, chats)
}

// AddParticipant handles POST /chats/{chatID}/participants.
func (h *ChatHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "chatID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	var req api.MembershipRequest
	if err := api.ParseJSON(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := h.chats.AddUserToChat(r.Context(), chatID, req.UserID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if !added {
		api.Error(w, http.StatusConflict, "User is already a participant")
		return
	}

	if h.hub != nil {
		h.hub.SendToRoom(chatID, ws.EventUserJoinedRoom, ws.RoomPresencePayload{
			UserID:   req.UserID,
			Username: h.lookupUsername(r, req.UserID),
			ChatID:   chatID,
		})
	}
	api.Success(w, http.StatusNoContent, nil)
}

// RemoveParticipant handles DELETE /chats/{chatID}/participants/{userID}.
func (h *ChatHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "chatID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	removed, err := h.chats.RemoveUserFromChat(r.Context(), chatID, userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if !removed {
		api.Error(w, http.StatusNotFound, "User is not a participant")
		return
	}

	if h.hub != nil {
		h.hub.SendToRoom(chatID, ws.EventUserLeftRoom, ws.RoomPresencePayload{
			UserID:   userID,
			Username: h.lookupUsername(r, userID),
			ChatID:   chatID,
		})
	}
	api.Success(w, http.StatusNoContent, nil)
}

// DeleteChat handles DELETE /chats/{chatID}. The requesting user must be
// a participant.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "chatID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid chat id")
		return
	}

	userID := queryInt64(r, "userId", 0)
	if userID <= 0 {
		api.Error(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}

	deleted, err := h.chats.DeleteChat(r.Context(), chatID, userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if !deleted {
		api.Error(w, http.StatusNotFound, "Chat not found")
		return
	}
	api.Success(w, http.StatusNoContent, nil)
}

var _ Broadcaster = (*ws.Hub)(nil)
