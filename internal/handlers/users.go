package handlers

import (
	"net/http"

	"webchat-backend/internal/service/user"
	"webchat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// UserHandler serves the /users endpoints.
type UserHandler struct {
	users    user.Service
	validate *validator.Validate
	logger   *zap.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(users user.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		validate: validator.New(),
		logger:   logger,
	}
}

// CreateUser handles POST /users.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if err := api.ParseJSON(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.users.Create(r.Context(), req.Username)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.Success(w, http.StatusCreated, created)
}

// ListUsers handles GET /users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, users)
}

// GetUser handles GET /users/{userID}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	found, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if found == nil {
		api.Error(w, http.StatusNotFound, "User not found")
		return
	}
	api.Success(w, http.StatusOK, found)
}

// GetUserByUsername handles GET /users/by-username/{username}.
func (h *UserHandler) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		api.Error(w, http.StatusBadRequest, "Invalid username")
		return
	}

	found, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if found == nil {
		api.Error(w, http.StatusNotFound, "User not found")
		return
	}
	api.Success(w, http.StatusOK, found)
}

// UpdateUser handles PUT /users/{userID}.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req api.UpdateUserRequest
	if err := api.ParseJSON(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.users.Update(r.Context(), userID, req.Username)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if updated == nil {
		api.Error(w, http.StatusNotFound, "User not found")
		return
	}
	api.Success(w, http.StatusOK, updated)
}

// DeleteUser handles DELETE /users/{userID}.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		api.Error(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	deleted, err := h.users.Delete(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if !deleted {
		api.Error(w, http.StatusNotFound, "User not found")
		return
	}
	api.Success(w, http.StatusNoContent, nil)
}
