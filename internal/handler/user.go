package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/usersvc/internal/apperror"
	"github.com/sakif/usersvc/internal/model"
	"github.com/sakif/usersvc/internal/service"
	"github.com/sakif/usersvc/internal/validation"
)

// UserService is the business logic the handler calls into.
// *service.UserService satisfies it; tests pass a fake.
type UserService interface {
	Create(ctx context.Context, in service.CreateUserInput) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserHandler serves the /users resource.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// createUserRequest is the body of POST /users/.
//
// Required fields are pointers so "absent" (nil) can be told apart from an
// empty string or 0, which are accepted. Recommendations may be absent but
// not null.
type createUserRequest struct {
	ID              *int64                                `json:"user_id" validate:"required"`
	Name            *string                               `json:"user_name" validate:"required"`
	Email           *string                               `json:"user_email" validate:"required"`
	Age             *int64                                `json:"age"`
	Recommendations model.Optional[model.Recommendations] `json:"recommendations"`
	ZIP             *string                               `json:"ZIP"`
}

// userResponse is the wire shape of a user. Recommendations is never null.
type userResponse struct {
	ID              int64    `json:"user_id"`
	Name            string   `json:"user_name"`
	Email           string   `json:"user_email"`
	Age             *int64   `json:"age"`
	Recommendations []string `json:"recommendations"`
	ZIP             *string  `json:"ZIP"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Age:             u.Age,
		Recommendations: u.GetRecommendations(),
		ZIP:             u.ZIP,
	}
}

// HandleCreate creates a user.
//
// HTTP: POST /api/v1/users/
// REQUEST BODY: {"user_id": 1, "user_name": "Ana", "user_email": "a@x.com", ...}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		WriteError(w, err)
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		WriteError(w, verr.AppError())
		return
	}
	if req.Recommendations.Null {
		WriteError(w, apperror.ValidationFailed("recommendations", "recommendations may not be null"))
		return
	}

	user, err := h.users.Create(r.Context(), service.CreateUserInput{
		ID:              *req.ID,
		Name:            *req.Name,
		Email:           *req.Email,
		Age:             req.Age,
		Recommendations: req.Recommendations.Value,
		ZIP:             req.ZIP,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// HandleGet returns one user.
//
// HTTP: GET /api/v1/users/{user_id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/v1/users/{user_id}
//
// Only keys present in the body are applied. {"age": 0} sets age to 0;
// {} leaves the record unchanged and returns it.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.logger.Warn("invalid user patch JSON", slog.String("error", err.Error()))
		WriteError(w, err)
		return
	}

	user, err := h.users.Update(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// HandleDelete removes a user.
//
// HTTP: DELETE /api/v1/users/{user_id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("User with ID %d deleted successfully.", id),
	})
}

// writeServiceError logs unexpected failures before answering. Client errors
// were already logged by the service.
func (h *UserHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if !apperror.IsClientError(err) {
		h.logger.Error("user request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	WriteError(w, err)
}

// userIDParam parses the {user_id} path segment.
func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("user_id", "user_id must be an integer")
	}
	return id, nil
}
