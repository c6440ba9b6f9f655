// internal/handlers/user/user_handler.go
package user

import (
	"context"
	"net/http"
	"strconv"

	"rollcall-service/internal/domain/leaderboard"
	"rollcall-service/internal/domain/user"
	"rollcall-service/internal/middleware"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the user use case
type Service interface {
	List(ctx context.Context, q user.ListQuery) ([]user.Profile, error)
	Get(ctx context.Context, id int64) (*user.Profile, error)
	Update(ctx context.Context, actorID int64, isAdmin bool, id int64, req *user.UpdateRequest) (*user.Profile, error)
	Delete(ctx context.Context, actorID int64, isAdmin bool, id int64) error
	Leaderboard(ctx context.Context, metric string, limit int) ([]leaderboard.Entry, error)
}

type UserHandler struct {
	userService Service
	logger      *zap.Logger
}

func NewUserHandler(userService Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// List handles GET /users
func (h *UserHandler) List(c *gin.Context) {
	var q user.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, "invalid query", err)
		return
	}

	users, err := h.userService.List(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, "failed to list users", err)
		return
	}

	response.Success(c, http.StatusOK, "users retrieved", users)
}

// Get handles GET /users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	profile, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to get user", err)
		return
	}

	response.Success(c, http.StatusOK, "user retrieved", profile)
}

// Update handles PUT /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req user.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	actorID := middleware.MustGetUserID(c)
	profile, err := h.userService.Update(c.Request.Context(), actorID, middleware.IsAdmin(c), id, &req)
	if err != nil {
		response.FromError(c, "failed to update user", err)
		return
	}

	response.Success(c, http.StatusOK, "user updated", profile)
}

// Delete handles DELETE /users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	actorID := middleware.MustGetUserID(c)
	if err := h.userService.Delete(c.Request.Context(), actorID, middleware.IsAdmin(c), id); err != nil {
		h.logger.Warn("user deletion failed", zap.Int64("user_id", id), zap.Error(err))
		response.FromError(c, "failed to delete user", err)
		return
	}

	response.NoContent(c)
}

// Leaderboard handles GET /leaderboard?metric=&limit=
func (h *UserHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.userService.Leaderboard(c.Request.Context(), c.Query("metric"), limit)
	if err != nil {
		response.FromError(c, "failed to load leaderboard", err)
		return
	}

	response.Success(c, http.StatusOK, "leaderboard retrieved", entries)
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid user id", err)
		return 0, false
	}
	return id, true
}
