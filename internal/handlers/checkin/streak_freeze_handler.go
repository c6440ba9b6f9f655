// internal/handlers/checkin/streak_freeze_handler.go
package checkin

import (
	"context"
	"net/http"

	"rollcall-service/internal/domain/streakfreeze"
	"rollcall-service/internal/middleware"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// FreezeService manages streak freezes
type FreezeService interface {
	Available(ctx context.Context, userID, eventID int64) ([]*streakfreeze.StreakFreeze, error)
	Grant(ctx context.Context, isAdmin bool, eventID int64, req *streakfreeze.GrantRequest) (*streakfreeze.StreakFreeze, error)
}

type FreezeHandler struct {
	freezeService FreezeService
}

func NewFreezeHandler(freezeService FreezeService) *FreezeHandler {
	return &FreezeHandler{freezeService: freezeService}
}

// Available handles GET /events/:id/freezes
func (h *FreezeHandler) Available(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	list, err := h.freezeService.Available(c.Request.Context(), middleware.MustGetUserID(c), eventID)
	if err != nil {
		response.FromError(c, "failed to list streak freezes", err)
		return
	}

	response.Success(c, http.StatusOK, "streak freezes retrieved", list)
}

// Grant handles POST /events/:id/freezes (admin)
func (h *FreezeHandler) Grant(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req streakfreeze.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	f, err := h.freezeService.Grant(c.Request.Context(), middleware.IsAdmin(c), eventID, &req)
	if err != nil {
		response.FromError(c, "failed to grant streak freeze", err)
		return
	}

	response.Success(c, http.StatusCreated, "streak freeze granted", f)
}
