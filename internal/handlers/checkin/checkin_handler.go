// internal/handlers/checkin/checkin_handler.go
package checkin

import (
	"context"
	"net/http"
	"strconv"

	"rollcall-service/internal/domain/checkin"
	"rollcall-service/internal/middleware"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the check-in use case
type Service interface {
	Create(ctx context.Context, userID int64, username string, req *checkin.CreateRequest) (*checkin.Checkin, error)
	List(ctx context.Context, userID int64, q checkin.ListQuery) ([]*checkin.Checkin, error)
	ListByEvent(ctx context.Context, userID, eventID int64, skip, limit int) ([]*checkin.Checkin, error)
	Get(ctx context.Context, userID, id int64) (*checkin.Checkin, error)
	Latest(ctx context.Context, userID int64) (*checkin.Checkin, error)
	Delete(ctx context.Context, userID int64, isAdmin bool, id int64) error
	StreakSummary(ctx context.Context, userID, eventID int64) (*checkin.StreakSummary, error)
	Summaries(ctx context.Context, userID int64) ([]*checkin.StreakSummary, error)
}

type CheckinHandler struct {
	checkinService Service
	logger         *zap.Logger
}

func NewCheckinHandler(checkinService Service, logger *zap.Logger) *CheckinHandler {
	return &CheckinHandler{
		checkinService: checkinService,
		logger:         logger,
	}
}

// Create handles POST /checkins
func (h *CheckinHandler) Create(c *gin.Context) {
	var req checkin.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	userID := middleware.MustGetUserID(c)
	ci, err := h.checkinService.Create(c.Request.Context(), userID, middleware.GetUsername(c), &req)
	if err != nil {
		h.logger.Info("check-in rejected",
			zap.Int64("user_id", userID),
			zap.Int64("event_id", req.EventID),
			zap.Error(err),
		)
		response.FromError(c, "check-in failed", err)
		return
	}

	response.Success(c, http.StatusCreated, "checked in", ci)
}

// List handles GET /checkins?event_id=&skip=&limit=
func (h *CheckinHandler) List(c *gin.Context) {
	var q checkin.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, "invalid query", err)
		return
	}

	list, err := h.checkinService.List(c.Request.Context(), middleware.MustGetUserID(c), q)
	if err != nil {
		response.FromError(c, "failed to list check-ins", err)
		return
	}

	response.Success(c, http.StatusOK, "check-ins retrieved", list)
}

// ListByEvent handles GET /events/:id/checkins
func (h *CheckinHandler) ListByEvent(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	skip, _ := strconv.Atoi(c.Query("skip"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := h.checkinService.ListByEvent(c.Request.Context(), middleware.MustGetUserID(c), eventID, skip, limit)
	if err != nil {
		response.FromError(c, "failed to list check-ins", err)
		return
	}

	response.Success(c, http.StatusOK, "check-ins retrieved", list)
}

// Get handles GET /checkins/:id
func (h *CheckinHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ci, err := h.checkinService.Get(c.Request.Context(), middleware.MustGetUserID(c), id)
	if err != nil {
		response.FromError(c, "failed to get check-in", err)
		return
	}

	response.Success(c, http.StatusOK, "check-in retrieved", ci)
}

// Latest handles GET /checkins/latest
func (h *CheckinHandler) Latest(c *gin.Context) {
	ci, err := h.checkinService.Latest(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, "no check-ins yet", err)
		return
	}

	response.Success(c, http.StatusOK, "latest check-in", ci)
}

// Delete handles DELETE /checkins/:id
func (h *CheckinHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.checkinService.Delete(c.Request.Context(), middleware.MustGetUserID(c), middleware.IsAdmin(c), id)
	if err != nil {
		response.FromError(c, "failed to delete check-in", err)
		return
	}

	response.NoContent(c)
}

// ========== Streaks ==========

// Streaks handles GET /checkins/streaks
func (h *CheckinHandler) Streaks(c *gin.Context) {
	list, err := h.checkinService.Summaries(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, "failed to load streaks", err)
		return
	}

	response.Success(c, http.StatusOK, "streaks retrieved", list)
}

// EventStreak handles GET /events/:id/streak
func (h *CheckinHandler) EventStreak(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := h.checkinService.StreakSummary(c.Request.Context(), middleware.MustGetUserID(c), eventID)
	if err != nil {
		response.FromError(c, "failed to load streak", err)
		return
	}

	response.Success(c, http.StatusOK, "streak retrieved", summary)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid "+name, err)
		return 0, false
	}
	return id, true
}
