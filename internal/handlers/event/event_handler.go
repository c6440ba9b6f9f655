// internal/handlers/event/event_handler.go
package event

import (
	"context"
	"net/http"
	"strconv"

	"rollcall-service/internal/domain/event"
	"rollcall-service/internal/domain/leaderboard"
	"rollcall-service/internal/middleware"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the event use case
type Service interface {
	Create(ctx context.Context, userID int64, req *event.CreateRequest) (*event.Event, error)
	ListPublic(ctx context.Context, q event.ListQuery) ([]*event.Event, error)
	Mine(ctx context.Context, userID int64) ([]*event.Event, error)
	Participating(ctx context.Context, userID int64) ([]*event.Event, error)
	Popular(ctx context.Context, limit int) ([]*event.Event, error)
	Get(ctx context.Context, userID, id int64) (*event.Event, error)
	Update(ctx context.Context, userID, id int64, req *event.UpdateRequest) (*event.Event, error)
	Delete(ctx context.Context, userID, id int64) error
	Join(ctx context.Context, userID, id int64) (*event.Event, error)
	Leave(ctx context.Context, userID, id int64) error
	Invite(ctx context.Context, userID, id int64, req *event.InviteRequest) (int64, error)
	Leaderboard(ctx context.Context, userID, id int64, limit int) ([]leaderboard.Entry, error)
	Stats(ctx context.Context, userID, id int64) (*event.Stats, error)
}

type EventHandler struct {
	eventService Service
	logger       *zap.Logger
}

func NewEventHandler(eventService Service, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// ========== CRUD ==========

// Create handles POST /events
func (h *EventHandler) Create(c *gin.Context) {
	var req event.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	e, err := h.eventService.Create(c.Request.Context(), middleware.MustGetUserID(c), &req)
	if err != nil {
		response.FromError(c, "failed to create event", err)
		return
	}

	response.Success(c, http.StatusCreated, "event created", e)
}

// List handles GET /events
func (h *EventHandler) List(c *gin.Context) {
	var q event.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, "invalid query", err)
		return
	}

	events, err := h.eventService.ListPublic(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, "failed to list events", err)
		return
	}

	response.Success(c, http.StatusOK, "events retrieved", events)
}

// Mine handles GET /events/my
func (h *EventHandler) Mine(c *gin.Context) {
	events, err := h.eventService.Mine(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, "failed to list events", err)
		return
	}

	response.Success(c, http.StatusOK, "events retrieved", events)
}

// Participating handles GET /events/participating
func (h *EventHandler) Participating(c *gin.Context) {
	events, err := h.eventService.Participating(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, "failed to list events", err)
		return
	}

	response.Success(c, http.StatusOK, "events retrieved", events)
}

// Popular handles GET /events/popular
func (h *EventHandler) Popular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.eventService.Popular(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, "failed to list events", err)
		return
	}

	response.Success(c, http.StatusOK, "events retrieved", events)
}

// Get handles GET /events/:id
func (h *EventHandler) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	e, err := h.eventService.Get(c.Request.Context(), middleware.MustGetUserID(c), id)
	if err != nil {
		response.FromError(c, "failed to get event", err)
		return
	}

	response.Success(c, http.StatusOK, "event retrieved", e)
}

// Update handles PUT /events/:id
func (h *EventHandler) Update(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req event.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	e, err := h.eventService.Update(c.Request.Context(), middleware.MustGetUserID(c), id, &req)
	if err != nil {
		response.FromError(c, "failed to update event", err)
		return
	}

	response.Success(c, http.StatusOK, "event updated", e)
}

// Delete handles DELETE /events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	if err := h.eventService.Delete(c.Request.Context(), middleware.MustGetUserID(c), id); err != nil {
		response.FromError(c, "failed to delete event", err)
		return
	}

	response.NoContent(c)
}

// ========== Membership ==========

// Join handles POST /events/:id/join
func (h *EventHandler) Join(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	e, err := h.eventService.Join(c.Request.Context(), middleware.MustGetUserID(c), id)
	if err != nil {
		response.FromError(c, "failed to join event", err)
		return
	}

	response.Success(c, http.StatusOK, "joined event", e)
}

// Leave handles POST /events/:id/leave
func (h *EventHandler) Leave(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	if err := h.eventService.Leave(c.Request.Context(), middleware.MustGetUserID(c), id); err != nil {
		response.FromError(c, "failed to leave event", err)
		return
	}

	response.Success(c, http.StatusOK, "left event", nil)
}

// Invite handles POST /events/:id/invite
func (h *EventHandler) Invite(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req event.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	n, err := h.eventService.Invite(c.Request.Context(), middleware.MustGetUserID(c), id, &req)
	if err != nil {
		response.FromError(c, "failed to invite users", err)
		return
	}

	response.Success(c, http.StatusOK, "users invited", gin.H{"invited": n})
}

// ========== Aggregates ==========

// Leaderboard handles GET /events/:id/leaderboard
func (h *EventHandler) Leaderboard(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.eventService.Leaderboard(c.Request.Context(), middleware.MustGetUserID(c), id, limit)
	if err != nil {
		response.FromError(c, "failed to load leaderboard", err)
		return
	}

	response.Success(c, http.StatusOK, "leaderboard retrieved", entries)
}

// Stats handles GET /events/:id/stats
func (h *EventHandler) Stats(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	stats, err := h.eventService.Stats(c.Request.Context(), middleware.MustGetUserID(c), id)
	if err != nil {
		response.FromError(c, "failed to load stats", err)
		return
	}

	response.Success(c, http.StatusOK, "stats retrieved", stats)
}

func eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid event id", err)
		return 0, false
	}
	return id, true
}
