// internal/websocket/handler/streak.go
package handler

import (
	"context"
	"fmt"
	"time"

	"rollcall-service/internal/domain/checkin"
	wstypes "rollcall-service/internal/domain/websocket"
	ws "rollcall-service/internal/websocket"
)

// StreakReader loads streak summaries
type StreakReader interface {
	StreakSummary(ctx context.Context, userID, eventID int64, today time.Time) (*checkin.StreakSummary, error)
	Summaries(ctx context.Context, userID int64, today time.Time) ([]*checkin.StreakSummary, error)
}

// StreakHandler answers streak:get over the socket
type StreakHandler struct {
	streaks StreakReader
	now     func() time.Time
}

func NewStreakHandler(streaks StreakReader) *StreakHandler {
	return &StreakHandler{streaks: streaks, now: time.Now}
}

// SupportedEvents returns events this handler supports
func (h *StreakHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeStreakGet}
}

// HandleMessage replies with one summary or the full list
func (h *StreakHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	if msg.Type != wstypes.EventTypeStreakGet {
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}

	var req wstypes.StreakQuery
	if msg.Data != nil {
		if err := ws.DecodeData(msg, &req); err != nil {
			return fmt.Errorf("invalid streak query: %w", err)
		}
	}

	today := checkin.Day(h.now())

	var data interface{}
	if req.EventID > 0 {
		summary, err := h.streaks.StreakSummary(ctx, client.UserID(), req.EventID, today)
		if err != nil {
			return err
		}
		data = summary
	} else {
		list, err := h.streaks.Summaries(ctx, client.UserID(), today)
		if err != nil {
			return err
		}
		data = list
	}

	reply := wstypes.NewMessage(wstypes.EventTypeStreakSummary, data)
	if msg.ID != "" {
		reply.Metadata = map[string]interface{}{"reply_to": msg.ID}
	}
	client.SendMessage(reply)
	return nil
}
