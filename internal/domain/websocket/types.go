// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Session events
	EventTypeSessionRevoked EventType = "session:revoked"
	EventTypeForceLogout    EventType = "session:force_logout"

	// Attendance events (server -> client)
	EventTypeCheckinCreated     EventType = "checkin:created"
	EventTypeEventUpdated       EventType = "event:updated"
	EventTypeParticipantJoined  EventType = "event:participant_joined"
	EventTypeParticipantLeft    EventType = "event:participant_left"
	EventTypeLeaderboardChanged EventType = "leaderboard:changed"

	// Streak queries (client -> server and the reply)
	EventTypeStreakGet     EventType = "streak:get"
	EventTypeStreakSummary EventType = "streak:summary"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelSystem   ChannelType = "system"
	ChannelEvents   ChannelType = "events"
	ChannelCheckins ChannelType = "checkins"
)

// DefaultChannels are subscribed on connect
var DefaultChannels = []ChannelType{ChannelSystem, ChannelEvents, ChannelCheckins}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// StreakQuery asks for one event's streak, or every event when EventID is 0
type StreakQuery struct {
	EventID int64 `json:"event_id"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SessionEventData for session events
type SessionEventData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

// CheckinEventData is pushed to event participants after a check-in
type CheckinEventData struct {
	CheckinID   int64     `json:"checkin_id"`
	EventID     int64     `json:"event_id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	StreakCount int       `json:"streak_count"`
	CheckDate   time.Time `json:"check_date"`
}

// ParticipantEventData is pushed when membership changes
type ParticipantEventData struct {
	EventID int64 `json:"event_id"`
	UserID  int64 `json:"user_id"`
}

// NewMessage builds a message with a fresh id and timestamp
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		ID:        uuid.NewString(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
