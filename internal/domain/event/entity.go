// internal/domain/event/entity.go
package event

import "time"

// Event is something users check in to every day
type Event struct {
	ID               int64     `json:"id" db:"id"`
	Title            string    `json:"title" db:"title"`
	Description      string    `json:"description" db:"description"`
	Category         string    `json:"category" db:"category"`
	Icon             string    `json:"icon" db:"icon"`
	IsPublic         bool      `json:"is_public" db:"is_public"`
	CreatorID        int64     `json:"creator_id" db:"creator_id"`
	TotalCheckins    int       `json:"total_checkins" db:"total_checkins"`
	ParticipantCount int       `json:"participant_count" db:"participant_count"`
	Participants     []int64   `json:"participants,omitempty"`
	InvitedUsers     []int64   `json:"invited_users,omitempty"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// IsParticipant reports whether userID is in the loaded participant list
func (e *Event) IsParticipant(userID int64) bool {
	for _, id := range e.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// IsInvited reports whether userID is in the loaded invite list
func (e *Event) IsInvited(userID int64) bool {
	for _, id := range e.InvitedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// VisibleTo reports whether userID may see the event
func (e *Event) VisibleTo(userID int64) bool {
	return e.IsPublic || e.CreatorID == userID || e.IsParticipant(userID) || e.IsInvited(userID)
}

// Stats aggregates streak figures over an event's participants
type Stats struct {
	EventID          int64   `json:"event_id"`
	ParticipantCount int     `json:"participant_count"`
	TotalCheckins    int     `json:"total_checkins"`
	AvgStreak        float64 `json:"avg_streak"`
	HighestStreak    int     `json:"highest_streak"`
}
