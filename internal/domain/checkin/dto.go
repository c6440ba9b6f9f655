// internal/domain/checkin/dto.go
package checkin

// CreateRequest for checking in to an event
type CreateRequest struct {
	EventID int64  `json:"event_id" binding:"required,gt=0"`
	Note    string `json:"note" binding:"max=500"`
	Mood    string `json:"mood" binding:"max=50"`
}

// ListQuery filters the caller's check-ins
type ListQuery struct {
	EventID int64 `form:"event_id" binding:"min=0"`
	Skip    int   `form:"skip" binding:"min=0"`
	Limit   int   `form:"limit" binding:"min=0,max=100"`
}
