// internal/domain/event/dto.go
package event

// CreateRequest for creating an event
type CreateRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=100"`
	Description string `json:"description" binding:"max=500"`
	Category    string `json:"category" binding:"max=50"`
	Icon        string `json:"icon" binding:"max=50"`
	IsPublic    *bool  `json:"is_public"`
}

// UpdateRequest for updating an event; nil means unchanged
type UpdateRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=3,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Category    *string `json:"category" binding:"omitempty,max=50"`
	Icon        *string `json:"icon" binding:"omitempty,max=50"`
	IsPublic    *bool   `json:"is_public"`
}

// InviteRequest lists users to invite to an event
type InviteRequest struct {
	UserIDs []int64 `json:"user_ids" binding:"required,min=1,max=50,dive,gt=0"`
}

// ListQuery paginates event listings
type ListQuery struct {
	Skip     int    `form:"skip" binding:"min=0"`
	Limit    int    `form:"limit" binding:"min=0,max=100"`
	Category string `form:"category"`
}
