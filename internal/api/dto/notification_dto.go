package dto

import "time"

// NotificationResponse is the inbox wire representation.
type NotificationResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	EntityID   *int64    `json:"entityId,omitempty"`
	EntityType *string   `json:"entityType,omitempty"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UnreadCountResponse wraps the unread badge counter.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
