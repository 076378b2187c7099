package domain

import "time"

// NotificationTypeIssueAssigned tags notifications produced by the
// assignment fan-out.
const NotificationTypeIssueAssigned = "issue_assigned"

// Notification is an in-app message for a single recipient. The persisted
// shape (recipient, message, type, entity reference, read flag, creation
// time) is relied on by external consumers and must stay stable. The message
// is immutable after creation; only IsRead ever changes.
type Notification struct {
	ID         int64
	UserID     int64
	Message    string
	Type       string
	EntityID   *int64
	EntityType *string
	IsRead     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
