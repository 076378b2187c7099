package events

import (
	"time"

	"github.com/broadcast-ops/fault-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueAssigned      EventType = "issue_assigned"
	EventIssueDeleted       EventType = "issue_deleted"
)

// Event represents a domain event emitted by services. ActorID is the user
// who caused the mutation, nil when the mutation was anonymous.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Domain    domain.DomainCode `json:"domain"`
	IssueID   int64             `json:"issue_id"`
	ActorID   *int64            `json:"actor_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   interface{}       `json:"payload"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	Key       string             `json:"key,omitempty"`
	IssueType string             `json:"issue_type"`
	Severity  domain.Severity    `json:"severity"`
	Status    domain.IssueStatus `json:"status"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
}

// IssueAssignedPayload carries the newly assigned recipients together with a
// snapshot of the issue so listeners can compose messages without a re-read.
type IssueAssignedPayload struct {
	Issue         *domain.Issue `json:"issue"`
	NewlyAssigned []int64       `json:"newly_assigned"`
}

// IssueDeletedPayload payload.
type IssueDeletedPayload struct {
	Key       string `json:"key,omitempty"`
	IssueType string `json:"issue_type"`
}
