package dto

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// AssigneeList accepts both wire shapes for assignment: a JSON array of user
// IDs, a single scalar ID, or either of those wrapped in a string as sent by
// form-data clients.
type AssigneeList []int64

// UnmarshalJSON implements the lenient decoding described above.
func (a *AssigneeList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*a = nil
		return nil
	}
	switch trimmed[0] {
	case '[':
		var ids []int64
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return err
		}
		*a = ids
		return nil
	case '"':
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*a = nil
			return nil
		}
		return a.UnmarshalJSON([]byte(raw))
	default:
		var id int64
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*a = AssigneeList{id}
		return nil
	}
}

// CreateIssueRequest payload. Channel and Frequency are the domain key
// fields; at most one applies for any given route.
type CreateIssueRequest struct {
	Channel     string       `json:"channel"`
	Frequency   string       `json:"frequency"`
	IssueType   string       `json:"issueType"`
	Severity    string       `json:"severity"`
	Description string       `json:"description"`
	AssignedTo  AssigneeList `json:"assignedTo"`
	ReportedBy  *int64       `json:"reportedById"`
	CreatedBy   *int64       `json:"createdBy"`
}

// KeyFor returns the value of the named key field.
func (r CreateIssueRequest) KeyFor(field string) string {
	switch field {
	case "channel":
		return r.Channel
	case "frequency":
		return r.Frequency
	default:
		return ""
	}
}

// UpdateIssueRequest carries partial updates; absent fields stay untouched.
type UpdateIssueRequest struct {
	Channel     *string       `json:"channel"`
	Frequency   *string       `json:"frequency"`
	IssueType   *string       `json:"issueType"`
	Severity    *string       `json:"severity"`
	Description *string       `json:"description"`
	AssignedTo  *AssigneeList `json:"assignedTo"`
	Status      *string       `json:"status"`
	CompletedBy *int64        `json:"completedById"`
}

// KeyFor returns the pointer for the named key field.
func (r UpdateIssueRequest) KeyFor(field string) *string {
	switch field {
	case "channel":
		return r.Channel
	case "frequency":
		return r.Frequency
	default:
		return nil
	}
}

// IssueResponse is the issue wire representation. AssignedTo serializes as a
// single ID (or null) for single-assignee domains and as an array otherwise.
type IssueResponse struct {
	ID                 int64      `json:"id"`
	Channel            string     `json:"channel,omitempty"`
	Frequency          string     `json:"frequency,omitempty"`
	IssueType          string     `json:"issueType"`
	Severity           string     `json:"severity"`
	Description        string     `json:"description"`
	AssignedTo         any        `json:"assignedTo"`
	AssignedToFullName *string    `json:"assignedToFullName,omitempty"`
	ReportedBy         *int64     `json:"reportedById,omitempty"`
	ReportedByEmail    *string    `json:"reportedByEmail,omitempty"`
	ReportedByFullName *string    `json:"reportedByFullName,omitempty"`
	Status             string     `json:"status"`
	CompletedBy        *int64     `json:"completedById,omitempty"`
	CompletedByName    *string    `json:"completedByFullName,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	ReportedAt         time.Time  `json:"dateReported"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// MetadataUser is a user entry for assignment dropdowns.
type MetadataUser struct {
	ID       int64   `json:"id"`
	FullName string  `json:"fullName"`
	Email    *string `json:"email,omitempty"`
}

// IssueMetadataResponse bundles the dropdown vocabularies for one domain.
type IssueMetadataResponse struct {
	ChannelOptions   []string       `json:"channelOptions,omitempty"`
	FrequencyOptions []string       `json:"frequencyOptions,omitempty"`
	IssueTypes       []string       `json:"issueTypes"`
	SeverityLevels   []string       `json:"severityLevels"`
	StatusOptions    []string       `json:"statusOptions"`
	Users            []MetadataUser `json:"users"`
}
