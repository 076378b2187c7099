package domain

import "time"

// Severity enumerates issue urgency.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Severities returns all valid severities.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh}
}

// IssueStatus enumerates lifecycle states. CAS issues use New/In Progress/
// Completed; channel and frequency issues use Open/In Progress/Resolved.
type IssueStatus string

const (
	StatusNew        IssueStatus = "New"
	StatusOpen       IssueStatus = "Open"
	StatusInProgress IssueStatus = "In Progress"
	StatusCompleted  IssueStatus = "Completed"
	StatusResolved   IssueStatus = "Resolved"
)

// DomainCode tags the fault domain an issue belongs to. It doubles as the
// entity-type tag on notifications, so the values must stay stable.
type DomainCode string

const (
	DomainCAS       DomainCode = "cas_issue"
	DomainChannel   DomainCode = "channel_issue"
	DomainFrequency DomainCode = "frequency_issue"
)

// Spec describes one fault domain: its closed vocabularies, status set,
// assignee cardinality and lifecycle capabilities. The issue lifecycle
// engine is parameterized by a Spec instead of being written three times.
type Spec struct {
	Code             DomainCode
	Table            string
	KeyField         string   // request/response field name for the domain key; empty for CAS
	KeyOptions       []string // dropdown options; the key itself is not restricted to them
	IssueTypes       []string
	Statuses         []IssueStatus
	InitialStatus    IssueStatus
	TerminalStatus   IssueStatus
	SingleAssignee   bool
	RequireCompleter bool
	Deletable        bool
}

// ValidIssueType reports whether t is in the domain's closed vocabulary.
func (s Spec) ValidIssueType(t string) bool {
	for _, candidate := range s.IssueTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ValidStatus reports whether st is a member of the domain's status set.
func (s Spec) ValidStatus(st IssueStatus) bool {
	for _, candidate := range s.Statuses {
		if candidate == st {
			return true
		}
	}
	return false
}

// CASSpec covers conditional-access-system faults. The issue type itself is
// the domain key, the assignee is single-valued, completion is gated on a
// completer and records are never deleted.
var CASSpec = Spec{
	Code:  DomainCAS,
	Table: "cas_issues",
	IssueTypes: []string{
		"Error",
		"Loading... Takes More Time",
		"Loading... no response",
		"Error: disconnected to CAS",
		"Error For One Ic Card",
		"General Error",
		"CAS Down",
	},
	Statuses:         []IssueStatus{StatusNew, StatusInProgress, StatusCompleted},
	InitialStatus:    StatusNew,
	TerminalStatus:   StatusCompleted,
	SingleAssignee:   true,
	RequireCompleter: true,
}

// ChannelSpec covers channel faults.
var ChannelSpec = Spec{
	Code:     DomainChannel,
	Table:    "channel_issues",
	KeyField: "channel",
	KeyOptions: []string{
		"Channel 15",
		"Channel 27",
		"Channel 42",
		"Channel 78",
		"Channel 103",
	},
	IssueTypes: []string{
		"Mugdi waaye",
		"Lacag la'aan waaye",
		"Jajabaa soo qalaayo",
		"Channalkiisa saxda ma saarno",
	},
	Statuses:       []IssueStatus{StatusOpen, StatusInProgress, StatusResolved},
	InitialStatus:  StatusOpen,
	TerminalStatus: StatusResolved,
	Deletable:      true,
}

// FrequencySpec covers frequency/transmitter faults.
var FrequencySpec = Spec{
	Code:     DomainFrequency,
	Table:    "frequency_issues",
	KeyField: "frequency",
	KeyOptions: []string{
		"Frequency 1",
		"Frequency 2",
		"Frequency 3",
		"Frequency 4",
		"Frequency 5",
		"Frequency 6",
		"All Frequencies",
	},
	IssueTypes: []string{
		"Jajab waaye",
		"Mugdi waaye",
		"Dhagax dhigay",
		"Lacag la'aan waaye",
	},
	Statuses:       []IssueStatus{StatusOpen, StatusInProgress, StatusResolved},
	InitialStatus:  StatusOpen,
	TerminalStatus: StatusResolved,
	Deletable:      true,
}

// Issue is the shared record for all three fault domains. Key is empty for
// CAS issues; Assignees holds at most one element when the domain is
// single-valued.
type Issue struct {
	ID              int64
	Domain          DomainCode
	Key             string
	IssueType       string
	Severity        Severity
	Description     string
	Assignees       []int64
	ReportedBy      *int64
	ReportedByEmail *string
	Status          IssueStatus
	CompletedBy     *int64
	CompletedAt     *time.Time
	ReportedAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Assignee returns the single assignee for single-valued domains, nil when
// unassigned.
func (i *Issue) Assignee() *int64 {
	if len(i.Assignees) == 0 {
		return nil
	}
	id := i.Assignees[0]
	return &id
}
