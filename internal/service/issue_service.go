package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/broadcast-ops/fault-tracker/internal/domain"
	"github.com/broadcast-ops/fault-tracker/internal/events"
	"github.com/broadcast-ops/fault-tracker/internal/repository"
	apperrors "github.com/broadcast-ops/fault-tracker/pkg/util"
)

// IssueService is the lifecycle engine for one fault domain. The same engine
// serves CAS, channel and frequency issues; the domain.Spec it is constructed
// with supplies the vocabularies, status set and assignment cardinality.
type IssueService struct {
	spec       domain.Spec
	issues     repository.IssueRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// NewIssueService constructs the engine for the given domain spec.
func NewIssueService(spec domain.Spec, deps IssueDependencies) *IssueService {
	return &IssueService{
		spec:       spec,
		issues:     deps.IssueRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Spec exposes the domain descriptor, used by handlers for metadata and
// routing decisions.
func (s *IssueService) Spec() domain.Spec {
	return s.spec
}

// IssueCreateInput describes issue creation payload.
type IssueCreateInput struct {
	Key         string
	IssueType   string
	Severity    domain.Severity
	Description string
	Assignees   []int64
	ReportedBy  *int64
}

// IssueUpdateInput carries partial updates; nil fields are left untouched.
// Assignees distinguishes nil (untouched) from an empty slice (clear).
type IssueUpdateInput struct {
	Key         *string
	IssueType   *string
	Severity    *domain.Severity
	Description *string
	Assignees   *[]int64
	Status      *domain.IssueStatus
	CompletedBy *int64
}

// IssueListFilter is an optional conjunction over status, key and severity.
type IssueListFilter struct {
	Status   *domain.IssueStatus
	Key      *string
	Severity *domain.Severity
}

// Create validates and persists a new issue. Assignees supplied at creation
// are all newly assigned and trigger the notification fan-out.
func (s *IssueService) Create(ctx context.Context, actorID *int64, input IssueCreateInput) (*domain.Issue, error) {
	missing := []string{}
	if s.spec.KeyField != "" && strings.TrimSpace(input.Key) == "" {
		missing = append(missing, s.spec.KeyField)
	}
	if strings.TrimSpace(input.IssueType) == "" {
		missing = append(missing, "issueType")
	}
	if input.Severity == "" {
		missing = append(missing, "severity")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"required": missing})
	}
	if !s.spec.ValidIssueType(input.IssueType) {
		return nil, apperrors.NewValidationError("unknown issue type", map[string]any{
			"issueType": input.IssueType,
			"allowed":   s.spec.IssueTypes,
		})
	}
	if !validSeverity(input.Severity) {
		return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": input.Severity})
	}

	assignees, err := s.resolveAssignees(ctx, input.Assignees)
	if err != nil {
		return nil, err
	}

	issue := &domain.Issue{
		Domain:      s.spec.Code,
		Key:         strings.TrimSpace(input.Key),
		IssueType:   input.IssueType,
		Severity:    input.Severity,
		Description: strings.TrimSpace(input.Description),
		Assignees:   assignees,
		Status:      s.spec.InitialStatus,
	}

	if input.ReportedBy != nil {
		reporter, err := s.users.GetByID(ctx, *input.ReportedBy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewReferenceError("reporting user not found", map[string]any{"reportedById": *input.ReportedBy})
			}
			return nil, apperrors.MapError(err)
		}
		issue.ReportedBy = &reporter.ID
		issue.ReportedByEmail = reporter.Email
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueCreated,
		Domain:  s.spec.Code,
		IssueID: issue.ID,
		ActorID: coalesceActor(actorID, issue.ReportedBy),
		Payload: events.IssueCreatedPayload{
			Key:       issue.Key,
			IssueType: issue.IssueType,
			Severity:  issue.Severity,
			Status:    issue.Status,
		},
	})

	if len(issue.Assignees) > 0 {
		s.publishAssignment(ctx, issue, issue.Assignees, coalesceActor(actorID, issue.ReportedBy))
	}
	return issue, nil
}

// Get fetches one issue by ID.
func (s *IssueService) Get(ctx context.Context, id int64) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// List returns issues matching the filter, most recently reported first.
func (s *IssueService) List(ctx context.Context, filter IssueListFilter) ([]domain.Issue, error) {
	issues, err := s.issues.List(ctx, repository.IssueFilter{
		Status:   filter.Status,
		Key:      filter.Key,
		Severity: filter.Severity,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return issues, nil
}

// Update applies a partial mutation. Fields absent from the input keep their
// stored values. An assignee change drives the notification fan-out for the
// newly assigned subset only; notification failures never roll back the write.
func (s *IssueService) Update(ctx context.Context, actorID *int64, id int64, input IssueUpdateInput) (*domain.Issue, error) {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldAssignees := issue.Assignees
	var nextAssignees []int64

	if input.Assignees != nil {
		nextAssignees, err = s.resolveAssignees(ctx, *input.Assignees)
		if err != nil {
			return nil, err
		}
		if nextAssignees == nil {
			nextAssignees = []int64{}
		}
		issue.Assignees = nextAssignees
	}
	if input.Key != nil {
		if strings.TrimSpace(*input.Key) == "" {
			return nil, apperrors.NewValidationError(s.spec.KeyField+" must not be empty", nil)
		}
		issue.Key = strings.TrimSpace(*input.Key)
	}
	if input.IssueType != nil {
		if !s.spec.ValidIssueType(*input.IssueType) {
			return nil, apperrors.NewValidationError("unknown issue type", map[string]any{
				"issueType": *input.IssueType,
				"allowed":   s.spec.IssueTypes,
			})
		}
		issue.IssueType = *input.IssueType
	}
	if input.Severity != nil {
		if !validSeverity(*input.Severity) {
			return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": *input.Severity})
		}
		issue.Severity = *input.Severity
	}
	if input.Description != nil {
		if strings.TrimSpace(*input.Description) == "" {
			return nil, apperrors.NewValidationError("description must not be empty", nil)
		}
		issue.Description = strings.TrimSpace(*input.Description)
	}

	oldStatus := issue.Status
	if input.Status != nil {
		if !s.spec.ValidStatus(*input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{
				"status":  *input.Status,
				"allowed": s.spec.Statuses,
			})
		}
		// Any status may be set from any other; only entry into the
		// terminal state is gated, and only for domains that require a
		// completer.
		if s.spec.RequireCompleter && *input.Status == s.spec.TerminalStatus {
			if oldStatus != s.spec.TerminalStatus {
				if input.CompletedBy == nil {
					return nil, apperrors.NewValidationError(
						"completedById is required when setting status to "+string(s.spec.TerminalStatus), nil)
				}
				completer, err := s.users.GetByID(ctx, *input.CompletedBy)
				if err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						return nil, apperrors.NewReferenceError("completing user not found", map[string]any{"completedById": *input.CompletedBy})
					}
					return nil, apperrors.MapError(err)
				}
				now := time.Now()
				issue.CompletedBy = &completer.ID
				issue.CompletedAt = &now
			}
			// Already completed: the stamps are immutable under a
			// status-preserving edit.
		}
		if s.spec.RequireCompleter && *input.Status != s.spec.TerminalStatus {
			issue.CompletedBy = nil
			issue.CompletedAt = nil
		}
		issue.Status = *input.Status
	}

	if err := s.issues.Update(ctx, issue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	actor := coalesceActor(actorID, input.CompletedBy, issue.ReportedBy)
	if input.Status != nil && issue.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventIssueStatusChanged,
			Domain:  s.spec.Code,
			IssueID: issue.ID,
			ActorID: actor,
			Payload: events.IssueStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: issue.Status,
			},
		})
	}

	var delta []int64
	if input.Assignees != nil {
		delta = NewlyAssigned(oldAssignees, nextAssignees)
	}
	if len(delta) > 0 {
		s.publishAssignment(ctx, issue, delta, actor)
	}
	return issue, nil
}

// Delete removes an issue record. CAS issues are retained for audit and
// cannot be deleted.
func (s *IssueService) Delete(ctx context.Context, actorID *int64, id int64) error {
	if !s.spec.Deletable {
		return apperrors.NewForbidden(string(s.spec.Code) + " records cannot be deleted")
	}
	issue, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.issues.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("issue", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueDeleted,
		Domain:  s.spec.Code,
		IssueID: id,
		ActorID: actorID,
		Payload: events.IssueDeletedPayload{Key: issue.Key, IssueType: issue.IssueType},
	})
	return nil
}

// AssigneeOption is a user entry for assignment dropdowns.
type AssigneeOption struct {
	ID    int64
	Name  string
	Email *string
}

// IssueMetadata bundles the domain vocabularies for dropdown lists.
type IssueMetadata struct {
	KeyOptions []string
	IssueTypes []string
	Severities []domain.Severity
	Statuses   []domain.IssueStatus
	Users      []AssigneeOption
}

// Metadata returns the domain's closed vocabularies plus the assignable users.
func (s *IssueService) Metadata(ctx context.Context) (*IssueMetadata, error) {
	users, err := s.users.List(ctx, repository.UserFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	options := make([]AssigneeOption, 0, len(users))
	for i := range users {
		options = append(options, AssigneeOption{
			ID:    users[i].ID,
			Name:  users[i].FullName(),
			Email: users[i].Email,
		})
	}
	return &IssueMetadata{
		KeyOptions: s.spec.KeyOptions,
		IssueTypes: s.spec.IssueTypes,
		Severities: domain.Severities(),
		Statuses:   s.spec.Statuses,
		Users:      options,
	}, nil
}

// resolveAssignees dedupes the requested assignee set, enforces the domain's
// cardinality and verifies every referenced user exists.
func (s *IssueService) resolveAssignees(ctx context.Context, requested []int64) ([]int64, error) {
	if requested == nil {
		return nil, nil
	}
	seen := make(map[int64]struct{}, len(requested))
	assignees := make([]int64, 0, len(requested))
	for _, id := range requested {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		assignees = append(assignees, id)
	}
	if s.spec.SingleAssignee && len(assignees) > 1 {
		return nil, apperrors.NewValidationError("at most one assignee is allowed", map[string]any{"assignedTo": assignees})
	}
	for _, id := range assignees {
		if _, err := s.users.GetByID(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewReferenceError("assigned user not found", map[string]any{"assignedTo": id})
			}
			return nil, apperrors.MapError(err)
		}
	}
	return assignees, nil
}

func (s *IssueService) publishAssignment(ctx context.Context, issue *domain.Issue, delta []int64, actorID *int64) {
	snapshot := *issue
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueAssigned,
		Domain:  s.spec.Code,
		IssueID: issue.ID,
		ActorID: actorID,
		Payload: events.IssueAssignedPayload{
			Issue:         &snapshot,
			NewlyAssigned: delta,
		},
	})
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validSeverity(sev domain.Severity) bool {
	for _, candidate := range domain.Severities() {
		if candidate == sev {
			return true
		}
	}
	return false
}

func coalesceActor(candidates ...*int64) *int64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}
