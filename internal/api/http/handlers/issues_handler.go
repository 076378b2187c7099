package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/broadcast-ops/fault-tracker/internal/api/dto"
	"github.com/broadcast-ops/fault-tracker/internal/auth"
	"github.com/broadcast-ops/fault-tracker/internal/domain"
	"github.com/broadcast-ops/fault-tracker/internal/service"
	apperrors "github.com/broadcast-ops/fault-tracker/pkg/util"
)

// IssuesHandler serves the issue endpoints for one fault domain. The router
// binds one instance per domain; the behavior differences all come from the
// service's domain spec.
type IssuesHandler struct {
	service *service.IssueService
	users   *service.UserService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService, userService *service.UserService) *IssuesHandler {
	return &IssuesHandler{service: issueService, users: userService}
}

// Create POST /:domain-issues.
func (h *IssuesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	spec := h.service.Spec()

	reportedBy := req.ReportedBy
	if reportedBy == nil {
		reportedBy = req.CreatedBy
	}
	input := service.IssueCreateInput{
		Key:         req.KeyFor(spec.KeyField),
		IssueType:   req.IssueType,
		Severity:    domain.Severity(req.Severity),
		Description: req.Description,
		Assignees:   req.AssignedTo,
		ReportedBy:  reportedBy,
	}
	issue, err := h.service.Create(c.Context(), actorID(c), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": h.issueResponse(c, issue)})
}

// List GET /:domain-issues.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	spec := h.service.Spec()
	filter := service.IssueListFilter{}
	if status := c.Query("status"); status != "" {
		s := domain.IssueStatus(status)
		filter.Status = &s
	}
	if spec.KeyField != "" {
		if key := c.Query(spec.KeyField); key != "" {
			filter.Key = &key
		}
	}
	if severity := c.Query("severity"); severity != "" {
		s := domain.Severity(severity)
		filter.Severity = &s
	}

	issues, err := h.service.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.IssueResponse, 0, len(issues))
	for i := range issues {
		items = append(items, h.issueResponse(c, &issues[i]))
	}
	return c.JSON(fiber.Map{"success": true, "count": len(items), "data": items})
}

// Get GET /:domain-issues/:id.
func (h *IssuesHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	issue, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": h.issueResponse(c, issue)})
}

// Update PUT /:domain-issues/:id.
func (h *IssuesHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var req dto.UpdateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	spec := h.service.Spec()

	input := service.IssueUpdateInput{
		Key:         req.KeyFor(spec.KeyField),
		IssueType:   req.IssueType,
		Description: req.Description,
		CompletedBy: req.CompletedBy,
	}
	if req.Severity != nil {
		s := domain.Severity(*req.Severity)
		input.Severity = &s
	}
	if req.Status != nil {
		s := domain.IssueStatus(*req.Status)
		input.Status = &s
	}
	if req.AssignedTo != nil {
		ids := []int64(*req.AssignedTo)
		input.Assignees = &ids
	}

	issue, err := h.service.Update(c.Context(), actorID(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": h.issueResponse(c, issue)})
}

// Delete DELETE /:domain-issues/:id.
func (h *IssuesHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), actorID(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "issue deleted successfully"})
}

// Metadata GET /:domain-issues/metadata.
func (h *IssuesHandler) Metadata(c *fiber.Ctx) error {
	meta, err := h.service.Metadata(c.Context())
	if err != nil {
		return err
	}
	spec := h.service.Spec()

	resp := dto.IssueMetadataResponse{
		IssueTypes:     meta.IssueTypes,
		SeverityLevels: severityStrings(meta.Severities),
		StatusOptions:  statusStrings(meta.Statuses),
		Users:          make([]dto.MetadataUser, 0, len(meta.Users)),
	}
	switch spec.KeyField {
	case "channel":
		resp.ChannelOptions = meta.KeyOptions
	case "frequency":
		resp.FrequencyOptions = meta.KeyOptions
	}
	for _, u := range meta.Users {
		resp.Users = append(resp.Users, dto.MetadataUser{ID: u.ID, FullName: u.Name, Email: u.Email})
	}
	return c.JSON(fiber.Map{"success": true, "data": resp})
}

func (h *IssuesHandler) issueResponse(c *fiber.Ctx, issue *domain.Issue) dto.IssueResponse {
	spec := h.service.Spec()
	resp := dto.IssueResponse{
		ID:              issue.ID,
		IssueType:       issue.IssueType,
		Severity:        string(issue.Severity),
		Description:     issue.Description,
		ReportedBy:      issue.ReportedBy,
		ReportedByEmail: issue.ReportedByEmail,
		Status:          string(issue.Status),
		CompletedBy:     issue.CompletedBy,
		CompletedAt:     issue.CompletedAt,
		ReportedAt:      issue.ReportedAt,
		CreatedAt:       issue.CreatedAt,
		UpdatedAt:       issue.UpdatedAt,
	}
	switch spec.KeyField {
	case "channel":
		resp.Channel = issue.Key
	case "frequency":
		resp.Frequency = issue.Key
	}
	if spec.SingleAssignee {
		resp.AssignedTo = issue.Assignee()
		resp.AssignedToFullName = h.fullName(c, issue.Assignee())
	} else {
		assignees := issue.Assignees
		if assignees == nil {
			assignees = []int64{}
		}
		resp.AssignedTo = assignees
	}
	resp.ReportedByFullName = h.fullName(c, issue.ReportedBy)
	resp.CompletedByName = h.fullName(c, issue.CompletedBy)
	return resp
}

// fullName resolves a display name best-effort; missing users leave the
// enrichment field empty rather than failing the response.
func (h *IssuesHandler) fullName(c *fiber.Ctx, id *int64) *string {
	if id == nil {
		return nil
	}
	user, err := h.users.Get(c.Context(), *id)
	if err != nil {
		return nil
	}
	name := user.FullName()
	return &name
}

func actorID(c *fiber.Ctx) *int64 {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	return principal.ActorID()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"id": raw})
	}
	return id, nil
}

func severityStrings(severities []domain.Severity) []string {
	out := make([]string, 0, len(severities))
	for _, s := range severities {
		out = append(out, string(s))
	}
	return out
}

func statusStrings(statuses []domain.IssueStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
