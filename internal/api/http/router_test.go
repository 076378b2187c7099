package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"sort"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/broadcast-ops/fault-tracker/internal/api/http/handlers"
	"github.com/broadcast-ops/fault-tracker/internal/auth"
	"github.com/broadcast-ops/fault-tracker/internal/config"
	"github.com/broadcast-ops/fault-tracker/internal/domain"
	"github.com/broadcast-ops/fault-tracker/internal/events"
	"github.com/broadcast-ops/fault-tracker/internal/observability"
	"github.com/broadcast-ops/fault-tracker/internal/repository"
	"github.com/broadcast-ops/fault-tracker/internal/service"
	"github.com/broadcast-ops/fault-tracker/internal/upload"
)

type memUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.nextID++
	user.ID = r.nextID
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email != nil && *u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByEmployeeID(_ context.Context, employeeID string) (*domain.User, error) {
	for _, u := range r.users {
		if u.EmployeeID != nil && *u.EmployeeID == employeeID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	out := []domain.User{}
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

type memIssueRepo struct {
	nextID int64
	issues map[int64]*domain.Issue
}

func (r *memIssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	r.nextID++
	issue.ID = r.nextID
	now := time.Now()
	issue.ReportedAt = now
	issue.CreatedAt = now
	issue.UpdatedAt = now
	copied := *issue
	r.issues[issue.ID] = &copied
	return nil
}

func (r *memIssueRepo) Update(_ context.Context, issue *domain.Issue) error {
	if _, ok := r.issues[issue.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *issue
	r.issues[issue.ID] = &copied
	return nil
}

func (r *memIssueRepo) GetByID(_ context.Context, id int64) (*domain.Issue, error) {
	issue, ok := r.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *issue
	return &copied, nil
}

func (r *memIssueRepo) List(_ context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	out := []domain.Issue{}
	for _, issue := range r.issues {
		if filter.Status != nil && issue.Status != *filter.Status {
			continue
		}
		if filter.Key != nil && issue.Key != *filter.Key {
			continue
		}
		if filter.Severity != nil && issue.Severity != *filter.Severity {
			continue
		}
		out = append(out, *issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memIssueRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.issues[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.issues, id)
	return nil
}

type memNotificationRepo struct {
	nextID int64
	items  []*domain.Notification
}

func (r *memNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	copied := *n
	r.items = append(r.items, &copied)
	return nil
}

func (r *memNotificationRepo) ListAll(_ context.Context) ([]domain.Notification, error) {
	out := make([]domain.Notification, 0, len(r.items))
	for i := len(r.items) - 1; i >= 0; i-- {
		out = append(out, *r.items[i])
	}
	return out, nil
}

func (r *memNotificationRepo) ListUnreadByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	out := []domain.Notification{}
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID && !r.items[i].IsRead {
			out = append(out, *r.items[i])
		}
	}
	return out, nil
}

func (r *memNotificationRepo) CountUnreadByUser(_ context.Context, userID int64) (int64, error) {
	var count int64
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id, userID int64) (bool, error) {
	for _, n := range r.items {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (r *memNotificationRepo) MarkAllRead(_ context.Context, userID int64) error {
	for _, n := range r.items {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

type testEnv struct {
	app   *fiber.App
	users *service.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "router-test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            4,
		},
	}
	userRepo := &memUserRepo{users: map[int64]*domain.User{}}
	notificationRepo := &memNotificationRepo{}
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()

	userService := service.NewUserService(cfg, userRepo)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		Dispatcher:       dispatcher,
	}, logger)
	notificationService.RegisterHandlers()

	newIssueService := func(spec domain.Spec) *service.IssueService {
		return service.NewIssueService(spec, service.IssueDependencies{
			IssueRepo:  &memIssueRepo{issues: map[int64]*domain.Issue{}},
			UserRepo:   userRepo,
			Dispatcher: dispatcher,
		})
	}

	avatarStore, err := upload.NewAvatarStore(config.UploadConfig{
		Dir:          t.TempDir(),
		BaseURL:      "/uploads/avatars",
		MaxSizeBytes: 1 << 20,
	})
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("test", "test", nil, nil),
		Users:           handlers.NewUsersHandler(userService, avatarStore),
		CASIssues:       handlers.NewIssuesHandler(newIssueService(domain.CASSpec), userService),
		ChannelIssues:   handlers.NewIssuesHandler(newIssueService(domain.ChannelSpec), userService),
		FrequencyIssues: handlers.NewIssuesHandler(newIssueService(domain.FrequencySpec), userService),
		Notifications:   handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware:  auth.NewAuthMiddleware(userService.TokenManager(), userRepo),
	})
	return &testEnv{app: app, users: userService}
}

func (e *testEnv) registerUser(t *testing.T, email, role string) (*domain.User, string) {
	t.Helper()
	first := "Asha"
	last := "Warsame"
	user, err := e.users.Register(context.Background(), service.UserCreateInput{
		Email:     &email,
		Password:  "s3cret",
		FirstName: &first,
		LastName:  &last,
		Role:      role,
	})
	require.NoError(t, err)
	token, _, err := e.users.TokenManager().GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*nethttp.Response, map[string]any) {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req, err := nethttp.NewRequest(method, path, payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestLoginAndAuthenticatedListing(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "ops@station.example", "technical")

	resp, body := env.do(t, "POST", "/api/users/login", "", map[string]any{
		"email":    "ops@station.example",
		"password": "s3cret",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	token := data["token"].(string)
	require.NotEmpty(t, token)

	resp, body = env.do(t, "GET", "/api/channel-issues/", token, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])
}

func TestMissingTokenRendersErrorEnvelope(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/api/channel-issues/", "", nil)
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "UNAUTHORIZED", errObj["code"])
}

func TestChannelIssueLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	assignee, token := env.registerUser(t, "tech@station.example", "technical")

	resp, body := env.do(t, "POST", "/api/channel-issues/", token, map[string]any{
		"channel":     "Channel 15",
		"issueType":   "Mugdi waaye",
		"severity":    "High",
		"description": "black screen on main mux",
		"assignedTo":  []int64{assignee.ID},
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	issue := body["data"].(map[string]any)
	assert.Equal(t, "Open", issue["status"])
	assert.Equal(t, "Channel 15", issue["channel"])
	issueID := int64(issue["id"].(float64))

	resp, body = env.do(t, "GET", fmt.Sprintf("/api/notifications/user/%d", assignee.ID), token, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), body["count"])
	notification := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, `Asha Warsame assigned you to a channel issue: "Channel 15 - Mugdi waaye"`, notification["message"])
	assert.Equal(t, "channel_issue", notification["entityType"])
	assert.Equal(t, float64(issueID), notification["entityId"])

	resp, body = env.do(t, "PUT", fmt.Sprintf("/api/channel-issues/%d", issueID), token, map[string]any{
		"status": "Resolved",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "Resolved", body["data"].(map[string]any)["status"])
}

func TestValidationErrorEnvelope(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "tech@station.example", "technical")

	resp, body := env.do(t, "POST", "/api/channel-issues/", token, map[string]any{
		"channel":  "Channel 15",
		"severity": "High",
	})
	require.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errObj["code"])
}

func TestCASDeleteForbidden(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "admin@station.example", "admin")

	resp, body := env.do(t, "POST", "/api/cas-issues/", token, map[string]any{
		"issueType":   "CAS Down",
		"severity":    "High",
		"description": "authorizations failing station-wide",
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	issueID := int64(body["data"].(map[string]any)["id"].(float64))

	resp, body = env.do(t, "DELETE", fmt.Sprintf("/api/cas-issues/%d", issueID), token, nil)
	require.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["error"].(map[string]any)["code"])
}

func TestRoleGuardBlocksTechnicalFromCASRead(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "tech@station.example", "technical")

	resp, body := env.do(t, "GET", "/api/cas-issues/", token, nil)
	require.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["error"].(map[string]any)["code"])
}

func TestMetadataListsDomainVocabulary(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "tech@station.example", "technical")

	resp, body := env.do(t, "GET", "/api/frequency-issues/metadata", token, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Len(t, data["frequencyOptions"].([]any), len(domain.FrequencySpec.KeyOptions))
	assert.Len(t, data["issueTypes"].([]any), len(domain.FrequencySpec.IssueTypes))
}

func TestMarkReadOwnNotificationOnly(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.registerUser(t, "owner@station.example", "technical")
	_, otherToken := env.registerUser(t, "other@station.example", "technical")

	resp, _ := env.do(t, "POST", "/api/channel-issues/", ownerToken, map[string]any{
		"channel":     "Channel 27",
		"issueType":   "Mugdi waaye",
		"severity":    "Low",
		"description": "flicker",
		"assignedTo":  []int64{owner.ID},
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	resp, _ = env.do(t, "PATCH", "/api/notifications/1/read", otherToken, nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, "PATCH", "/api/notifications/1/read", ownerToken, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, body := env.do(t, "GET", fmt.Sprintf("/api/notifications/user/%d", owner.ID), ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])
}
