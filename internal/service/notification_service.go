package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/broadcast-ops/fault-tracker/internal/domain"
	"github.com/broadcast-ops/fault-tracker/internal/events"
	"github.com/broadcast-ops/fault-tracker/internal/persistence"
	"github.com/broadcast-ops/fault-tracker/internal/repository"
	apperrors "github.com/broadcast-ops/fault-tracker/pkg/util"
)

// MarkReadAll is the sentinel accepted by MarkRead to flip every
// notification owned by a user.
const MarkReadAll = "all"

const unreadCountTTL = 5 * time.Minute

// NotificationService persists assignment notifications and serves the
// per-user inbox. Fan-out is best effort: failures are logged and swallowed
// so the issue mutation that triggered them always stands.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	dispatcher    events.Dispatcher
	cache         *persistence.Redis
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	UserRepo         repository.UserRepository
	Dispatcher       events.Dispatcher
	Cache            *persistence.Redis
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationRepo,
		users:         deps.UserRepo,
		dispatcher:    deps.Dispatcher,
		cache:         deps.Cache,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to assignment events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueAssigned, n.handleIssueAssigned)
}

func (n *NotificationService) handleIssueAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssueAssignedPayload)
	if !ok || payload.Issue == nil {
		n.logger.Warn("issue_assigned event with unexpected payload", zap.String("event_id", event.ID))
		return nil
	}
	n.CreateAssignmentNotifications(ctx, payload.NewlyAssigned, payload.Issue, event.ActorID)
	return nil
}

// CreateAssignmentNotifications persists one notification per newly assigned
// user. An empty recipient set is a no-op. Any persistence failure degrades
// the whole batch to an empty result; it is never surfaced to the caller.
func (n *NotificationService) CreateAssignmentNotifications(ctx context.Context, userIDs []int64, issue *domain.Issue, actorID *int64) []domain.Notification {
	if len(userIDs) == 0 {
		return nil
	}

	actorName := "Someone"
	if actorID != nil {
		if actor, err := n.users.GetByID(ctx, *actorID); err == nil {
			actorName = actor.FullName()
		}
	}

	entityType := string(issue.Domain)
	created := make([]domain.Notification, 0, len(userIDs))
	seen := make(map[int64]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}

		entityID := issue.ID
		notification := domain.Notification{
			UserID:     userID,
			Message:    assignmentMessage(actorName, issue),
			Type:       domain.NotificationTypeIssueAssigned,
			EntityID:   &entityID,
			EntityType: &entityType,
		}
		if err := n.notifications.Create(ctx, &notification); err != nil {
			n.logger.Error("failed to create assignment notifications",
				zap.Int64("issue_id", issue.ID),
				zap.String("entity_type", entityType),
				zap.Error(err))
			return []domain.Notification{}
		}
		n.invalidateUnreadCount(ctx, userID)
		created = append(created, notification)
	}
	return created
}

// assignmentMessage keys the phrasing on the issue's domain, with a generic
// fallback for unrecognized tags.
func assignmentMessage(actorName string, issue *domain.Issue) string {
	switch issue.Domain {
	case domain.DomainFrequency:
		return fmt.Sprintf("%s assigned you to a frequency issue: \"%s - %s\"", actorName, issue.Key, issue.IssueType)
	case domain.DomainChannel:
		return fmt.Sprintf("%s assigned you to a channel issue: \"%s - %s\"", actorName, issue.Key, issue.IssueType)
	case domain.DomainCAS:
		return fmt.Sprintf("%s assigned you to a CAS issue: \"%s - %s\"", actorName, issue.IssueType, issue.Severity)
	default:
		return fmt.Sprintf("%s assigned you to an issue: \"%s\"", actorName, issue.IssueType)
	}
}

// ListUnread returns the unread notifications for a user, newest first. It
// fails closed: a non-positive user ID or a storage failure yields an empty
// list, never an error.
func (n *NotificationService) ListUnread(ctx context.Context, userID int64) []domain.Notification {
	if userID <= 0 {
		return []domain.Notification{}
	}
	notifications, err := n.notifications.ListUnreadByUser(ctx, userID)
	if err != nil {
		n.logger.Error("failed to list unread notifications", zap.Int64("user_id", userID), zap.Error(err))
		return []domain.Notification{}
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return notifications
}

// ListAll returns every notification, newest first.
func (n *NotificationService) ListAll(ctx context.Context) ([]domain.Notification, error) {
	notifications, err := n.notifications.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return notifications, nil
}

// MarkRead marks one notification, or with the "all" sentinel every
// notification owned by userID, as read. Marking another user's notification
// is a no-op reported as false; success is a boolean, never an error.
func (n *NotificationService) MarkRead(ctx context.Context, target string, userID int64) bool {
	if userID <= 0 {
		return false
	}
	if target == MarkReadAll {
		if err := n.notifications.MarkAllRead(ctx, userID); err != nil {
			n.logger.Error("failed to mark all notifications read", zap.Int64("user_id", userID), zap.Error(err))
			return false
		}
		n.invalidateUnreadCount(ctx, userID)
		return true
	}

	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return false
	}
	ok, err := n.notifications.MarkRead(ctx, id, userID)
	if err != nil {
		n.logger.Error("failed to mark notification read",
			zap.Int64("notification_id", id),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return false
	}
	if ok {
		n.invalidateUnreadCount(ctx, userID)
	}
	return ok
}

// UnreadCount returns the number of unread notifications for a user, served
// from the redis counter cache when warm.
func (n *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, nil
	}
	key := unreadCountKey(userID)
	if n.cache != nil && n.cache.Client != nil {
		if cached, err := n.cache.Client.Get(ctx, key).Int64(); err == nil {
			return cached, nil
		}
	}

	count, err := n.notifications.CountUnreadByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, apperrors.MapError(err)
	}
	if n.cache != nil && n.cache.Client != nil {
		if err := n.cache.Client.Set(ctx, key, count, unreadCountTTL).Err(); err != nil {
			n.logger.Debug("failed to cache unread count", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return count, nil
}

func (n *NotificationService) invalidateUnreadCount(ctx context.Context, userID int64) {
	if n.cache == nil || n.cache.Client == nil {
		return
	}
	if err := n.cache.Client.Del(ctx, unreadCountKey(userID)).Err(); err != nil {
		n.logger.Debug("failed to invalidate unread count", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func unreadCountKey(userID int64) string {
	return "notifications:unread:" + strconv.FormatInt(userID, 10)
}
