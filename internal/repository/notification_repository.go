package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/broadcast-ops/fault-tracker/internal/domain"
)

// NotificationRepository stores assignment notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListAll(ctx context.Context) ([]domain.Notification, error)
	ListUnreadByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	CountUnreadByUser(ctx context.Context, userID int64) (int64, error)
	// MarkRead flips the read flag for one notification owned by userID.
	// Returns false without error when no owned row matched.
	MarkRead(ctx context.Context, id, userID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, user_id, message, type, entity_id, entity_type, is_read, created_at, updated_at`

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, message, type, entity_id, entity_type, is_read)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		notification.UserID,
		notification.Message,
		notification.Type,
		notification.EntityID,
		notification.EntityType,
		notification.IsRead,
	).Scan(&notification.ID, &notification.CreatedAt, &notification.UpdatedAt)
}

func (r *notificationRepository) ListAll(ctx context.Context) ([]domain.Notification, error) {
	const query = `SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *notificationRepository) ListUnreadByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	const query = `SELECT ` + notificationColumns + `
        FROM notifications WHERE user_id=$1 AND is_read=FALSE
        ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *notificationRepository) CountUnreadByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read=FALSE`
	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	const query = `UPDATE notifications SET is_read=TRUE, updated_at=NOW() WHERE id=$1 AND user_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	const query = `UPDATE notifications SET is_read=TRUE, updated_at=NOW() WHERE user_id=$1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func scanNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Message,
			&n.Type,
			&n.EntityID,
			&n.EntityType,
			&n.IsRead,
			&n.CreatedAt,
			&n.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
