package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotificationNotFound signals no notification row belongs to the
	// recipient under the given id.
	ErrNotificationNotFound = errors.New("notification: not found")
)

// Repository handles data access for notification rows.
type Repository interface {
	Insert(ctx context.Context, userID, title, body string, candidateID *string) (Notification, error)
	ListForUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const notificationColumns = "id, user_id, title, body, candidate_id, is_read, created_at"

func (r *PGRepository) Insert(ctx context.Context, userID, title, body string, candidateID *string) (Notification, error) {
	query := fmt.Sprintf(`
		INSERT INTO notifications (user_id, title, body, candidate_id)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, notificationColumns)

	n, err := scanNotification(r.pool.QueryRow(ctx, query, userID, title, body, candidateID))
	if err != nil {
		return Notification{}, fmt.Errorf("notification: insert: %w", err)
	}
	return n, nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, notificationColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("notification: list: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0, 8)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("notification: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification: iterate: %w", err)
	}
	return out, nil
}

// MarkRead flips the read flag of one notification owned by userID.
func (r *PGRepository) MarkRead(ctx context.Context, userID, notificationID string) (Notification, error) {
	query := fmt.Sprintf(`
		UPDATE notifications
		SET is_read = true
		WHERE id = $1 AND user_id = $2
		RETURNING %s
	`, notificationColumns)

	n, err := scanNotification(r.pool.QueryRow(ctx, query, notificationID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotificationNotFound
		}
		return Notification{}, fmt.Errorf("notification: mark read: %w", err)
	}
	return n, nil
}

// MarkAllRead flips the read flag on every unread notification of userID and
// returns how many rows changed.
func (r *PGRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = true
		WHERE user_id = $1 AND is_read = false
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("notification: mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Body,
		&n.CandidateID,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}
