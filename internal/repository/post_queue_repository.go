package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
)

type PostQueueRepository interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, post *models.QueuedPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.QueuedPost, error)
	ListRecent(ctx context.Context, userEmail string, limit int) ([]*models.QueueEntry, error)
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]*models.ClaimedPost, error)
	MarkSent(ctx context.Context, postID int64, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, postID int64, errorMessage string) (bool, error)
}

type postQueueRepository struct {
	db *sql.DB
}

func NewPostQueueRepository(db *sql.DB) PostQueueRepository {
	return &postQueueRepository{db: db}
}

func (r *postQueueRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postQueueRepository) Create(ctx context.Context, post *models.QueuedPost) (int64, error) {
	query := `
		INSERT INTO posts_queue (account_id, content, media_url, scheduled_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, post.AccountID, post.Content, post.MediaURL, post.ScheduledAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postQueueRepository) GetByID(ctx context.Context, id int64) (*models.QueuedPost, error) {
	query := `SELECT id, account_id, content, media_url, status, error_message, scheduled_at, sent_at, created_at
		FROM posts_queue WHERE id = $1`

	var p models.QueuedPost
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.AccountID, &p.Content, &p.MediaURL, &p.Status,
		&p.ErrorMessage, &p.ScheduledAt, &p.SentAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &p, nil
}

func (r *postQueueRepository) ListRecent(ctx context.Context, userEmail string, limit int) ([]*models.QueueEntry, error) {
	query := `
		SELECT q.id, q.account_id, q.content, q.media_url, q.status, q.error_message,
			q.scheduled_at, q.sent_at, q.created_at, a.platform
		FROM posts_queue q
		JOIN social_accounts a ON q.account_id = a.id
		WHERE a.user_email = $1
		ORDER BY q.scheduled_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userEmail, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		err := rows.Scan(&e.ID, &e.AccountID, &e.Content, &e.MediaURL, &e.Status, &e.ErrorMessage,
			&e.ScheduledAt, &e.SentAt, &e.CreatedAt, &e.Platform)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return entries, nil
}

// ClaimPending returns due pending posts, oldest scheduled first. Nothing is
// locked: two workers running this concurrently can claim the same rows.
func (r *postQueueRepository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]*models.ClaimedPost, error) {
	query := `
		SELECT q.id, q.account_id, q.content, q.media_url, q.status, q.scheduled_at, q.created_at,
			a.id, a.user_email, a.platform, a.platform_user_id, a.access_token, a.expires_at,
			(SELECT COUNT(*) FROM post_publish_logs l WHERE l.post_id = q.id) AS attempts
		FROM posts_queue q
		JOIN social_accounts a ON q.account_id = a.id
		WHERE q.status = 'pending' AND q.scheduled_at <= $1
		ORDER BY q.scheduled_at ASC, q.id ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var claimed []*models.ClaimedPost
	for rows.Next() {
		var c models.ClaimedPost
		err := rows.Scan(&c.Post.ID, &c.Post.AccountID, &c.Post.Content, &c.Post.MediaURL, &c.Post.Status,
			&c.Post.ScheduledAt, &c.Post.CreatedAt,
			&c.Account.ID, &c.Account.UserEmail, &c.Account.Platform, &c.Account.PlatformUserID,
			&c.Account.AccessToken, &c.Account.ExpiresAt,
			&c.Attempts)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		claimed = append(claimed, &c)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return claimed, nil
}

// MarkSent and MarkFailed only move pending posts. Against a post that is
// already sent or failed they change nothing and report false.
func (r *postQueueRepository) MarkSent(ctx context.Context, postID int64, sentAt time.Time) (bool, error) {
	query := `
		UPDATE posts_queue
		SET status = 'sent',
			sent_at = $2,
			error_message = NULL
		WHERE id = $1 AND status = 'pending'
	`
	return r.transition(ctx, query, postID, sentAt)
}

func (r *postQueueRepository) MarkFailed(ctx context.Context, postID int64, errorMessage string) (bool, error) {
	query := `
		UPDATE posts_queue
		SET status = 'failed',
			error_message = $2
		WHERE id = $1 AND status = 'pending'
	`
	return r.transition(ctx, query, postID, errorMessage)
}

func (r *postQueueRepository) transition(ctx context.Context, query string, postID int64, arg any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, postID, arg)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}
