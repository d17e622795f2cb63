package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
)

type AuditRepository interface {
	CreateTokenExchange(ctx context.Context, l *models.TokenExchangeLog) (int64, error)
	CreatePublish(ctx context.Context, l *models.PublishLog) (int64, error)
	ListTokenExchanges(ctx context.Context, userEmail string, platform models.Platform, limit int) ([]*models.TokenExchangeLog, error)
	ListFailedPublications(ctx context.Context, userEmail string, limit int) ([]*models.PublishLog, error)
	TokenExchangeStats(ctx context.Context, since time.Time) ([]models.PlatformStats, error)
	PublishStats(ctx context.Context, since time.Time) ([]models.PlatformStats, error)
}

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) CreateTokenExchange(ctx context.Context, l *models.TokenExchangeLog) (int64, error) {
	query := `
		INSERT INTO token_exchange_logs (
			user_email,
			platform,
			authorization_code,
			access_token,
			token_status,
			error_message,
			error_code,
			platform_user_id,
			token_obtained_at,
			token_expires_at,
			ip_address
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		nullString(l.UserEmail),
		l.Platform,
		nullString(l.AuthorizationCode),
		nullString(l.AccessToken),
		l.Status,
		nullString(l.ErrorMessage),
		nullString(l.ErrorCode),
		nullString(l.PlatformUserID),
		l.TokenObtainedAt,
		l.TokenExpiresAt,
		nullString(l.IPAddress),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *auditRepository) CreatePublish(ctx context.Context, l *models.PublishLog) (int64, error) {
	query := `
		INSERT INTO post_publish_logs (
			post_id,
			account_id,
			platform,
			external_post_id,
			publish_status,
			platform_response_code,
			error_details,
			retry_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		l.PostID,
		l.AccountID,
		l.Platform,
		nullString(l.ExternalPostID),
		l.Status,
		nullString(l.ResponseCode),
		nullString(l.ErrorDetails),
		l.RetryCount,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// ListTokenExchanges returns the newest entries first. Empty filters match everything.
func (r *auditRepository) ListTokenExchanges(ctx context.Context, userEmail string, platform models.Platform, limit int) ([]*models.TokenExchangeLog, error) {
	query := `
		SELECT id, COALESCE(user_email, ''), platform, token_status, COALESCE(error_message, ''),
			COALESCE(error_code, ''), COALESCE(platform_user_id, ''), token_obtained_at, token_expires_at,
			exchange_timestamp, COALESCE(ip_address, '')
		FROM token_exchange_logs
		WHERE ($1 = '' OR user_email = $1) AND ($2 = '' OR platform = $2)
		ORDER BY exchange_timestamp DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, userEmail, string(platform), limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var logs []*models.TokenExchangeLog
	for rows.Next() {
		var l models.TokenExchangeLog
		err := rows.Scan(&l.ID, &l.UserEmail, &l.Platform, &l.Status, &l.ErrorMessage, &l.ErrorCode,
			&l.PlatformUserID, &l.TokenObtainedAt, &l.TokenExpiresAt, &l.ExchangedAt, &l.IPAddress)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return logs, nil
}

// ListFailedPublications returns failed and rejected attempts, newest first.
// An empty userEmail matches every account.
func (r *auditRepository) ListFailedPublications(ctx context.Context, userEmail string, limit int) ([]*models.PublishLog, error) {
	query := `
		SELECT l.id, l.post_id, l.account_id, l.platform, COALESCE(l.external_post_id, ''), l.publish_status,
			COALESCE(l.platform_response_code, ''), COALESCE(l.error_details, ''), l.retry_count, l.logged_at
		FROM post_publish_logs l
		LEFT JOIN social_accounts a ON a.id = l.account_id
		WHERE l.publish_status IN ('failed', 'rejected') AND ($1 = '' OR a.user_email = $1)
		ORDER BY l.logged_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userEmail, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var logs []*models.PublishLog
	for rows.Next() {
		var l models.PublishLog
		err := rows.Scan(&l.ID, &l.PostID, &l.AccountID, &l.Platform, &l.ExternalPostID, &l.Status,
			&l.ResponseCode, &l.ErrorDetails, &l.RetryCount, &l.LoggedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return logs, nil
}

func (r *auditRepository) TokenExchangeStats(ctx context.Context, since time.Time) ([]models.PlatformStats, error) {
	query := `
		SELECT platform,
			COUNT(*),
			COUNT(CASE WHEN token_status = 'success' THEN 1 END),
			COUNT(CASE WHEN token_status = 'failed' THEN 1 END)
		FROM token_exchange_logs
		WHERE exchange_timestamp >= $1
		GROUP BY platform
		ORDER BY platform
	`
	return r.stats(ctx, query, since)
}

func (r *auditRepository) PublishStats(ctx context.Context, since time.Time) ([]models.PlatformStats, error) {
	query := `
		SELECT platform,
			COUNT(*),
			COUNT(CASE WHEN publish_status = 'published' THEN 1 END),
			COUNT(CASE WHEN publish_status IN ('failed', 'rejected') THEN 1 END)
		FROM post_publish_logs
		WHERE logged_at >= $1
		GROUP BY platform
		ORDER BY platform
	`
	return r.stats(ctx, query, since)
}

func (r *auditRepository) stats(ctx context.Context, query string, since time.Time) ([]models.PlatformStats, error) {
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	stats := []models.PlatformStats{}
	for rows.Next() {
		var s models.PlatformStats
		if err := rows.Scan(&s.Platform, &s.Total, &s.Succeeded, &s.Failed); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return stats, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
