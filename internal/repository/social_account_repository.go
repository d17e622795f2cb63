package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
)

type SocialAccountRepository interface {
	Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListByUserEmail(ctx context.Context, userEmail string) ([]*models.SocialAccount, error)
	ListExpiring(ctx context.Context, platform models.Platform, before time.Time) ([]*models.SocialAccount, error)
	CheckByUserEmail(ctx context.Context, accountID int64, userEmail string) (bool, error)
	SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

// Upsert stores a freshly exchanged token. Reconnecting the same platform
// user replaces its token instead of creating a second account.
func (r *socialAccountRepository) Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts (user_email, platform, platform_user_id, access_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (platform, platform_user_id) DO UPDATE
		SET user_email = EXCLUDED.user_email,
			access_token = EXCLUDED.access_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		sa.UserEmail,
		sa.Platform,
		sa.PlatformUserID,
		sa.AccessToken,
		sa.ExpiresAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT id, user_email, platform, platform_user_id, access_token, expires_at, created_at, updated_at
		FROM social_accounts WHERE id = $1`

	var sa models.SocialAccount
	err := r.db.QueryRowContext(ctx, query, id).Scan(&sa.ID, &sa.UserEmail, &sa.Platform, &sa.PlatformUserID,
		&sa.AccessToken, &sa.ExpiresAt, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &sa, nil
}

func (r *socialAccountRepository) ListByUserEmail(ctx context.Context, userEmail string) ([]*models.SocialAccount, error) {
	query := `SELECT id, user_email, platform, platform_user_id, expires_at, created_at, updated_at
		FROM social_accounts WHERE user_email = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userEmail)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		err := rows.Scan(&sa.ID, &sa.UserEmail, &sa.Platform, &sa.PlatformUserID, &sa.ExpiresAt,
			&sa.CreatedAt, &sa.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

// ListExpiring returns accounts whose token expires before the given time
// but has not expired yet. Accounts without an expiry never show up.
func (r *socialAccountRepository) ListExpiring(ctx context.Context, platform models.Platform, before time.Time) ([]*models.SocialAccount, error) {
	query := `SELECT id, user_email, platform, platform_user_id, access_token, expires_at
		FROM social_accounts
		WHERE platform = $1 AND expires_at IS NOT NULL AND expires_at > NOW() AND expires_at < $2
		ORDER BY expires_at`
	rows, err := r.db.QueryContext(ctx, query, platform, before)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		err := rows.Scan(&sa.ID, &sa.UserEmail, &sa.Platform, &sa.PlatformUserID, &sa.AccessToken, &sa.ExpiresAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *socialAccountRepository) CheckByUserEmail(ctx context.Context, accountID int64, userEmail string) (bool, error) {
	query := "SELECT 1 FROM social_accounts WHERE id = $1 AND user_email = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userEmail).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// SetToken swaps the stored token only if it still equals oldAccessToken, so a
// refresh racing with a reconnect never overwrites the newer token.
func (r *socialAccountRepository) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	query := `
		UPDATE social_accounts
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			expires_at = COALESCE($4, expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, oldAccessToken, sa.AccessToken, sa.ExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; account may have been reconnected", "account_id", id)
		return ErrNotFound
	}

	return nil
}
