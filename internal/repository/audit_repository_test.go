package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePublish_EmptyOptionalFieldsAreNull(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)

	mock.ExpectQuery(`(?s)INSERT INTO post_publish_logs .*RETURNING id`).
		WithArgs(int64(1), int64(2), models.PlatformFacebook, nil, models.PublishStatusFailed, "INVALID_TOKEN", "invalid or expired token", 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	id, err := repo.CreatePublish(context.Background(), &models.PublishLog{
		PostID:       1,
		AccountID:    2,
		Platform:     models.PlatformFacebook,
		Status:       models.PublishStatusFailed,
		ResponseCode: "INVALID_TOKEN",
		ErrorDetails: "invalid or expired token",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestCreateTokenExchange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)

	mock.ExpectQuery(`(?s)INSERT INTO token_exchange_logs .*RETURNING id`).
		WithArgs("shop@example.com", models.PlatformFacebook, sql.NullString{}, "tok", models.TokenStatusValid,
			sql.NullString{}, sql.NullString{}, "page-1", nil, nil, "10.0.0.1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	id, err := repo.CreateTokenExchange(context.Background(), &models.TokenExchangeLog{
		UserEmail:      "shop@example.com",
		Platform:       models.PlatformFacebook,
		AccessToken:    "tok",
		Status:         models.TokenStatusValid,
		PlatformUserID: "page-1",
		IPAddress:      "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestPublishStats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)
	since := time.Date(2026, 9, 24, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)FROM post_publish_logs\s+WHERE logged_at >= \$1\s+GROUP BY platform`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"platform", "total", "ok", "failed"}).
			AddRow("Facebook", 10, 7, 3))

	stats, err := repo.PublishStats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, []models.PlatformStats{{Platform: models.PlatformFacebook, Total: 10, Succeeded: 7, Failed: 3}}, stats)
}

func TestListFailedPublications(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)
	logged := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)FROM post_publish_logs l\s+LEFT JOIN social_accounts a ON a.id = l.account_id\s+WHERE l.publish_status IN \('failed', 'rejected'\) AND \(\$1 = '' OR a.user_email = \$1\)`).
		WithArgs("shop@example.com", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "account_id", "platform", "external_post_id",
			"publish_status", "platform_response_code", "error_details", "retry_count", "logged_at"}).
			AddRow(1, 4, 2, "Facebook", "", "rejected", "400", "OAuthException: Invalid parameter", 0, logged))

	logs, err := repo.ListFailedPublications(context.Background(), "shop@example.com", 20)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.PublishStatusRejected, logs[0].Status)
	assert.Equal(t, "400", logs[0].ResponseCode)
}
