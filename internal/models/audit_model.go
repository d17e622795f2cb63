package models

import "time"

type TokenStatus string

const (
	TokenStatusPending TokenStatus = "pending"
	TokenStatusSuccess TokenStatus = "success"
	TokenStatusFailed  TokenStatus = "failed"
	TokenStatusValid   TokenStatus = "valid"
	TokenStatusInvalid TokenStatus = "invalid"
)

type PublishStatus string

const (
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
	PublishStatusRejected  PublishStatus = "rejected"
)

type TokenExchangeLog struct {
	ID                int64       `db:"id" json:"id"`
	UserEmail         string      `db:"user_email" json:"user_email"`
	Platform          Platform    `db:"platform" json:"platform"`
	AuthorizationCode string      `db:"authorization_code" json:"-"`
	AccessToken       string      `db:"access_token" json:"-"`
	Status            TokenStatus `db:"token_status" json:"token_status"`
	ErrorMessage      string      `db:"error_message" json:"error_message,omitempty"`
	ErrorCode         string      `db:"error_code" json:"error_code,omitempty"`
	PlatformUserID    string      `db:"platform_user_id" json:"platform_user_id,omitempty"`
	TokenObtainedAt   *time.Time  `db:"token_obtained_at" json:"token_obtained_at,omitempty"`
	TokenExpiresAt    *time.Time  `db:"token_expires_at" json:"token_expires_at,omitempty"`
	ExchangedAt       time.Time   `db:"exchange_timestamp" json:"exchange_timestamp"`
	IPAddress         string      `db:"ip_address" json:"ip_address"`
}

type PublishLog struct {
	ID             int64         `db:"id" json:"id"`
	PostID         int64         `db:"post_id" json:"post_id"`
	AccountID      int64         `db:"account_id" json:"account_id"`
	Platform       Platform      `db:"platform" json:"platform"`
	ExternalPostID string        `db:"external_post_id" json:"external_post_id,omitempty"`
	Status         PublishStatus `db:"publish_status" json:"publish_status"`
	ResponseCode   string        `db:"platform_response_code" json:"platform_response_code"`
	ErrorDetails   string        `db:"error_details" json:"error_details,omitempty"`
	RetryCount     int           `db:"retry_count" json:"retry_count"`
	LoggedAt       time.Time     `db:"logged_at" json:"logged_at"`
}

type PlatformStats struct {
	Platform  Platform `json:"platform"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
}

type AuditReport struct {
	TokenExchanges []PlatformStats `json:"token_exchanges"`
	Publications   []PlatformStats `json:"publications"`
	PeriodDays     int             `json:"period_days"`
	GeneratedAt    time.Time       `json:"generated_at"`
}
