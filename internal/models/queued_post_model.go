package models

import "time"

type PostStatus string

const (
	PostStatusPending PostStatus = "pending"
	PostStatusSent    PostStatus = "sent"
	PostStatusFailed  PostStatus = "failed"
)

// Terminal reports whether the worker may no longer touch a post in this status.
func (s PostStatus) Terminal() bool {
	return s == PostStatusSent || s == PostStatusFailed
}

type QueuedPost struct {
	ID           int64      `db:"id" json:"id"`
	AccountID    int64      `db:"account_id" json:"account_id"`
	Content      string     `db:"content" json:"content"`
	MediaURL     *string    `db:"media_url" json:"media_url,omitempty"`
	Status       PostStatus `db:"status" json:"status"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	ScheduledAt  time.Time  `db:"scheduled_at" json:"scheduled_at"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// ClaimedPost is a pending post joined with the account it publishes through.
type ClaimedPost struct {
	Post    QueuedPost
	Account SocialAccount
	// Attempts counts publish audit rows already written for the post.
	Attempts int
}

// QueueEntry is the monitor view of a queued post.
type QueueEntry struct {
	QueuedPost
	Platform Platform `json:"platform"`
}
