package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/repository"
	"github.com/maheshrc27/postqueue/internal/transfer"
)

const (
	maxContentLength = 63206
	defaultListLimit = 10
	maxListLimit     = 100
)

var (
	ErrInvalidPost     = errors.New("invalid post")
	ErrAccountNotFound = errors.New("account not found")
)

// PostNotifier is told about new submissions so publishing can start early.
type PostNotifier interface {
	PostSubmitted(ctx context.Context, postID int64, scheduledAt time.Time) error
}

type PostService interface {
	Submit(ctx context.Context, userEmail string, ps *transfer.PostSubmission) (int64, error)
	ListRecent(ctx context.Context, userEmail string, limit int) ([]*models.QueueEntry, error)
}

type postService struct {
	pq  repository.PostQueueRepository
	ac  repository.SocialAccountRepository
	n   PostNotifier
	now func() time.Time
}

// NewPostService builds the submission service. n may be nil.
func NewPostService(pq repository.PostQueueRepository, ac repository.SocialAccountRepository, n PostNotifier) PostService {
	return &postService{
		pq:  pq,
		ac:  ac,
		n:   n,
		now: time.Now,
	}
}

func (s *postService) Submit(ctx context.Context, userEmail string, ps *transfer.PostSubmission) (int64, error) {
	if ps == nil {
		err := fmt.Errorf("%w: post submission data is nil", ErrInvalidPost)
		slog.Info(err.Error())
		return 0, err
	}

	content := strings.TrimSpace(ps.Content)
	if content == "" {
		return 0, fmt.Errorf("%w: content cannot be empty", ErrInvalidPost)
	}
	if len(content) > maxContentLength {
		return 0, fmt.Errorf("%w: content is longer than %d bytes", ErrInvalidPost, maxContentLength)
	}

	scheduledAt, err := s.parseSchedule(ps.ScheduledAt)
	if err != nil {
		return 0, err
	}

	var mediaURL *string
	if m := strings.TrimSpace(ps.MediaURL); m != "" {
		u, err := url.Parse(m)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return 0, fmt.Errorf("%w: media_url must be an http(s) URL", ErrInvalidPost)
		}
		mediaURL = &m
	}

	owned, err := s.ac.CheckByUserEmail(ctx, ps.AccountID, userEmail)
	if err != nil {
		return 0, err
	}
	if !owned {
		return 0, ErrAccountNotFound
	}

	id, err := s.pq.Create(ctx, &models.QueuedPost{
		AccountID:   ps.AccountID,
		Content:     content,
		MediaURL:    mediaURL,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		return 0, err
	}

	if s.n != nil {
		if err := s.n.PostSubmitted(ctx, id, scheduledAt); err != nil {
			slog.Warn("post submitted notification failed", slog.Int64("post_id", id), slog.String("error", err.Error()))
		}
	}

	return id, nil
}

// parseSchedule accepts RFC 3339 or the form input layout. Empty means now.
func (s *postService) parseSchedule(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return s.now().UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid scheduled time format", ErrInvalidPost)
	}
	return t.UTC(), nil
}

func (s *postService) ListRecent(ctx context.Context, userEmail string, limit int) ([]*models.QueueEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.pq.ListRecent(ctx, userEmail, limit)
}
