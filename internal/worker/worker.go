package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postqueue/internal/audit"
	"github.com/maheshrc27/postqueue/internal/metrics"
	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/publisher"
	"github.com/maheshrc27/postqueue/internal/service"
	"github.com/maheshrc27/postqueue/pkg/utils"
)

const (
	DefaultInterval  = 10 * time.Second
	DefaultBatchSize = 5

	msgInvalidToken        = "invalid or expired token"
	msgUnsupportedPlatform = "unsupported platform"
)

// Queue is the part of the post queue store the worker needs.
type Queue interface {
	Ping(ctx context.Context) error
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]*models.ClaimedPost, error)
	MarkSent(ctx context.Context, postID int64, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, postID int64, errorMessage string) (bool, error)
}

type Config struct {
	Interval  time.Duration
	BatchSize int
	// SecretKey decrypts stored access tokens.
	SecretKey string
}

// Worker drains due posts one at a time. Running more than one Worker
// against the same database can publish a post twice: claims are not leased.
type Worker struct {
	q   Queue
	tv  service.TokenValidator
	reg *publisher.Registry
	al  audit.Logger
	cfg Config

	now  func() time.Time
	wake chan struct{}
}

func New(q Queue, tv service.TokenValidator, reg *publisher.Registry, al audit.Logger, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Worker{
		q:    q,
		tv:   tv,
		reg:  reg,
		al:   al,
		cfg:  cfg,
		now:  time.Now,
		wake: make(chan struct{}, 1),
	}
}

// Wake starts the next cycle without waiting for the interval. It never blocks.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("worker started",
		slog.Duration("interval", w.cfg.Interval),
		slog.Int("batch_size", w.cfg.BatchSize))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped")
			return
		case <-timer.C:
		case <-w.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if ctx.Err() != nil {
			slog.Info("worker stopped")
			return
		}

		if err := w.RunCycle(ctx); err != nil {
			slog.Error("worker cycle aborted", slog.String("error", err.Error()))
		}
		timer.Reset(w.cfg.Interval)
	}
}

// RunCycle claims one batch and processes it. Only store failures before
// processing starts are returned; per-post problems are logged.
func (w *Worker) RunCycle(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordCycle(time.Since(start), err) }()

	if err := w.q.Ping(ctx); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}

	claimed, err := w.q.ClaimPending(ctx, w.now(), w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim pending posts: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}

	metrics.PostsClaimed.Add(float64(len(claimed)))
	slog.Info("processing posts", slog.Int("count", len(claimed)))

	for _, c := range claimed {
		if ctx.Err() != nil {
			slog.Info("cycle interrupted, remaining posts stay pending")
			return nil
		}
		if err := w.process(ctx, c); err != nil {
			metrics.RecordPost(string(c.Account.Platform), "error")
			slog.Error("post not processed",
				slog.Int64("post_id", c.Post.ID),
				slog.String("error", err.Error()))
		}
	}

	return nil
}

func (w *Worker) process(ctx context.Context, c *models.ClaimedPost) error {
	platform := c.Account.Platform
	log := slog.With(
		slog.Int64("post_id", c.Post.ID),
		slog.Int64("account_id", c.Account.ID),
		slog.String("platform", string(platform)))

	if !w.reg.Supports(platform) {
		log.Warn("unsupported platform")
		return w.fail(ctx, c, msgUnsupportedPlatform+": "+string(platform), &models.PublishLog{
			Status:       models.PublishStatusFailed,
			ResponseCode: publisher.CodeUnsupportedPlatform,
			ErrorDetails: msgUnsupportedPlatform,
		})
	}

	token, ok := w.validToken(ctx, c)
	if !ok {
		log.Warn("token rejected")
		return w.fail(ctx, c, msgInvalidToken, &models.PublishLog{
			Status:       models.PublishStatusFailed,
			ResponseCode: publisher.CodeInvalidToken,
			ErrorDetails: msgInvalidToken,
		})
	}

	req := publisher.Request{
		AccountExternalID: c.Account.PlatformUserID,
		AccessToken:       token,
		Message:           c.Post.Content,
	}
	if c.Post.MediaURL != nil {
		req.MediaURL = *c.Post.MediaURL
	}

	start := time.Now()
	res := w.reg.Publish(ctx, platform, req)
	metrics.RecordPublish(string(platform), time.Since(start))

	switch {
	case res.NotImplemented():
		log.Info("publishing not implemented for platform, post left pending")
		metrics.RecordPost(string(platform), "skipped")
		return nil
	case res.Success:
		return w.sent(ctx, c, res, log)
	}

	log.Warn("publish failed",
		slog.String("code", res.ErrorCode),
		slog.String("type", res.ErrorType),
		slog.String("error", res.ErrorMessage))

	entry := &models.PublishLog{
		Status:       models.PublishStatusFailed,
		ResponseCode: res.ErrorCode,
		ErrorDetails: res.ErrorMessage,
	}
	if res.Rejected() {
		entry.Status = models.PublishStatusRejected
		if res.ErrorType != "" {
			entry.ErrorDetails = res.ErrorType + ": " + res.ErrorMessage
		}
	}
	return w.fail(ctx, c, res.ErrorMessage, entry)
}

// validToken decrypts the stored token and asks the platform about it. Both
// outcomes are written to the token audit trail.
func (w *Worker) validToken(ctx context.Context, c *models.ClaimedPost) (string, bool) {
	token, err := utils.DecryptToken(c.Account.AccessToken, w.cfg.SecretKey)
	if err != nil {
		w.recordValidation(ctx, c, false, 0)
		return "", false
	}

	valid, expiresIn := w.tv.Validate(ctx, token)
	w.recordValidation(ctx, c, valid, expiresIn)
	return token, valid
}

func (w *Worker) recordValidation(ctx context.Context, c *models.ClaimedPost, valid bool, expiresIn int) {
	metrics.RecordValidation(valid)

	entry := &models.TokenExchangeLog{
		UserEmail:      c.Account.UserEmail,
		Platform:       c.Account.Platform,
		AccessToken:    c.Account.AccessToken,
		Status:         models.TokenStatusInvalid,
		PlatformUserID: c.Account.PlatformUserID,
	}
	if valid {
		entry.Status = models.TokenStatusValid
		entry.TokenExpiresAt = service.GetExpiresAt(w.now(), expiresIn)
	}
	w.al.RecordTokenExchange(ctx, entry)
}

func (w *Worker) sent(ctx context.Context, c *models.ClaimedPost, res publisher.Result, log *slog.Logger) error {
	changed, err := w.q.MarkSent(ctx, c.Post.ID, w.now())

	// The post is live on the platform whatever happened to the row.
	w.al.RecordPublish(ctx, &models.PublishLog{
		PostID:         c.Post.ID,
		AccountID:      c.Account.ID,
		Platform:       c.Account.Platform,
		ExternalPostID: res.ExternalPostID,
		Status:         models.PublishStatusPublished,
		ResponseCode:   "200",
		RetryCount:     c.Attempts,
	})

	if err != nil {
		return fmt.Errorf("mark sent after publishing %s: %w", res.ExternalPostID, err)
	}
	if !changed {
		log.Warn("post was no longer pending when marked sent", slog.String("external_post_id", res.ExternalPostID))
	}

	metrics.RecordPost(string(c.Account.Platform), "sent")
	log.Info("post published", slog.String("external_post_id", res.ExternalPostID))
	return nil
}

func (w *Worker) fail(ctx context.Context, c *models.ClaimedPost, message string, entry *models.PublishLog) error {
	changed, err := w.q.MarkFailed(ctx, c.Post.ID, utils.Truncate(message, publisher.MaxErrorMessageLen))

	entry.PostID = c.Post.ID
	entry.AccountID = c.Account.ID
	entry.Platform = c.Account.Platform
	entry.RetryCount = c.Attempts
	w.al.RecordPublish(ctx, entry)

	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if !changed {
		return errors.New("post was no longer pending when marked failed")
	}

	metrics.RecordPost(string(c.Account.Platform), "failed")
	return nil
}
