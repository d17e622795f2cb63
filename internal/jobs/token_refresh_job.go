package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postqueue/internal/audit"
	"github.com/maheshrc27/postqueue/internal/metrics"
	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/repository"
	"github.com/maheshrc27/postqueue/internal/service"
	"github.com/maheshrc27/postqueue/pkg/utils"
)

const (
	concurrencyLimit = 10
	runTimeout       = 5 * time.Minute
)

// TokenRefreshJob renews Facebook tokens that expire within the window. It is
// the only writer of stored tokens after an account is connected.
type TokenRefreshJob struct {
	sr     repository.SocialAccountRepository
	fb     service.FacebookService
	al     audit.Logger
	secret string
	window time.Duration
	now    func() time.Time
}

func NewTokenRefreshJob(
	sr repository.SocialAccountRepository,
	fb service.FacebookService,
	al audit.Logger,
	secret string,
	window time.Duration) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:     sr,
		fb:     fb,
		al:     al,
		secret: secret,
		window: window,
		now:    time.Now,
	}
}

// RefreshTokens is the cron entry point.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	c.Run(ctx)
}

func (c *TokenRefreshJob) Run(ctx context.Context) {
	accounts, err := c.sr.ListExpiring(ctx, models.PlatformFacebook, c.now().Add(c.window))
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if len(accounts) == 0 {
		return
	}

	slog.Info("refreshing tokens", slog.Int("accounts", len(accounts)))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.refresh(ctx, acc); err != nil {
				metrics.TokenRefreshes.WithLabelValues("failed").Inc()
				slog.Warn("unable to refresh token",
					slog.Int64("account_id", acc.ID),
					slog.String("error", err.Error()))
				c.al.RecordTokenExchange(ctx, &models.TokenExchangeLog{
					UserEmail:      acc.UserEmail,
					Platform:       acc.Platform,
					AccessToken:    acc.AccessToken,
					Status:         models.TokenStatusFailed,
					ErrorMessage:   err.Error(),
					ErrorCode:      "REFRESH_FAILED",
					PlatformUserID: acc.PlatformUserID,
				})
				return
			}
			metrics.TokenRefreshes.WithLabelValues("refreshed").Inc()
		}(acc)
	}

	wg.Wait()
}

func (c *TokenRefreshJob) refresh(ctx context.Context, acc *models.SocialAccount) error {
	token, err := utils.DecryptToken(acc.AccessToken, c.secret)
	if err != nil {
		return err
	}

	renewed, err := c.fb.ExchangeLongLived(ctx, token)
	if err != nil {
		return err
	}

	sealed, err := utils.EncryptToken(renewed.AccessToken, c.secret)
	if err != nil {
		return err
	}

	obtainedAt := c.now()
	expiresAt := service.GetExpiresAt(obtainedAt, int(renewed.ExpiresIn))

	err = c.sr.SetToken(ctx, acc.ID, acc.AccessToken, &models.SocialAccount{
		AccessToken: sealed,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return err
	}

	c.al.RecordTokenExchange(ctx, &models.TokenExchangeLog{
		UserEmail:       acc.UserEmail,
		Platform:        acc.Platform,
		AccessToken:     sealed,
		Status:          models.TokenStatusSuccess,
		PlatformUserID:  acc.PlatformUserID,
		TokenObtainedAt: &obtainedAt,
		TokenExpiresAt:  expiresAt,
	})
	return nil
}
