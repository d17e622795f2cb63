package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/postqueue/configs"
)

const introspectionTimeout = 10 * time.Second

// TokenValidator asks the platform whether an access token is still usable.
// Any failure to get a clear answer counts as invalid.
type TokenValidator interface {
	Validate(ctx context.Context, accessToken string) (valid bool, expiresIn int)
}

type tokenValidator struct {
	cfg    config.Facebook
	client *http.Client
	now    func() time.Time
}

func NewTokenValidator(cfg config.Facebook) TokenValidator {
	return &tokenValidator{
		cfg:    cfg,
		client: &http.Client{Timeout: introspectionTimeout},
		now:    time.Now,
	}
}

func (tv *tokenValidator) Validate(ctx context.Context, accessToken string) (bool, int) {
	params := url.Values{}
	params.Set("input_token", accessToken)
	params.Set("access_token", tv.cfg.AppAccessToken())
	endpoint := fmt.Sprintf("%s/debug_token?%s", strings.TrimRight(tv.cfg.GraphURL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		slog.Info(err.Error())
		return false, 0
	}

	resp, err := tv.client.Do(req)
	if err != nil {
		slog.Warn("token introspection failed", slog.String("error", err.Error()))
		return false, 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("token introspection rejected", slog.Int("status", resp.StatusCode))
		return false, 0
	}

	var result struct {
		Data struct {
			IsValid   bool  `json:"is_valid"`
			ExpiresAt int64 `json:"expires_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return false, 0
	}

	if !result.Data.IsValid {
		return false, 0
	}
	if result.Data.ExpiresAt == 0 {
		return true, 0
	}

	expiresIn := result.Data.ExpiresAt - tv.now().Unix()
	if expiresIn <= 0 {
		return false, 0
	}
	return true, int(expiresIn)
}
