package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/audit"
	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/repository"
	"github.com/maheshrc27/postqueue/internal/transfer"
	"github.com/maheshrc27/postqueue/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const (
	oauthStateTTL   = 10 * time.Minute
	graphTimeout    = 15 * time.Second
	facebookScopes  = "pages_show_list,pages_read_engagement,pages_manage_posts"
	errCodeExchange = "EXCHANGE_FAILED"
	errCodeNoPages  = "NO_PAGES"
)

var ErrNoPages = errors.New("no manageable facebook pages on this account")

type FacebookService interface {
	AuthURL(ctx context.Context, userEmail string) (string, error)
	Callback(ctx context.Context, code, state, ipAddress string) (*transfer.ConnectResult, error)
	ExchangeLongLived(ctx context.Context, accessToken string) (*transfer.FacebookToken, error)
}

type facebookService struct {
	cfg    config.Config
	oauth  *oauth2.Config
	sa     repository.SocialAccountRepository
	al     audit.Logger
	client *http.Client
	now    func() time.Time
}

func NewFacebookService(cfg config.Config, sa repository.SocialAccountRepository, al audit.Logger) FacebookService {
	endpoint := facebook.Endpoint
	endpoint.AuthURL = cfg.Facebook.DialogURL
	endpoint.TokenURL = strings.TrimRight(cfg.Facebook.GraphURL, "/") + "/oauth/access_token"

	return &facebookService{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.Facebook.ClientID,
			ClientSecret: cfg.Facebook.ClientSecret,
			RedirectURL:  cfg.Facebook.RedirectURI,
			Scopes:       strings.Split(facebookScopes, ","),
			Endpoint:     endpoint,
		},
		sa:     sa,
		al:     al,
		client: &http.Client{Timeout: graphTimeout},
		now:    time.Now,
	}
}

// AuthURL builds the OAuth dialog URL. The state carries the caller's email
// as a short lived signed token.
func (s *facebookService) AuthURL(ctx context.Context, userEmail string) (string, error) {
	if s.oauth.ClientID == "" || s.oauth.RedirectURL == "" {
		err := errors.New("facebook OAuth configuration is incomplete")
		slog.Info(err.Error())
		return "", err
	}

	state, err := utils.GenerateToken(s.cfg.SecretKey, userEmail, transfer.PurposeOAuthState, oauthStateTTL)
	if err != nil {
		return "", err
	}

	return s.oauth.AuthCodeURL(state), nil
}

// Callback trades the authorization code for page tokens and stores one
// account per page. Every step is mirrored in the token exchange audit trail.
func (s *facebookService) Callback(ctx context.Context, code, state, ipAddress string) (*transfer.ConnectResult, error) {
	if code == "" || state == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return nil, err
	}

	claims, err := utils.ValidateToken(s.cfg.SecretKey, state, transfer.PurposeOAuthState)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth state: %w", err)
	}
	email := claims.Email

	s.al.RecordTokenExchange(ctx, &models.TokenExchangeLog{
		UserEmail:         email,
		Platform:          models.PlatformFacebook,
		AuthorizationCode: code,
		Status:            models.TokenStatusPending,
		IPAddress:         ipAddress,
	})

	fail := func(err error, errCode string) (*transfer.ConnectResult, error) {
		s.al.RecordTokenExchange(ctx, &models.TokenExchangeLog{
			UserEmail:         email,
			Platform:          models.PlatformFacebook,
			AuthorizationCode: code,
			Status:            models.TokenStatusFailed,
			ErrorMessage:      err.Error(),
			ErrorCode:         errCode,
			IPAddress:         ipAddress,
		})
		return nil, err
	}

	token, err := s.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, s.client), code)
	if err != nil {
		slog.Info(err.Error())
		errCode := errCodeExchange
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			errCode = re.ErrorCode
		}
		return fail(err, errCode)
	}

	longLived, err := s.ExchangeLongLived(ctx, token.AccessToken)
	if err != nil {
		return fail(err, errCodeExchange)
	}

	var pages transfer.FacebookPages
	if err := s.graphGet(ctx, "/me/accounts", url.Values{"access_token": {longLived.AccessToken}}, &pages); err != nil {
		return fail(err, errCodeExchange)
	}
	if len(pages.Data) == 0 {
		return fail(ErrNoPages, errCodeNoPages)
	}

	obtainedAt := s.now()
	var expiresAt *time.Time
	if longLived.ExpiresIn > 0 {
		expiresAt = &longLived.ExpiresAt
	}

	result := &transfer.ConnectResult{Pages: len(pages.Data)}
	for _, page := range pages.Data {
		sealed, err := utils.EncryptToken(page.AccessToken, s.cfg.SecretKey)
		if err != nil {
			return fail(err, errCodeExchange)
		}

		id, err := s.sa.Upsert(ctx, &models.SocialAccount{
			UserEmail:      email,
			Platform:       models.PlatformFacebook,
			PlatformUserID: page.ID,
			AccessToken:    sealed,
			ExpiresAt:      expiresAt,
		})
		if err != nil {
			return fail(err, errCodeExchange)
		}
		result.AccountIDs = append(result.AccountIDs, id)

		s.al.RecordTokenExchange(ctx, &models.TokenExchangeLog{
			UserEmail:         email,
			Platform:          models.PlatformFacebook,
			AuthorizationCode: code,
			AccessToken:       sealed,
			Status:            models.TokenStatusSuccess,
			PlatformUserID:    page.ID,
			TokenObtainedAt:   &obtainedAt,
			TokenExpiresAt:    expiresAt,
			IPAddress:         ipAddress,
		})
	}

	slog.Info("facebook pages connected", slog.String("user_email", email), slog.Int("pages", len(pages.Data)))
	return result, nil
}

// ExchangeLongLived swaps a token for a long lived one. Long lived tokens can
// be exchanged again before they expire, which is how refresh works.
func (s *facebookService) ExchangeLongLived(ctx context.Context, accessToken string) (*transfer.FacebookToken, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", s.cfg.Facebook.ClientID)
	params.Set("client_secret", s.cfg.Facebook.ClientSecret)
	params.Set("fb_exchange_token", accessToken)

	var token transfer.FacebookToken
	if err := s.graphGet(ctx, "/oauth/access_token", params, &token); err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("failed to get long-lived token: empty response")
	}
	if token.ExpiresIn > 0 {
		token.ExpiresAt = s.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return &token, nil
}

func (s *facebookService) graphGet(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s%s?%s", strings.TrimRight(s.cfg.Facebook.GraphURL, "/"), path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var ge transfer.GraphErrorResponse
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			return fmt.Errorf("graph %s: %s (%s)", path, ge.Error.Message, ge.Error.Type)
		}
		return fmt.Errorf("graph %s: status code %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}
