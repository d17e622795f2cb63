package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/transfer"
	"github.com/maheshrc27/postqueue/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const SessionDuration = 24 * time.Hour

var ErrUnverifiedEmail = errors.New("google account email is not verified")

// AuthService signs users in with Google. The verified email is the only
// identity the rest of the system knows about.
type AuthService interface {
	LoginURL() (string, error)
	LoginCallback(ctx context.Context, code, state string) (token string, email string, err error)
}

type authService struct {
	cfg    config.Config
	oauth  *oauth2.Config
	client *http.Client
}

func NewAuthService(cfg config.Config) AuthService {
	return &authService{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		client: &http.Client{Timeout: graphTimeout},
	}
}

func (s *authService) LoginURL() (string, error) {
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return "", err
	}

	state, err := utils.GenerateToken(s.cfg.SecretKey, "", transfer.PurposeLoginState, oauthStateTTL)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

func (s *authService) LoginCallback(ctx context.Context, code, state string) (string, string, error) {
	if code == "" || state == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return "", "", err
	}

	if _, err := utils.ValidateToken(s.cfg.SecretKey, state, transfer.PurposeLoginState); err != nil {
		return "", "", fmt.Errorf("invalid login state: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}

	userInfo, err := s.userInfo(s.oauth.Client(ctx, token))
	if err != nil {
		return "", "", err
	}
	if !userInfo.VerifiedEmail || userInfo.Email == "" {
		return "", "", ErrUnverifiedEmail
	}

	session, err := utils.GenerateToken(s.cfg.SecretKey, userInfo.Email, transfer.PurposeSession, SessionDuration)
	if err != nil {
		return "", "", err
	}

	return session, userInfo.Email, nil
}

func (s *authService) userInfo(client *http.Client) (*transfer.GoogleUserInfo, error) {
	response, err := client.Get(s.cfg.Google.UserInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching user info: status code %d", response.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}

	return &userInfo, nil
}
