package service

import (
	"context"
	"errors"

	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/repository"
)

var ErrConnectUnavailable = errors.New("connecting this platform is not available")

type PlatformService interface {
	GetAuthURL(ctx context.Context, platform models.Platform, userEmail string) (string, error)
	List(ctx context.Context, userEmail string) ([]*models.SocialAccount, error)
}

type platformService struct {
	fb FacebookService
	sa repository.SocialAccountRepository
}

func NewPlatformService(fb FacebookService, sa repository.SocialAccountRepository) PlatformService {
	return &platformService{
		fb: fb,
		sa: sa,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platform models.Platform, userEmail string) (string, error) {
	switch platform {
	case models.PlatformFacebook:
		return s.fb.AuthURL(ctx, userEmail)
	case models.PlatformInstagram, models.PlatformTikTok:
		return "", ErrConnectUnavailable
	default:
		return "", errors.New("unsupported platform")
	}
}

func (s *platformService) List(ctx context.Context, userEmail string) ([]*models.SocialAccount, error) {
	accounts, err := s.sa.ListByUserEmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*models.SocialAccount{}
	}
	return accounts, nil
}
