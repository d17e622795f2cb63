package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/h2non/filetype"
	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	textAttempts      = 3
	contentTimeout    = 20 * time.Second
	maxImageSize      = 10 << 20
	imageSize         = 1080
	textPromptPattern = "Write a creative, professional social media post about: %s. Include emojis and hashtags."
)

var (
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
	ErrRateLimited   = errors.New("content generator is busy, try again later")
	ErrNotAnImage    = errors.New("generated file is not an image")
	ErrImageTooLarge = errors.New("generated image is too large")
)

type ContentService interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	ImageURL(prompt string) string
	GenerateImage(ctx context.Context, prompt string, store bool) (*transfer.GeneratedImage, error)
}

type contentService struct {
	cfg    config.Content
	ms     MediaStore
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
	seed   func() uint32
}

// NewContentService wires the generators. ms may be nil, in which case
// images are only ever returned as generator URLs.
func NewContentService(cfg config.Content, ms MediaStore) ContentService {
	return &contentService{
		cfg:    cfg,
		ms:     ms,
		client: &http.Client{Timeout: contentTimeout},
		sleep:  sleepCtx,
		seed:   rand.Uint32,
	}
}

// GenerateText asks the text generator for post copy. A busy generator (429)
// is retried with a growing pause; other failures are returned at once.
func (s *contentService) GenerateText(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	endpoint := s.cfg.TextURL + url.PathEscape(fmt.Sprintf(textPromptPattern, prompt))

	for attempt := 0; attempt < textAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			slog.Info(err.Error())
			return "", fmt.Errorf("text generation failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := time.Duration(attempt+1) * 3 * time.Second
			slog.Warn("text generator busy", slog.Int("attempt", attempt+1), slog.Duration("wait", wait))
			if err := s.sleep(ctx, wait); err != nil {
				return "", err
			}
		case resp.StatusCode != http.StatusOK:
			return "", fmt.Errorf("text generation failed: status code %d", resp.StatusCode)
		default:
			return strings.TrimSpace(string(body)), nil
		}
	}

	return "", ErrRateLimited
}

// ImageURL returns a generator URL for a square image. Each call uses a new
// seed so the same prompt yields different images.
func (s *contentService) ImageURL(prompt string) string {
	params := url.Values{}
	params.Set("width", fmt.Sprint(imageSize))
	params.Set("height", fmt.Sprint(imageSize))
	params.Set("seed", fmt.Sprint(s.seed()))
	params.Set("nologo", "true")
	return s.cfg.ImageURL + url.PathEscape(prompt) + "?" + params.Encode()
}

// GenerateImage returns the generator URL and, when asked, downloads the
// image and copies it into the media store.
func (s *contentService) GenerateImage(ctx context.Context, prompt string, store bool) (*transfer.GeneratedImage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	img := &transfer.GeneratedImage{URL: s.ImageURL(prompt)}
	if !store {
		return img, nil
	}
	if s.ms == nil {
		return nil, ErrStorageDisabled
	}

	data, err := s.download(ctx, img.URL)
	if err != nil {
		return nil, err
	}

	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return nil, ErrNotAnImage
	}

	key := fmt.Sprintf("generated/%s.%s", gonanoid.Must(), kind.Extension)
	stored, err := s.ms.Upload(ctx, key, data, kind.MIME.Value)
	if err != nil {
		return nil, err
	}
	img.StoredURL = stored

	return img, nil
}

func (s *contentService) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed: status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageSize {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
