package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/maheshrc27/postqueue/configs"
)

var ErrStorageDisabled = errors.New("media storage is not configured")

// MediaStore keeps generated media somewhere the platforms can fetch it from.
type MediaStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type R2Service struct {
	cfg    config.R2
	client *s3.Client
}

// NewR2Service returns nil when no bucket is configured.
func NewR2Service(ctx context.Context, cfg config.R2) (*R2Service, error) {
	if cfg.BucketName == "" || cfg.AccountID == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})

	return &R2Service{cfg: cfg, client: client}, nil
}

// Upload stores the object and returns the URL it is served from.
func (r *R2Service) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if r == nil {
		return "", ErrStorageDisabled
	}

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return strings.TrimRight(r.cfg.PublicURL, "/") + "/" + key, nil
}
