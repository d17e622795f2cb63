package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Facebook struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	DialogURL    string
	GraphURL     string
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	UserInfoURL  string
}

type Worker struct {
	Interval        time.Duration
	BatchSize       int
	RefreshSchedule string
	RefreshWindow   time.Duration
}

type Content struct {
	TextURL  string
	ImageURL string
}

type Config struct {
	Facebook    Facebook
	Google      Google
	Worker      Worker
	Content     Content
	PostgresURI string
	RedisURI    string
	FrontendURL string
	Port        string
	R2          R2
	SecretKey   string
	CookieName  string
}

func LoadConfig() *Config {
	return &Config{
		Facebook: Facebook{
			ClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
			ClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("FACEBOOK_REDIRECT_URI", "http://localhost:3000/auth/facebook/callback"),
			DialogURL:    getEnv("FACEBOOK_DIALOG_URL", "https://www.facebook.com/v18.0/dialog/oauth"),
			GraphURL:     getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v18.0"),
		},
		Google: Google{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
			UserInfoURL:  getEnv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v1/userinfo"),
		},
		Worker: Worker{
			Interval:        getEnvDuration("WORKER_INTERVAL", 10*time.Second),
			BatchSize:       getEnvInt("WORKER_BATCH_SIZE", 5),
			RefreshSchedule: getEnv("TOKEN_REFRESH_SCHEDULE", "@every 00h10m00s"),
			RefreshWindow:   getEnvDuration("TOKEN_REFRESH_WINDOW", 72*time.Hour),
		},
		Content: Content{
			TextURL:  getEnv("CONTENT_TEXT_URL", "https://text.pollinations.ai/"),
			ImageURL: getEnv("CONTENT_IMAGE_URL", "https://image.pollinations.ai/prompt/"),
		},
		PostgresURI: getEnv("DATABASE_URL", getEnv("POSTGRES_URI", "")),
		RedisURI:    getEnv("REDIS_URI", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		Port:        getEnv("PORT", "3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "postqueue_session"),
	}
}

var ErrMissingSecretKey = errors.New("SECRET_KEY must be set")

// Validate rejects settings the server cannot run safely with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	return nil
}

// AppAccessToken is the app credential Graph expects on debug_token calls.
func (f Facebook) AppAccessToken() string {
	return f.ClientID + "|" + f.ClientSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
