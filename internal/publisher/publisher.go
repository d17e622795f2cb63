package publisher

import (
	"context"
	"net/http"

	"github.com/maheshrc27/postqueue/internal/models"
)

// Error codes reported when no platform status code applies.
const (
	CodeTimeout             = "TIMEOUT"
	CodeRequestError        = "REQUEST_ERROR"
	CodeUnknownError        = "UNKNOWN_ERROR"
	CodeNotImplemented      = "NOT_IMPLEMENTED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
)

// MaxErrorMessageLen bounds error text kept from a platform response.
const MaxErrorMessageLen = 1000

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 10

type Request struct {
	AccountExternalID string
	AccessToken       string
	Message           string
	MediaURL          string
}

type Result struct {
	Success        bool
	ExternalPostID string
	ErrorMessage   string
	ErrorType      string
	ErrorCode      string
	// StatusCode is the HTTP status the platform answered with, 0 when no
	// response was received.
	StatusCode int
}

// Rejected reports whether the platform itself refused the post.
func (r Result) Rejected() bool {
	return r.StatusCode != 0 && r.StatusCode != http.StatusOK
}

func (r Result) NotImplemented() bool {
	return r.ErrorCode == CodeNotImplemented
}

type Publisher interface {
	Publish(ctx context.Context, req Request) Result
}

// notImplemented stands in for platforms that can be connected but not yet
// published to. It never touches the network.
type notImplemented struct {
	platform models.Platform
}

func (n notImplemented) Publish(ctx context.Context, req Request) Result {
	return Result{
		ErrorCode:    CodeNotImplemented,
		ErrorMessage: string(n.platform) + " publishing is not implemented",
	}
}

func NotImplemented(platform models.Platform) Publisher {
	return notImplemented{platform: platform}
}
