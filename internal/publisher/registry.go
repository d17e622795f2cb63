package publisher

import (
	"context"

	"github.com/maheshrc27/postqueue/internal/models"
)

type Registry struct {
	publishers map[models.Platform]Publisher
}

func NewRegistry() *Registry {
	return &Registry{publishers: make(map[models.Platform]Publisher)}
}

// NewDefaultRegistry wires Facebook against graphURL and declares Instagram
// and TikTok as placeholders.
func NewDefaultRegistry(graphURL string) *Registry {
	r := NewRegistry()
	r.Register(models.PlatformFacebook, NewFacebook(graphURL))
	r.Register(models.PlatformInstagram, NotImplemented(models.PlatformInstagram))
	r.Register(models.PlatformTikTok, NotImplemented(models.PlatformTikTok))
	return r
}

func (r *Registry) Register(platform models.Platform, p Publisher) {
	r.publishers[platform] = p
}

// Supports reports whether the platform is known at all.
func (r *Registry) Supports(platform models.Platform) bool {
	_, ok := r.publishers[platform]
	return ok
}

// Implements reports whether the platform has a real publisher behind it.
func (r *Registry) Implements(platform models.Platform) bool {
	p, ok := r.publishers[platform]
	if !ok {
		return false
	}
	_, placeholder := p.(notImplemented)
	return !placeholder
}

func (r *Registry) Publish(ctx context.Context, platform models.Platform, req Request) Result {
	p, ok := r.publishers[platform]
	if !ok {
		return Result{
			ErrorCode:    CodeUnsupportedPlatform,
			ErrorMessage: "unsupported platform",
		}
	}
	return p.Publish(ctx, req)
}
