package audit

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/repository"
	"github.com/maheshrc27/postqueue/pkg/utils"
)

const (
	maxCodeLen         = 100
	maxTokenLen        = 200
	maxErrorLen        = 500
	maxErrorDetailsLen = 1000

	defaultHistoryLimit = 50
	defaultFailedLimit  = 20
	maxListLimit        = 100
)

// Logger records token and publish events. Writes are best effort: a failed
// insert is logged and never reaches the caller.
type Logger interface {
	RecordTokenExchange(ctx context.Context, l *models.TokenExchangeLog)
	RecordPublish(ctx context.Context, l *models.PublishLog)
	TokenExchangeHistory(ctx context.Context, userEmail string, platform models.Platform, limit int) ([]*models.TokenExchangeLog, error)
	FailedPublications(ctx context.Context, userEmail string, limit int) ([]*models.PublishLog, error)
	Report(ctx context.Context, days int) (*models.AuditReport, error)
}

type logger struct {
	ar  repository.AuditRepository
	ip  string
	now func() time.Time
}

func NewLogger(ar repository.AuditRepository) Logger {
	return &logger{
		ar:  ar,
		ip:  LocalAddr(),
		now: time.Now,
	}
}

func (l *logger) RecordTokenExchange(ctx context.Context, e *models.TokenExchangeLog) {
	e.AuthorizationCode = utils.Truncate(e.AuthorizationCode, maxCodeLen)
	e.AccessToken = utils.Truncate(e.AccessToken, maxTokenLen)
	e.ErrorMessage = utils.Truncate(e.ErrorMessage, maxErrorLen)
	if e.IPAddress == "" {
		e.IPAddress = l.ip
	}

	if _, err := l.ar.CreateTokenExchange(ctx, e); err != nil {
		slog.Error("audit: token exchange not recorded",
			slog.String("platform", string(e.Platform)),
			slog.String("status", string(e.Status)),
			slog.String("error", err.Error()))
	}
}

func (l *logger) RecordPublish(ctx context.Context, e *models.PublishLog) {
	e.ErrorDetails = utils.Truncate(e.ErrorDetails, maxErrorDetailsLen)

	if _, err := l.ar.CreatePublish(ctx, e); err != nil {
		slog.Error("audit: publish event not recorded",
			slog.Int64("post_id", e.PostID),
			slog.String("status", string(e.Status)),
			slog.String("error", err.Error()))
	}
}

func (l *logger) TokenExchangeHistory(ctx context.Context, userEmail string, platform models.Platform, limit int) ([]*models.TokenExchangeLog, error) {
	limit = clampLimit(limit, defaultHistoryLimit)
	return l.ar.ListTokenExchanges(ctx, userEmail, platform, limit)
}

func (l *logger) FailedPublications(ctx context.Context, userEmail string, limit int) ([]*models.PublishLog, error) {
	limit = clampLimit(limit, defaultFailedLimit)
	return l.ar.ListFailedPublications(ctx, userEmail, limit)
}

// Report aggregates the last days of audit rows per platform.
func (l *logger) Report(ctx context.Context, days int) (*models.AuditReport, error) {
	if days <= 0 {
		days = 7
	}
	now := l.now()
	since := now.AddDate(0, 0, -days)

	tokens, err := l.ar.TokenExchangeStats(ctx, since)
	if err != nil {
		return nil, err
	}

	publications, err := l.ar.PublishStats(ctx, since)
	if err != nil {
		return nil, err
	}

	return &models.AuditReport{
		TokenExchanges: tokens,
		Publications:   publications,
		PeriodDays:     days,
		GeneratedAt:    now,
	}, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxListLimit)
}

// LocalAddr returns the first non-loopback IPv4 address of this host, or
// 0.0.0.0 when none can be found.
func LocalAddr() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "0.0.0.0"
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "0.0.0.0"
}
