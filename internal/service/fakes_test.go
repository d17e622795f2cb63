package service

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/repository"
)

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*models.SocialAccount
	nextID   int64
	err      error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: map[int64]*models.SocialAccount{}}
}

func (f *fakeAccounts) Upsert(_ context.Context, sa *models.SocialAccount) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	for id, a := range f.accounts {
		if a.Platform == sa.Platform && a.PlatformUserID == sa.PlatformUserID {
			cp := *sa
			cp.ID = id
			f.accounts[id] = &cp
			return id, nil
		}
	}
	f.nextID++
	cp := *sa
	cp.ID = f.nextID
	f.accounts[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) ListByUserEmail(_ context.Context, email string) ([]*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SocialAccount
	for _, a := range f.accounts {
		if a.UserEmail == email {
			out = append(out, a)
		}
	}
	return out, f.err
}

func (f *fakeAccounts) ListExpiring(_ context.Context, platform models.Platform, before time.Time) ([]*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SocialAccount
	for _, a := range f.accounts {
		if a.Platform == platform && a.ExpiresAt != nil && a.ExpiresAt.Before(before) {
			out = append(out, a)
		}
	}
	return out, f.err
}

func (f *fakeAccounts) CheckByUserEmail(_ context.Context, id int64, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	a, ok := f.accounts[id]
	return ok && a.UserEmail == email, nil
}

func (f *fakeAccounts) SetToken(_ context.Context, id int64, old string, sa *models.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.AccessToken != old {
		return repository.ErrNotFound
	}
	a.AccessToken = sa.AccessToken
	if sa.ExpiresAt != nil {
		a.ExpiresAt = sa.ExpiresAt
	}
	return nil
}

type fakeQueue struct {
	created []*models.QueuedPost
	entries []*models.QueueEntry
	limit   int
	err     error
}

func (f *fakeQueue) Ping(context.Context) error { return nil }

func (f *fakeQueue) Create(_ context.Context, p *models.QueuedPost) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, p)
	return int64(len(f.created)), nil
}

func (f *fakeQueue) GetByID(context.Context, int64) (*models.QueuedPost, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeQueue) ListRecent(_ context.Context, _ string, limit int) ([]*models.QueueEntry, error) {
	f.limit = limit
	return f.entries, f.err
}

func (f *fakeQueue) ClaimPending(context.Context, time.Time, int) ([]*models.ClaimedPost, error) {
	return nil, nil
}

func (f *fakeQueue) MarkSent(context.Context, int64, time.Time) (bool, error) { return false, nil }

func (f *fakeQueue) MarkFailed(context.Context, int64, string) (bool, error) { return false, nil }

type fakeAudit struct {
	mu        sync.Mutex
	exchanges []*models.TokenExchangeLog
}

func (a *fakeAudit) RecordTokenExchange(_ context.Context, l *models.TokenExchangeLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchanges = append(a.exchanges, l)
}

func (a *fakeAudit) RecordPublish(context.Context, *models.PublishLog) {}

func (a *fakeAudit) TokenExchangeHistory(context.Context, string, models.Platform, int) ([]*models.TokenExchangeLog, error) {
	return a.exchanges, nil
}

func (a *fakeAudit) FailedPublications(context.Context, string, int) ([]*models.PublishLog, error) {
	return nil, nil
}

func (a *fakeAudit) Report(context.Context, int) (*models.AuditReport, error) {
	return &models.AuditReport{}, nil
}

func (a *fakeAudit) statuses() []models.TokenStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.TokenStatus
	for _, e := range a.exchanges {
		out = append(out, e.Status)
	}
	return out
}
