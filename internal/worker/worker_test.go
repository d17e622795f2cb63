package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/publisher"
	"github.com/maheshrc27/postqueue/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type fakeQueue struct {
	mu       sync.Mutex
	posts    map[int64]*models.ClaimedPost
	pingErr  error
	claimErr error
	markErr  map[int64]error
	claims   int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{posts: map[int64]*models.ClaimedPost{}, markErr: map[int64]error{}}
}

func (q *fakeQueue) add(id int64, platform models.Platform, token string, scheduled time.Time) *models.ClaimedPost {
	sealed, err := utils.EncryptToken(token, secret)
	if err != nil {
		panic(err)
	}
	c := &models.ClaimedPost{
		Post: models.QueuedPost{ID: id, AccountID: id * 10, Content: "post", Status: models.PostStatusPending, ScheduledAt: scheduled},
		Account: models.SocialAccount{
			ID:             id * 10,
			UserEmail:      "shop@example.com",
			Platform:       platform,
			PlatformUserID: "page-1",
			AccessToken:    sealed,
		},
	}
	q.posts[id] = c
	return c
}

func (q *fakeQueue) status(id int64) models.PostStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.posts[id].Post.Status
}

func (q *fakeQueue) Ping(context.Context) error { return q.pingErr }

func (q *fakeQueue) ClaimPending(_ context.Context, at time.Time, limit int) ([]*models.ClaimedPost, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.claims++
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	var out []*models.ClaimedPost
	for _, c := range q.posts {
		if c.Post.Status == models.PostStatusPending && !c.Post.ScheduledAt.After(at) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Post.ScheduledAt.Equal(out[j].Post.ScheduledAt) {
			return out[i].Post.ID < out[j].Post.ID
		}
		return out[i].Post.ScheduledAt.Before(out[j].Post.ScheduledAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id int64, sentAt time.Time) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.markErr[id]; err != nil {
		return false, err
	}
	p := &q.posts[id].Post
	if p.Status != models.PostStatusPending {
		return false, nil
	}
	p.Status = models.PostStatusSent
	p.SentAt = &sentAt
	return true, nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id int64, msg string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.markErr[id]; err != nil {
		return false, err
	}
	p := &q.posts[id].Post
	if p.Status != models.PostStatusPending {
		return false, nil
	}
	p.Status = models.PostStatusFailed
	p.ErrorMessage = &msg
	return true, nil
}

type fakeValidator struct {
	valid map[string]bool
	calls int
}

func (v *fakeValidator) Validate(_ context.Context, token string) (bool, int) {
	v.calls++
	if v.valid[token] {
		return true, 3600
	}
	return false, 0
}

type fakeAudit struct {
	mu        sync.Mutex
	exchanges []*models.TokenExchangeLog
	publishes []*models.PublishLog
}

func (a *fakeAudit) RecordTokenExchange(_ context.Context, l *models.TokenExchangeLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchanges = append(a.exchanges, l)
}

func (a *fakeAudit) RecordPublish(_ context.Context, l *models.PublishLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publishes = append(a.publishes, l)
}

func (a *fakeAudit) TokenExchangeHistory(context.Context, string, models.Platform, int) ([]*models.TokenExchangeLog, error) {
	return a.exchanges, nil
}

func (a *fakeAudit) FailedPublications(context.Context, string, int) ([]*models.PublishLog, error) {
	return nil, nil
}

func (a *fakeAudit) Report(context.Context, int) (*models.AuditReport, error) {
	return &models.AuditReport{}, nil
}

func (a *fakeAudit) publishesFor(id int64) []*models.PublishLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.PublishLog
	for _, l := range a.publishes {
		if l.PostID == id {
			out = append(out, l)
		}
	}
	return out
}

type fakePublisher struct {
	mu      sync.Mutex
	results map[string]publisher.Result
	calls   []publisher.Request
}

func (p *fakePublisher) Publish(_ context.Context, req publisher.Request) publisher.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if res, ok := p.results[req.Message]; ok {
		return res
	}
	return publisher.Result{Success: true, ExternalPostID: "ext-" + req.Message, StatusCode: http.StatusOK}
}

type harness struct {
	q   *fakeQueue
	tv  *fakeValidator
	al  *fakeAudit
	pub *fakePublisher
	w   *Worker
}

func newHarness(t *testing.T, batch int) *harness {
	t.Helper()
	h := &harness{
		q:   newFakeQueue(),
		tv:  &fakeValidator{valid: map[string]bool{"good": true}},
		al:  &fakeAudit{},
		pub: &fakePublisher{results: map[string]publisher.Result{}},
	}
	reg := publisher.NewRegistry()
	reg.Register(models.PlatformFacebook, h.pub)
	reg.Register(models.PlatformInstagram, publisher.NotImplemented(models.PlatformInstagram))
	reg.Register(models.PlatformTikTok, publisher.NotImplemented(models.PlatformTikTok))
	h.w = New(h.q, h.tv, reg, h.al, Config{Interval: time.Hour, BatchSize: batch, SecretKey: secret})
	h.w.now = func() time.Time { return now }
	return h
}

func TestInvalidTokenFailsPost(t *testing.T) {
	h := newHarness(t, 5)
	h.q.add(1, models.PlatformFacebook, "expired", now.Add(-time.Minute))

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusFailed, h.q.status(1))
	assert.Equal(t, "invalid or expired token", *h.q.posts[1].Post.ErrorMessage)
	assert.Empty(t, h.pub.calls)

	logs := h.al.publishesFor(1)
	require.Len(t, logs, 1)
	assert.Equal(t, publisher.CodeInvalidToken, logs[0].ResponseCode)
	assert.Equal(t, models.PublishStatusFailed, logs[0].Status)

	require.Len(t, h.al.exchanges, 1)
	assert.Equal(t, models.TokenStatusInvalid, h.al.exchanges[0].Status)
}

func TestUndecryptableTokenFailsPost(t *testing.T) {
	h := newHarness(t, 5)
	c := h.q.add(1, models.PlatformFacebook, "good", now.Add(-time.Minute))
	c.Account.AccessToken = "not-sealed"

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusFailed, h.q.status(1))
	assert.Zero(t, h.tv.calls)
	assert.Equal(t, publisher.CodeInvalidToken, h.al.publishesFor(1)[0].ResponseCode)
}

func TestSuccessfulPublishMarksSent(t *testing.T) {
	h := newHarness(t, 5)
	h.q.add(1, models.PlatformFacebook, "good", now.Add(-time.Minute))

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusSent, h.q.status(1))
	require.NotNil(t, h.q.posts[1].Post.SentAt)
	assert.Equal(t, now, *h.q.posts[1].Post.SentAt)

	logs := h.al.publishesFor(1)
	require.Len(t, logs, 1)
	assert.Equal(t, models.PublishStatusPublished, logs[0].Status)
	assert.Equal(t, "ext-post", logs[0].ExternalPostID)
	assert.Equal(t, "200", logs[0].ResponseCode)

	require.Len(t, h.al.exchanges, 1)
	assert.Equal(t, models.TokenStatusValid, h.al.exchanges[0].Status)
	require.NotNil(t, h.al.exchanges[0].TokenExpiresAt)
	assert.Equal(t, now.Add(time.Hour), *h.al.exchanges[0].TokenExpiresAt)

	require.Len(t, h.pub.calls, 1)
	assert.Equal(t, "good", h.pub.calls[0].AccessToken)
	assert.Equal(t, "page-1", h.pub.calls[0].AccountExternalID)
}

func TestTerminalPostsAreNeverTouchedAgain(t *testing.T) {
	h := newHarness(t, 5)
	h.q.add(1, models.PlatformFacebook, "good", now.Add(-time.Minute))
	h.q.add(2, models.PlatformFacebook, "expired", now.Add(-time.Minute))

	require.NoError(t, h.w.RunCycle(context.Background()))
	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusSent, h.q.status(1))
	assert.Equal(t, models.PostStatusFailed, h.q.status(2))
	assert.Len(t, h.pub.calls, 1)
	assert.Len(t, h.al.publishesFor(1), 1)
	assert.Len(t, h.al.publishesFor(2), 1)
}

func TestStoreErrorOnOnePostDoesNotStopBatch(t *testing.T) {
	h := newHarness(t, 5)
	h.q.add(1, models.PlatformFacebook, "good", now.Add(-2*time.Minute))
	h.q.add(2, models.PlatformFacebook, "good", now.Add(-time.Minute))
	h.q.markErr[1] = errors.New("connection reset by peer")

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusPending, h.q.status(1))
	assert.Equal(t, models.PostStatusSent, h.q.status(2))
	// the publish of post 1 still happened and is on record
	assert.Len(t, h.al.publishesFor(1), 1)
}

func TestBatchTakesOldestFirst(t *testing.T) {
	h := newHarness(t, 2)
	h.q.add(3, models.PlatformFacebook, "good", now.Add(-1*time.Minute))
	h.q.add(1, models.PlatformFacebook, "good", now.Add(-3*time.Minute))
	h.q.add(2, models.PlatformFacebook, "good", now.Add(-2*time.Minute))
	h.q.add(4, models.PlatformFacebook, "good", now.Add(time.Hour))

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusSent, h.q.status(1))
	assert.Equal(t, models.PostStatusSent, h.q.status(2))
	assert.Equal(t, models.PostStatusPending, h.q.status(3))
	assert.Equal(t, models.PostStatusPending, h.q.status(4))
}

func TestUnimplementedPlatformStaysPending(t *testing.T) {
	h := newHarness(t, 5)
	h.q.add(1, models.PlatformInstagram, "good", now.Add(-3*time.Minute))
	h.q.add(2, models.PlatformTikTok, "good", now.Add(-2*time.Minute))
	h.q.add(3, models.PlatformFacebook, "good", now.Add(-time.Minute))

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusPending, h.q.status(1))
	assert.Equal(t, models.PostStatusPending, h.q.status(2))
	assert.Equal(t, models.PostStatusSent, h.q.status(3))
	assert.Empty(t, h.al.publishesFor(1))
	assert.Empty(t, h.al.publishesFor(2))
	assert.Equal(t, 3, h.tv.calls)
	require.Len(t, h.al.exchanges, 3)
	for _, e := range h.al.exchanges {
		assert.Equal(t, models.TokenStatusValid, e.Status)
	}
}

func TestUnimplementedPlatformWithExpiredTokenFails(t *testing.T) {
	h := newHarness(t, 5)
	h.q.add(1, models.PlatformInstagram, "expired", now.Add(-2*time.Minute))
	h.q.add(2, models.PlatformTikTok, "expired", now.Add(-time.Minute))

	require.NoError(t, h.w.RunCycle(context.Background()))

	for _, id := range []int64{1, 2} {
		assert.Equal(t, models.PostStatusFailed, h.q.status(id))
		assert.Equal(t, "invalid or expired token", *h.q.posts[id].Post.ErrorMessage)
		logs := h.al.publishesFor(id)
		require.Len(t, logs, 1)
		assert.Equal(t, publisher.CodeInvalidToken, logs[0].ResponseCode)
	}
	require.Len(t, h.al.exchanges, 2)
	assert.Equal(t, models.TokenStatusInvalid, h.al.exchanges[0].Status)
}

func TestLongRejectionIsTruncatedOnThePost(t *testing.T) {
	h := newHarness(t, 5)
	c := h.q.add(1, models.PlatformFacebook, "good", now.Add(-time.Minute))
	c.Post.Content = "proxy"
	h.pub.results["proxy"] = publisher.Result{
		ErrorCode:    "502",
		StatusCode:   http.StatusBadGateway,
		ErrorMessage: strings.Repeat("<p>bad gateway</p>", 500),
	}

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusFailed, h.q.status(1))
	stored := *h.q.posts[1].Post.ErrorMessage
	assert.Len(t, stored, publisher.MaxErrorMessageLen)
	assert.True(t, strings.HasPrefix(stored, "<p>bad gateway</p>"))
	assert.Equal(t, models.PublishStatusRejected, h.al.publishesFor(1)[0].Status)
}

func TestUnknownPlatformFails(t *testing.T) {
	h := newHarness(t, 5)
	h.q.add(1, "LinkedIn", "good", now.Add(-time.Minute))

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusFailed, h.q.status(1))
	assert.Equal(t, publisher.CodeUnsupportedPlatform, h.al.publishesFor(1)[0].ResponseCode)
}

func TestTransportFailureIsRecordedAsFailed(t *testing.T) {
	h := newHarness(t, 5)
	c := h.q.add(1, models.PlatformFacebook, "good", now.Add(-time.Minute))
	c.Post.Content = "slow"
	c.Attempts = 2
	h.pub.results["slow"] = publisher.Result{ErrorCode: publisher.CodeTimeout, ErrorMessage: "request timed out"}

	require.NoError(t, h.w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusFailed, h.q.status(1))
	log := h.al.publishesFor(1)[0]
	assert.Equal(t, models.PublishStatusFailed, log.Status)
	assert.Equal(t, publisher.CodeTimeout, log.ResponseCode)
	assert.Equal(t, 2, log.RetryCount)
}

func TestPingFailureAbortsCycle(t *testing.T) {
	h := newHarness(t, 5)
	h.q.pingErr = errors.New("dial tcp: connection refused")

	err := h.w.RunCycle(context.Background())
	assert.Error(t, err)
	assert.Zero(t, h.q.claims)
}

func TestClaimFailureAbortsCycle(t *testing.T) {
	h := newHarness(t, 5)
	h.q.claimErr = errors.New("relation does not exist")

	assert.Error(t, h.w.RunCycle(context.Background()))
}

func TestCancelledContextLeavesPostsPending(t *testing.T) {
	h := newHarness(t, 5)
	h.q.add(1, models.PlatformFacebook, "good", now.Add(-time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.w.RunCycle(ctx))
	assert.Equal(t, models.PostStatusPending, h.q.status(1))
}

func TestRunStopsOnCancelAndWakes(t *testing.T) {
	h := newHarness(t, 5)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		h.q.mu.Lock()
		defer h.q.mu.Unlock()
		return h.q.claims == 1
	}, time.Second, 5*time.Millisecond)

	h.w.Wake()
	assert.Eventually(t, func() bool {
		h.q.mu.Lock()
		defer h.q.mu.Unlock()
		return h.q.claims == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWakeNeverBlocks(t *testing.T) {
	h := newHarness(t, 5)
	for i := 0; i < 10; i++ {
		h.w.Wake()
	}
}

func TestFacebookEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("message") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException"}}`))
			return
		}
		w.Write([]byte(`{"id":"987"}`))
	}))
	defer srv.Close()

	q := newFakeQueue()
	good := q.add(1, models.PlatformFacebook, "good", now.Add(-2*time.Minute))
	good.Post.Content = "hello"
	bad := q.add(2, models.PlatformFacebook, "good", now.Add(-time.Minute))
	bad.Post.Content = "bad"

	al := &fakeAudit{}
	reg := publisher.NewDefaultRegistry(srv.URL)
	w := New(q, &fakeValidator{valid: map[string]bool{"good": true}}, reg, al, Config{SecretKey: secret})
	w.now = func() time.Time { return now }

	require.NoError(t, w.RunCycle(context.Background()))

	assert.Equal(t, models.PostStatusSent, q.status(1))
	sent := al.publishesFor(1)
	require.Len(t, sent, 1)
	assert.Equal(t, models.PublishStatusPublished, sent[0].Status)
	assert.Equal(t, "987", sent[0].ExternalPostID)
	assert.Equal(t, "200", sent[0].ResponseCode)

	assert.Equal(t, models.PostStatusFailed, q.status(2))
	assert.Equal(t, "Invalid parameter", *q.posts[2].Post.ErrorMessage)
	rejected := al.publishesFor(2)
	require.Len(t, rejected, 1)
	assert.Equal(t, models.PublishStatusRejected, rejected[0].Status)
	assert.Equal(t, "400", rejected[0].ResponseCode)
	assert.Equal(t, "OAuthException: Invalid parameter", rejected[0].ErrorDetails)
}

func TestDefaultsApplied(t *testing.T) {
	w := New(newFakeQueue(), &fakeValidator{}, publisher.NewRegistry(), &fakeAudit{}, Config{})
	assert.Equal(t, DefaultInterval, w.cfg.Interval)
	assert.Equal(t, DefaultBatchSize, w.cfg.BatchSize)
}
