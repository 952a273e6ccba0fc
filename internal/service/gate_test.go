package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/limiter"
	"github.com/and161185/authgate/internal/metrics"
	"github.com/and161185/authgate/internal/model"
)

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, time.Minute, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type gateFixture struct {
	gate    *Gate
	users   *fakeUsers
	lim     *fakeLimiter
	clock   *testClock
	metrics *metrics.Auth
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	users := newFakeUsers(t)
	authn, err := NewAuthenticator(users, fastArgon)
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	clk := newTestClock()
	tokens, err := NewTokenService(testKey, 15*time.Minute, WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	lim := &fakeLimiter{allowOK: true}
	m := metrics.NewAuth(prometheus.NewRegistry())
	return &gateFixture{
		gate:    NewGate(users, authn, tokens, lim, m, zaptest.NewLogger(t)),
		users:   users,
		lim:     lim,
		clock:   clk,
		metrics: m,
	}
}

func TestGate_LoginThenAuthorize(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)
	ctx := context.Background()

	tok, err := f.gate.AuthorizeLogin(ctx, model.Credentials{Username: "user1", Password: "password1"}, "127.0.0.1")
	if err != nil {
		t.Fatalf("AuthorizeLogin: %v", err)
	}
	if tok.AccessToken == "" {
		t.Fatalf("empty token")
	}
	if f.lim.successCalls != 1 {
		t.Fatalf("expected limiter Success to be called")
	}

	sub, err := f.gate.AuthorizeRequest(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("AuthorizeRequest: %v", err)
	}
	if sub != (model.Subject{ID: 1, Username: "user1"}) {
		t.Fatalf("subject=%+v", sub)
	}

	if got := testutil.ToFloat64(f.metrics.Logins.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Fatalf("ok logins=%v", got)
	}
	if got := testutil.ToFloat64(f.metrics.Verifications.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Fatalf("ok verifications=%v", got)
	}
}

func TestGate_WrongPassword_NoToken(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)

	tok, err := f.gate.AuthorizeLogin(context.Background(), model.Credentials{Username: "user1", Password: "wrong"}, "127.0.0.1")
	if !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	if tok.AccessToken != "" {
		t.Fatalf("no token must be issued on failure")
	}
	if f.lim.failureCalls != 1 {
		t.Fatalf("failure must be recorded")
	}
}

func TestGate_MissingFields(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)

	for _, c := range []model.Credentials{{}, {Username: "user1"}, {Password: "password1"}} {
		if _, err := f.gate.AuthorizeLogin(context.Background(), c, ""); !errors.Is(err, errs.ErrInvalidRequest) {
			t.Fatalf("%+v: want ErrInvalidRequest, got %v", c, err)
		}
	}
	if f.lim.allowCalls != 0 {
		t.Fatalf("limiter must not be consulted for invalid requests")
	}
}

func TestGate_RateLimiter(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)
	ctx := context.Background()
	good := model.Credentials{Username: "user1", Password: "password1"}

	f.lim.allowErr = errors.New("lim-err")
	if _, err := f.gate.AuthorizeLogin(ctx, good, ""); err == nil || errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want limiter error propagate, got %v", err)
	}
	f.lim.allowErr = nil

	f.lim.allowOK = false
	if _, err := f.gate.AuthorizeLogin(ctx, good, ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	f.lim.allowOK = true

	f.lim.failBlocked = true
	if _, err := f.gate.AuthorizeLogin(ctx, model.Credentials{Username: "user1", Password: "bad"}, ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}

	f.lim.failBlocked = false
	f.lim.failErr = errors.New("db down")
	if _, err := f.gate.AuthorizeLogin(ctx, model.Credentials{Username: "user1", Password: "bad"}, ""); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials when failure recording fails, got %v", err)
	}
}

func TestGate_WithMemoryLimiter(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)
	mem := limiter.NewMemory(limiter.Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})
	t.Cleanup(mem.Close)
	g := NewGate(f.users, f.gate.authn, f.gate.tokens, mem, nil, nil)
	ctx := context.Background()

	bad := model.Credentials{Username: "user2", Password: "nope"}
	if _, err := g.AuthorizeLogin(ctx, bad, "10.0.0.9"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("first failure: %v", err)
	}
	if _, err := g.AuthorizeLogin(ctx, bad, "10.0.0.9"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("second failure must block: %v", err)
	}
	good := model.Credentials{Username: "user2", Password: "password2"}
	if _, err := g.AuthorizeLogin(ctx, good, "10.0.0.9"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("blocked pair must stay blocked: %v", err)
	}
	if _, err := g.AuthorizeLogin(ctx, good, "10.0.0.10"); err != nil {
		t.Fatalf("other client must log in: %v", err)
	}
}

func TestGate_AuthorizeRequest_Failures(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)
	ctx := context.Background()

	if _, err := f.gate.AuthorizeRequest(ctx, "garbage-not-a-token"); !errors.Is(err, errs.ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed, got %v", err)
	}

	tok, err := f.gate.AuthorizeLogin(ctx, model.Credentials{Username: "user1", Password: "password1"}, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.gate.AuthorizeRequest(ctx, flipSignatureByte(t, tok.AccessToken)); !errors.Is(err, errs.ErrTokenInvalidSignature) {
		t.Fatalf("want ErrTokenInvalidSignature, got %v", err)
	}

	f.clock.Advance(15*time.Minute + time.Second)
	if _, err := f.gate.AuthorizeRequest(ctx, tok.AccessToken); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.Verifications.WithLabelValues(metrics.ResultExpired)); got != 1 {
		t.Fatalf("expired verifications=%v", got)
	}
}

func TestGate_UnknownSubject(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)
	ctx := context.Background()

	tok, err := f.gate.AuthorizeLogin(ctx, model.Credentials{Username: "user2", Password: "password2"}, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	f.users.remove("user2")

	if _, err := f.gate.AuthorizeRequest(ctx, tok.AccessToken); !errors.Is(err, errs.ErrUnknownSubject) {
		t.Fatalf("want ErrUnknownSubject, got %v", err)
	}

	f.users.getErr = errors.New("backend down")
	if _, err := f.gate.AuthorizeRequest(ctx, tok.AccessToken); err == nil || errors.Is(err, errs.ErrUnknownSubject) {
		t.Fatalf("want wrapped backend error, got %v", err)
	}
}
