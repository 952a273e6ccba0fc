package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/limiter"
	"github.com/and161185/authgate/internal/metrics"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/repository"
)

// AccessGate defines the operations transports depend on.
type AccessGate interface {
	// AuthorizeLogin authenticates credentials and issues an access token.
	AuthorizeLogin(ctx context.Context, creds model.Credentials, clientAddr string) (model.Token, error)
	// AuthorizeRequest verifies a bearer token and resolves its subject.
	AuthorizeRequest(ctx context.Context, token string) (model.Subject, error)
}

var _ AccessGate = (*Gate)(nil)

// Gate turns credentials into tokens and tokens into subjects.
type Gate struct {
	users   repository.UserRepository
	authn   *Authenticator
	tokens  *TokenService
	lim     limiter.Limiter
	metrics *metrics.Auth
	log     *zap.Logger
}

// NewGate wires the gate. lim and m may be nil.
func NewGate(users repository.UserRepository, authn *Authenticator, tokens *TokenService,
	lim limiter.Limiter, m *metrics.Auth, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{users: users, authn: authn, tokens: tokens, lim: lim, metrics: m, log: log}
}

// AuthorizeLogin authenticates the credentials and issues a token.
// clientAddr keys the login limiter together with the username.
func (g *Gate) AuthorizeLogin(ctx context.Context, creds model.Credentials, clientAddr string) (model.Token, error) {
	if creds.Username == "" || creds.Password == "" {
		g.metrics.Login(metrics.ResultInvalidRequest)
		return model.Token{}, errs.ErrInvalidRequest
	}
	ipHash := limiter.HashIP(clientAddr)

	if g.lim != nil {
		allowed, retry, err := g.lim.Allow(ctx, creds.Username, ipHash)
		if err != nil {
			g.metrics.Login(metrics.ResultError)
			return model.Token{}, fmt.Errorf("limiter: %w", err)
		}
		if !allowed {
			g.log.Warn("login blocked", zap.String("username", creds.Username), zap.Duration("retry_after", retry))
			g.metrics.Login(metrics.ResultRateLimited)
			return model.Token{}, errs.ErrRateLimited
		}
	}

	id, err := g.authn.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		g.log.Warn("login failed", zap.String("username", creds.Username))
		if g.lim != nil {
			if blocked, _, ferr := g.lim.Failure(ctx, creds.Username, ipHash); ferr != nil {
				g.log.Error("limiter failure record", zap.Error(ferr))
			} else if blocked {
				g.metrics.Login(metrics.ResultRateLimited)
				return model.Token{}, errs.ErrRateLimited
			}
		}
		g.metrics.Login(metrics.ResultInvalidCredentials)
		return model.Token{}, err
	}

	if g.lim != nil {
		// best-effort
		if err := g.lim.Success(ctx, creds.Username, ipHash); err != nil {
			g.log.Error("limiter reset", zap.Error(err))
		}
	}

	tok, err := g.tokens.Issue(id)
	if err != nil {
		g.metrics.Login(metrics.ResultError)
		return model.Token{}, fmt.Errorf("issue token: %w", err)
	}
	g.log.Info("login succeeded", zap.String("username", creds.Username), zap.Int64("user_id", id.UserID))
	g.metrics.Login(metrics.ResultOK)
	return tok, nil
}

// AuthorizeRequest verifies the token and resolves its subject in the store.
func (g *Gate) AuthorizeRequest(ctx context.Context, token string) (model.Subject, error) {
	id, err := g.tokens.Verify(token)
	if err != nil {
		g.metrics.Verification(tokenResult(err))
		return model.Subject{}, err
	}
	u, err := g.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			g.log.Warn("token subject not found", zap.Int64("user_id", id.UserID))
			g.metrics.Verification(metrics.ResultUnknownSubject)
			return model.Subject{}, errs.ErrUnknownSubject
		}
		g.metrics.Verification(metrics.ResultError)
		return model.Subject{}, fmt.Errorf("resolve subject: %w", err)
	}
	g.metrics.Verification(metrics.ResultOK)
	return model.Subject{ID: u.ID, Username: u.Username}, nil
}

func tokenResult(err error) string {
	switch {
	case errors.Is(err, errs.ErrTokenExpired):
		return metrics.ResultExpired
	case errors.Is(err, errs.ErrTokenInvalidSignature):
		return metrics.ResultInvalidSignature
	case errors.Is(err, errs.ErrTokenMalformed):
		return metrics.ResultMalformed
	default:
		return metrics.ResultError
	}
}
