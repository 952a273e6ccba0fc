package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
)

const (
	// MinKeyLen is the shortest accepted HS256 signing key.
	MinKeyLen = 32
	// DefaultAccessTTL is the token lifetime when none is configured.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultIssuer is written to and required in the iss claim.
	DefaultIssuer = "authgate"
)

// TokenService issues and verifies stateless HS256 access tokens.
// All fields are set at construction and never change.
type TokenService struct {
	signKey   []byte
	accessTTL time.Duration
	issuer    string
	now       func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithIssuer sets the issuer claim.
func WithIssuer(iss string) TokenOption {
	return func(s *TokenService) { s.issuer = iss }
}

// NewTokenService validates the key and ttl and constructs the service.
func NewTokenService(signKey []byte, accessTTL time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(signKey) < MinKeyLen {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", errs.ErrSigningKey, MinKeyLen, len(signKey))
	}
	if accessTTL <= 0 {
		return nil, fmt.Errorf("access ttl must be positive, got %s", accessTTL)
	}
	s := &TokenService{
		signKey:   append([]byte(nil), signKey...),
		accessTTL: accessTTL,
		issuer:    DefaultIssuer,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.accessTTL }

// Issue creates a signed HS256 JWT for the identity.
func (s *TokenService) Issue(id model.Identity) (model.Token, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Token{}, err
	}
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   strconv.FormatInt(id.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        jti.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return model.Token{}, err
	}
	return model.Token{AccessToken: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks the signature, then the claims, and returns the embedded identity.
// Errors are errs.ErrTokenMalformed, errs.ErrTokenInvalidSignature or errs.ErrTokenExpired.
func (s *TokenService) Verify(token string) (model.Identity, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return model.Identity{}, classifyJWTError(err)
	}

	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: subject %q", errs.ErrTokenMalformed, claims.Subject)
	}
	return model.Identity{UserID: uid}, nil
}

// classifyJWTError maps jwt library errors onto the token failure taxonomy.
// The parser reports signature problems before claim problems.
func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", errs.ErrTokenInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return errs.ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", errs.ErrTokenMalformed, err)
	}
}
