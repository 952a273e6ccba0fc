package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/authgate/internal/config"
	"github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("AUTHGATE_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTHGATE_PASSWORD_HASH", "bcrypt")
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	return cfg
}

func TestNewApp_DefaultUsers(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	tok, err := a.gate.AuthorizeLogin(ctx, model.Credentials{Username: "user1", Password: "password1"}, "127.0.0.1")
	require.NoError(t, err)

	sub, err := a.gate.AuthorizeRequest(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user1", sub.Username)

	mfs, err := a.registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestNewApp_RejectsShortKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = "short"

	_, err := newApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.True(t, errors.Is(err, errs.ErrSigningKey), "got %v", err)
}

func TestNewUserStore_FromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(p, []byte("users:\n  - id: 42\n    username: carol\n    password: s3cret\n"), 0o600))

	h := crypto.Argon2{Time: 1, Memory: 8 * 1024, Threads: 1}
	s, err := newUserStore(p, h)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	u, err := s.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, h.Verify([]byte("s3cret"), u.PwdHash))

	_, err = newUserStore(filepath.Join(t.TempDir(), "missing.yaml"), h)
	require.Error(t, err)
}
