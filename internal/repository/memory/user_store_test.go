package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/repository"
)

var _ repository.UserRepository = (*Store)(nil)

var fastArgon = crypto.Argon2{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestStore_Lookup(t *testing.T) {
	s, err := New([]model.User{
		{ID: 1, Username: "user1", PwdHash: []byte("h1")},
		{ID: 2, Username: "user2", PwdHash: []byte("h2")},
	})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	ctx := context.Background()

	u, err := s.GetByUsername(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)

	_, err = s.GetByUsername(ctx, "USER1")
	require.ErrorIs(t, err, errs.ErrNotFound)

	u, err = s.GetByID(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "user2", u.Username)

	_, err = s.GetByID(ctx, 3)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s, err := New([]model.User{{ID: 1, Username: "user1", PwdHash: []byte("h1")}})
	require.NoError(t, err)

	u, err := s.GetByUsername(context.Background(), "user1")
	require.NoError(t, err)
	u.Username = "mallory"

	again, err := s.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "user1", again.Username)
}

func TestStore_RejectsDuplicates(t *testing.T) {
	_, err := New([]model.User{{ID: 1, Username: "a"}, {ID: 2, Username: "a"}})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = New([]model.User{{ID: 1, Username: "a"}, {ID: 1, Username: "b"}})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestFromSeeds_HashesOnce(t *testing.T) {
	s, err := FromSeeds(fastArgon, DefaultSeeds)
	require.NoError(t, err)

	u, err := s.GetByUsername(context.Background(), "user1")
	require.NoError(t, err)
	require.NotEqual(t, []byte("password1"), u.PwdHash)
	require.True(t, fastArgon.Verify([]byte("password1"), u.PwdHash))
	require.False(t, fastArgon.Verify([]byte("password2"), u.PwdHash))

	_, err = FromSeeds(fastArgon, []model.SeedUser{{ID: 9, Username: "x"}})
	require.Error(t, err)
}

func TestLoadSeeds(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
users:
  - id: 7
    username: alice
    password: wonderland
`), 0o600))

	seeds, err := LoadSeeds(p)
	require.NoError(t, err)
	require.Equal(t, []model.SeedUser{{ID: 7, Username: "alice", Password: "wonderland"}}, seeds)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("users: []\n"), 0o600))
	_, err = LoadSeeds(empty)
	require.Error(t, err)

	_, err = LoadSeeds(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
