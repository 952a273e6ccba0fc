package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/repository"
	"github.com/and161185/authgate/internal/repository/memory"
)

var fastArgon = crypto.Argon2{Time: 1, Memory: 8 * 1024, Threads: 1}

var testKey = []byte("0123456789abcdef0123456789abcdef")

// fakeUsers lets tests drop users after a token was issued and inject errors.
type fakeUsers struct {
	mu     sync.Mutex
	byName map[string]*model.User
	getErr error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) remove(username string) {
	f.mu.Lock()
	delete(f.byName, username)
	f.mu.Unlock()
}

func newFakeUsers(t *testing.T) *fakeUsers {
	t.Helper()
	f := &fakeUsers{byName: map[string]*model.User{}}
	for _, sd := range memory.DefaultSeeds {
		h, err := fastArgon.Hash([]byte(sd.Password))
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		f.byName[sd.Username] = &model.User{ID: sd.ID, Username: sd.Username, PwdHash: h}
	}
	return f
}

// countingHasher records Verify calls.
type countingHasher struct {
	crypto.Hasher
	mu       sync.Mutex
	verifies int
}

func (c *countingHasher) Verify(password, encoded []byte) bool {
	c.mu.Lock()
	c.verifies++
	c.mu.Unlock()
	return c.Hasher.Verify(password, encoded)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: time.Unix(1_700_000_000, 0)} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
