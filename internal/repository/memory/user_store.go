// Package memory contains the in-memory credential store.
package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
)

// DefaultSeeds are the demo accounts available when no seed file is configured.
var DefaultSeeds = []model.SeedUser{
	{ID: 1, Username: "user1", Password: "password1"},
	{ID: 2, Username: "user2", Password: "password2"},
}

// Store is a read-only user store. It is safe for concurrent use without locking
// because nothing mutates it after New returns.
type Store struct {
	byName map[string]model.User
	byID   map[int64]model.User
}

// New builds a store from fully formed records. Duplicate ids or usernames are rejected.
func New(users []model.User) (*Store, error) {
	s := &Store{
		byName: make(map[string]model.User, len(users)),
		byID:   make(map[int64]model.User, len(users)),
	}
	for _, u := range users {
		if _, dup := s.byName[u.Username]; dup {
			return nil, fmt.Errorf("username %q: %w", u.Username, errs.ErrAlreadyExists)
		}
		if _, dup := s.byID[u.ID]; dup {
			return nil, fmt.Errorf("user id %d: %w", u.ID, errs.ErrAlreadyExists)
		}
		u.PwdHash = append([]byte(nil), u.PwdHash...)
		s.byName[u.Username] = u
		s.byID[u.ID] = u
	}
	return s, nil
}

// FromSeeds hashes every seed password once and builds the store.
func FromSeeds(h crypto.Hasher, seeds []model.SeedUser) (*Store, error) {
	users := make([]model.User, 0, len(seeds))
	for _, sd := range seeds {
		if sd.Username == "" || sd.Password == "" {
			return nil, fmt.Errorf("seed user %d: empty username/password", sd.ID)
		}
		hash, err := h.Hash([]byte(sd.Password))
		if err != nil {
			return nil, fmt.Errorf("hash seed %q: %w", sd.Username, err)
		}
		users = append(users, model.User{ID: sd.ID, Username: sd.Username, PwdHash: hash})
	}
	return New(users)
}

type seedFile struct {
	Users []model.SeedUser `yaml:"users"`
}

// LoadSeeds reads seed users from a YAML file.
func LoadSeeds(path string) ([]model.SeedUser, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf seedFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sf.Users) == 0 {
		return nil, fmt.Errorf("%s: no users defined", path)
	}
	return sf.Users, nil
}

// Len returns the number of users.
func (s *Store) Len() int { return len(s.byID) }

// GetByUsername returns a copy of the user with the given username.
func (s *Store) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := s.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// GetByID returns a copy of the user with the given id.
func (s *Store) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}
