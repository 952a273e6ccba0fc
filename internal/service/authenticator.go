// Package service contains the authentication core: credential checks, token
// issuance and verification, and the gate that combines them.
package service

import (
	"context"
	"fmt"

	"github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/repository"
)

// Authenticator checks a username/password pair against the credential store.
type Authenticator struct {
	users  repository.UserRepository
	hasher crypto.Hasher
	// dummy is verified when the user does not exist so both paths cost one hash.
	dummy []byte
}

// NewAuthenticator constructs an Authenticator. The hasher must be the one used to
// build the store.
func NewAuthenticator(users repository.UserRepository, hasher crypto.Hasher) (*Authenticator, error) {
	pw, err := crypto.RandBytes(16)
	if err != nil {
		return nil, err
	}
	dummy, err := hasher.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &Authenticator{users: users, hasher: hasher, dummy: dummy}, nil
}

// Authenticate returns the identity of the user or errs.ErrInvalidCredentials.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (model.Identity, error) {
	u, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		a.hasher.Verify([]byte(password), a.dummy)
		return model.Identity{}, errs.ErrInvalidCredentials
	}
	if !a.hasher.Verify([]byte(password), u.PwdHash) {
		return model.Identity{}, errs.ErrInvalidCredentials
	}
	return model.Identity{UserID: u.ID}, nil
}
