// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/authgate/internal/model"
)

// UserRepository provides read access to the credential store.
type UserRepository interface {
	// GetByUsername loads a user by exact, case-sensitive username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
}
