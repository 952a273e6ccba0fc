// Package model defines domain entities used by services and repositories.
package model

import "time"

// User is a record in the credential store. It is never mutated after the store is built.
type User struct {
	ID       int64  // unique
	Username string // unique, case-sensitive
	PwdHash  []byte // encoded by crypto.Hasher, salt included
}

// SeedUser is a plaintext user definition hashed once when the store is built.
type SeedUser struct {
	ID       int64  `yaml:"id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Credentials is a login attempt. It is discarded after verification.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identity is a verified principal.
type Identity struct {
	UserID int64
}

// Subject is an identity resolved against the credential store.
type Subject struct {
	ID       int64
	Username string
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time // for diagnostics; the token itself is authoritative
}
