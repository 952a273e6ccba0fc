// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

// Hasher names accepted by NewHasher.
const (
	HasherArgon2id = "argon2id"
	HasherBcrypt   = "bcrypt"
)

// Hasher produces salted one-way password hashes and verifies passwords against them.
type Hasher interface {
	// Hash returns an encoded hash with a fresh random salt embedded.
	Hash(password []byte) ([]byte, error)
	// Verify reports whether password matches encoded. Malformed input yields false.
	Verify(password, encoded []byte) bool
}

// NewHasher returns the hasher registered under name.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", HasherArgon2id:
		return NewArgon2(), nil
	case HasherBcrypt:
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Argon2 hashes with Argon2id. The encoded form is salt||key.
type Argon2 struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// NewArgon2 returns an Argon2 hasher with the server defaults.
func NewArgon2() Argon2 {
	return Argon2{Time: argonTime, Memory: argonMemory, Threads: argonThreads}
}

// Hash returns salt||Argon2id(password, salt).
func (a Argon2) Hash(password []byte) ([]byte, error) {
	salt, err := RandBytes(argonSaltLen)
	if err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	out := make([]byte, 0, argonSaltLen+int(argonKeyLen))
	out = append(out, salt...)
	return append(out, a.key(password, salt)...), nil
}

// Verify recomputes the key with the embedded salt and compares in constant time.
func (a Argon2) Verify(password, encoded []byte) bool {
	if len(encoded) != argonSaltLen+int(argonKeyLen) {
		return false
	}
	salt, expected := encoded[:argonSaltLen], encoded[argonSaltLen:]
	return subtle.ConstantTimeCompare(a.key(password, salt), expected) == 1
}

func (a Argon2) key(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, a.Time, a.Memory, a.Threads, argonKeyLen)
}

// Bcrypt hashes with bcrypt, which carries its own salt and cost in the output.
type Bcrypt struct {
	Cost int
}

// Hash returns the bcrypt encoding of password.
func (b Bcrypt) Hash(password []byte) ([]byte, error) {
	return bcrypt.GenerateFromPassword(password, b.Cost)
}

// Verify reports whether password matches the bcrypt hash.
func (b Bcrypt) Verify(password, encoded []byte) bool {
	return bcrypt.CompareHashAndPassword(encoded, password) == nil
}
