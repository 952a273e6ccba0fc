// Package config loads server settings from the environment and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/errs"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "AUTHGATE_"

// MinSecretLen mirrors the token service requirement so startup fails early.
const MinSecretLen = 32

// Config is immutable once Load returns.
type Config struct {
	JWTSecret    string        `env:"JWT_SECRET"`
	AccessTTL    time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr     string        `env:"GRPC_ADDR" envDefault:":8443"`
	TLSCert      string        `env:"TLS_CERT"`
	TLSKey       string        `env:"TLS_KEY"`
	DSN          string        `env:"DSN"`
	UsersFile    string        `env:"USERS_FILE"`
	PasswordHash string        `env:"PASSWORD_HASH" envDefault:"argon2id"`
	CORSOrigin   string        `env:"CORS_ORIGIN" envDefault:"*"`
	MaxFails     int           `env:"LOGIN_MAX_FAILS" envDefault:"5"`
	FailWindow   time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	BlockFor     time.Duration `env:"LOGIN_BLOCK" envDefault:"15m"`
	Dev          bool          `env:"DEV"`
}

// Load reads the environment, then applies flags from args on top of it.
func Load(args []string) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("authgate", flag.ContinueOnError)
	fs.StringVar(&c.JWTSecret, "jwt-key", c.JWTSecret, "HS256 signing key (required, >= 32 bytes)")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "access token TTL")
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP listen address (empty disables)")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "gRPC listen address (empty disables)")
	fs.StringVar(&c.TLSCert, "tls-cert", c.TLSCert, "TLS certificate for gRPC (PEM)")
	fs.StringVar(&c.TLSKey, "tls-key", c.TLSKey, "TLS private key for gRPC (PEM)")
	fs.StringVar(&c.DSN, "dsn", c.DSN, "PostgreSQL DSN for the shared login limiter (empty = in-memory)")
	fs.StringVar(&c.UsersFile, "users", c.UsersFile, "YAML file with seed users (empty = built-in demo users)")
	fs.StringVar(&c.PasswordHash, "password-hash", c.PasswordHash, "password hasher: argon2id or bcrypt")
	fs.StringVar(&c.CORSOrigin, "cors-origin", c.CORSOrigin, "allowed CORS origin")
	fs.IntVar(&c.MaxFails, "login-max-fails", c.MaxFails, "failed logins before a temporary block")
	fs.DurationVar(&c.FailWindow, "login-window", c.FailWindow, "window for counting failed logins")
	fs.DurationVar(&c.BlockFor, "login-block", c.BlockFor, "block duration after too many failures")
	fs.BoolVar(&c.Dev, "dev", c.Dev, "development mode (reflection, console logs)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: missing jwt signing key (--jwt-key or %sJWT_SECRET)", errs.ErrSigningKey, EnvPrefix)
	}
	if len(c.JWTSecret) < MinSecretLen {
		return fmt.Errorf("%w: jwt signing key must be at least %d bytes", errs.ErrSigningKey, MinSecretLen)
	}
	if c.AccessTTL <= 0 {
		return errors.New("access ttl must be positive")
	}
	if c.HTTPAddr == "" && c.GRPCAddr == "" {
		return errors.New("at least one of http-addr or grpc-addr is required")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls-cert and tls-key must be set together")
	}
	if _, err := crypto.NewHasher(c.PasswordHash); err != nil {
		return err
	}
	if c.MaxFails <= 0 || c.FailWindow <= 0 || c.BlockFor <= 0 {
		return errors.New("login limiter settings must be positive")
	}
	return nil
}
