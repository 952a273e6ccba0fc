package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "authgate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "authgate")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

// loadToken returns the saved token unless it is missing or already expired.
// A zero ExpiresAt means the server did not say, so the server decides.
func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.New("no saved token (login required)")
		}
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || (!tf.ExpiresAt.IsZero() && time.Now().After(tf.ExpiresAt)) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}
