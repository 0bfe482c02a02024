package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "bkper-cli"
	keyringUser    = "oauth"
)

// ErrNotLoggedIn is returned when no stored credentials exist.
var ErrNotLoggedIn = errors.New("not logged in, run 'bkper login' first")

// Credentials are the locally persisted result of a login.
type Credentials struct {
	UserID       string `json:"userId"`
	Email        string `json:"email,omitempty"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret,omitempty"`
	RefreshToken string `json:"refreshToken"`
}

// Store persists credentials in the system keyring, falling back to a file
// under the user config dir on platforms without a usable keyring.
type Store struct {
	// fallbackPath overrides the default file location, for tests.
	fallbackPath string
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Load() (Credentials, error) {
	data, err := keyring.Get(keyringService, keyringUser)
	if err == nil {
		return decodeCredentials([]byte(data))
	}
	path, err := s.filePath()
	if err != nil {
		return Credentials{}, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Credentials{}, ErrNotLoggedIn
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("could not read credentials: %w", err)
	}
	return decodeCredentials(raw)
}

func (s *Store) Save(creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringUser, string(data)); err == nil {
		return nil
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (s *Store) Clear() error {
	_ = keyring.Delete(keyringService, keyringUser)
	path, err := s.filePath()
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) filePath() (string, error) {
	if s.fallbackPath != "" {
		return s.fallbackPath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bkper", "credentials.json"), nil
}

func decodeCredentials(data []byte) (Credentials, error) {
	creds := Credentials{}
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("stored credentials are corrupt: %w", err)
	}
	if creds.RefreshToken == "" {
		return Credentials{}, ErrNotLoggedIn
	}
	return creds, nil
}
