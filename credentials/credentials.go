// Package credentials provides secure storage for the casetriage CLI's
// inference API key.
//
// The key is stored in the system keyring:
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (libsecret)
//
// For CI and headless environments, set CASETRIAGE_API_KEY instead; the
// environment variable always takes precedence over the keyring.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the system keyring.
	keyringService = "casetriage-cli"
	// keyringUser is the user/account name used in the system keyring.
	keyringUser = "inference-api-key"

	// EnvAPIKey is the environment variable that overrides the keyring.
	EnvAPIKey = "CASETRIAGE_API_KEY"
)

// Common errors.
var (
	// ErrNoCredentials is returned when no API key is stored.
	ErrNoCredentials = errors.New("no API key stored")
	// ErrKeyringUnavailable indicates the system keyring is not available.
	ErrKeyringUnavailable = errors.New("system keyring unavailable")
)

// Store manages API key storage in the system keyring.
type Store struct {
	service string
}

// NewStore creates a new credential store backed by the system keyring.
func NewStore() *Store {
	return &Store{service: keyringService}
}

// APIKey returns the inference API key. The CASETRIAGE_API_KEY environment
// variable takes precedence; otherwise the key comes from the keyring.
// Returns ErrNoCredentials when neither source has a key.
func (s *Store) APIKey() (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}

	key, err := keyring.Get(s.service, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoCredentials
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	if key == "" {
		return "", ErrNoCredentials
	}
	return key, nil
}

// Save stores the inference API key in the system keyring.
func (s *Store) Save(apiKey string) error {
	if apiKey == "" {
		return errors.New("API key is empty")
	}
	if err := keyring.Set(s.service, keyringUser, apiKey); err != nil {
		return fmt.Errorf("%w: storing key: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// Delete removes the stored API key. Deleting a key that does not exist is
// not an error.
func (s *Store) Delete() error {
	if err := keyring.Delete(s.service, keyringUser); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: deleting key: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// Exists reports whether an API key is available from either source.
func (s *Store) Exists() bool {
	_, err := s.APIKey()
	return err == nil
}

// Source describes where the active API key comes from, for status output.
func (s *Store) Source() string {
	if os.Getenv(EnvAPIKey) != "" {
		return fmt.Sprintf("environment variable (%s)", EnvAPIKey)
	}
	return KeyringDescription()
}

// KeyringDescription returns a human-readable name for the platform keyring.
func KeyringDescription() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}

// MaskCredential returns a masked version of the credential for display.
func MaskCredential(cred string) string {
	if len(cred) <= 8 {
		return strings.Repeat("*", len(cred))
	}
	return cred[:4] + strings.Repeat("*", len(cred)-8) + cred[len(cred)-4:]
}
