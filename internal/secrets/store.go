// Package secrets keeps the mail password and the reply API key in the OS
// keyring, or in an encrypted file where no keyring service is available.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"mailbuddy/internal/config"
)

const apiKeyKey = "reply:apikey"

var (
	ErrSecretNotFound = errors.New("secret not found")

	errMissingSecretKey = errors.New("missing secret key")
	errMissingUsername  = errors.New("missing username")
	errMissingPassword  = errors.New("missing password")
	errMissingAPIKey    = errors.New("missing api key")
)

func SetSecret(key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errMissingSecretKey
	}
	ring, err := openFunc()
	if err != nil {
		return err
	}
	item := keyring.Item{Key: key, Data: value, Label: config.AppName}
	if err := ring.Set(item); err != nil {
		return explainLocked(fmt.Errorf("store secret: %w", err))
	}
	return nil
}

// GetSecret returns ErrSecretNotFound for a key that was never stored.
func GetSecret(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errMissingSecretKey
	}
	ring, err := openFunc()
	if err != nil {
		return nil, err
	}
	item, err := ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, explainLocked(fmt.Errorf("read secret: %w", err))
	}
	return item.Data, nil
}

// SetPassword stores the mail password for username, matched case-insensitively.
func SetPassword(username, password string) error {
	user := normalize(username)
	if user == "" {
		return errMissingUsername
	}
	if password == "" {
		return errMissingPassword
	}
	return SetSecret(passwordKey(user), []byte(password))
}

func GetPassword(username string) (string, error) {
	user := normalize(username)
	if user == "" {
		return "", errMissingUsername
	}
	data, err := GetSecret(passwordKey(user))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errMissingAPIKey
	}
	return SetSecret(apiKeyKey, []byte(key))
}

func GetAPIKey() (string, error) {
	data, err := GetSecret(apiKeyKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsKeychainLockedError matches the macOS Security framework error for a
// locked keychain.
func IsKeychainLockedError(msg string) bool {
	return strings.Contains(msg, "-25308") ||
		strings.Contains(strings.ToLower(msg), "user interaction is not allowed")
}

func explainLocked(err error) error {
	if err == nil || !IsKeychainLockedError(err.Error()) {
		return err
	}
	return fmt.Errorf("%w\n\nYour macOS keychain is locked. To unlock it, run:\n  security unlock-keychain ~/Library/Keychains/login.keychain-db", err)
}

func passwordKey(username string) string {
	return "auth:password:" + username
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
