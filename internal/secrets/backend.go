package secrets

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"mailbuddy/internal/config"
)

const (
	passphraseEnv = "MAILBUDDY_KEYRING_PASSWORD" //nolint:gosec // env var name, not a credential
	backendEnv    = "MAILBUDDY_KEYRING_BACKEND"  //nolint:gosec // env var name, not a credential

	backendAuto = "auto"

	sourceEnv     = "env"
	sourceConfig  = "config"
	sourceDefault = "default"

	// D-Bus SecretService can hang when gnome-keyring is installed but not running.
	openTimeout = 5 * time.Second
)

var (
	errNoTTY          = errors.New("no TTY available for keyring file backend password prompt")
	errInvalidBackend = errors.New("invalid keyring backend")
	errOpenTimeout    = errors.New("keyring connection timed out")

	openFunc        = openKeyring
	keyringOpenFunc = keyring.Open
)

// BackendChoice is the configured keyring backend and where the setting came from.
type BackendChoice struct {
	Name   string
	Source string
}

// ResolveBackend picks the backend from MAILBUDDY_KEYRING_BACKEND, then the
// keyring_backend key of the config file, then auto.
func ResolveBackend() (BackendChoice, error) {
	if name := normalizeBackend(os.Getenv(backendEnv)); name != "" {
		return BackendChoice{Name: name, Source: sourceEnv}, nil
	}

	name, err := configuredBackend()
	if err != nil {
		return BackendChoice{}, fmt.Errorf("resolve keyring backend: %w", err)
	}
	if name != "" {
		return BackendChoice{Name: name, Source: sourceConfig}, nil
	}
	return BackendChoice{Name: backendAuto, Source: sourceDefault}, nil
}

// configuredBackend reads only keyring_backend so that a config file with
// other invalid values does not block secret access.
func configuredBackend() (string, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path) //nolint:gosec // config path is trusted
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}

	var doc struct {
		KeyringBackend string `yaml:"keyring_backend"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse config %s: %w", path, err)
	}
	return normalizeBackend(doc.KeyringBackend), nil
}

func normalizeBackend(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func backendTypes(choice BackendChoice) ([]keyring.BackendType, error) {
	switch choice.Name {
	case "", backendAuto:
		return nil, nil
	case "keychain":
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case "file":
		return []keyring.BackendType{keyring.FileBackend}, nil
	}
	return nil, fmt.Errorf("%w: %q (expected %s, keychain, or file)", errInvalidBackend, choice.Name, backendAuto)
}

// forceFileBackend is true on Linux when auto is selected and no D-Bus
// session exists to reach SecretService.
func forceFileBackend(goos string, choice BackendChoice, dbusAddr string) bool {
	return goos == "linux" && choice.Name == backendAuto && dbusAddr == ""
}

func needsOpenTimeout(goos string, choice BackendChoice, dbusAddr string) bool {
	return goos == "linux" && choice.Name == backendAuto && dbusAddr != ""
}

// passphrasePrompt returns the file backend passphrase source. An env value
// set to the empty string is a valid passphrase.
func passphrasePrompt(value string, set bool, isTTY bool) keyring.PromptFunc {
	switch {
	case set:
		return keyring.FixedStringPrompt(value)
	case isTTY:
		return keyring.TerminalPrompt
	}
	return func(string) (string, error) {
		return "", fmt.Errorf("%w; set %s", errNoTTY, passphraseEnv)
	}
}

func openKeyring() (keyring.Keyring, error) {
	dir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, fmt.Errorf("ensure keyring dir: %w", err)
	}

	choice, err := ResolveBackend()
	if err != nil {
		return nil, err
	}
	backends, err := backendTypes(choice)
	if err != nil {
		return nil, err
	}

	dbusAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if forceFileBackend(runtime.GOOS, choice, dbusAddr) {
		backends = []keyring.BackendType{keyring.FileBackend}
	}

	passphrase, set := os.LookupEnv(passphraseEnv)
	cfg := keyring.Config{
		ServiceName:              config.AppName,
		KeychainTrustApplication: false,
		AllowedBackends:          backends,
		FileDir:                  dir,
		FilePasswordFunc:         passphrasePrompt(passphrase, set, term.IsTerminal(int(os.Stdin.Fd()))),
	}

	if needsOpenTimeout(runtime.GOOS, choice, dbusAddr) {
		return openWithTimeout(cfg, openTimeout)
	}
	ring, err := keyringOpenFunc(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

func openWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	type result struct {
		ring keyring.Keyring
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		ring, err := keyringOpenFunc(cfg)
		ch <- result{ring, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("open keyring: %w", res.err)
		}
		return res.ring, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %v (D-Bus SecretService may be unresponsive); "+
			"set %s=file and %s=<password> to use encrypted file storage instead",
			errOpenTimeout, timeout, backendEnv, passphraseEnv)
	}
}
