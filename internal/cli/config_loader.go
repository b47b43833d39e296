package cli

import (
	"errors"
	"os"
	"strings"

	"mailbuddy/internal/config"
	"mailbuddy/internal/contacts"
	"mailbuddy/internal/imap"
	"mailbuddy/internal/logger"
	"mailbuddy/internal/reply"
	"mailbuddy/internal/secrets"

	"go.uber.org/zap"
)

// googleAPIKeyEnv is honoured after MAILBUDDY_REPLY_API_KEY.
const googleAPIKeyEnv = "GOOGLE_API_KEY"

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if err := resolvePassword(&cfg); err != nil {
		return cfg, err
	}
	if err := resolveAPIKey(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func resolvePassword(cfg *config.Config) error {
	if _, ok := os.LookupEnv("MAILBUDDY_AUTH_PASSWORD"); ok {
		cfg.Auth.PasswordSource = "env"
		return nil
	}

	if cfg.Auth.Password != "" {
		cfg.Auth.PasswordSource = "config"
		return nil
	}

	if cfg.Auth.Username == "" {
		return nil
	}

	password, err := secrets.GetPassword(cfg.Auth.Username)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return nil
		}
		return err
	}

	cfg.Auth.Password = password
	cfg.Auth.PasswordSource = "keyring"
	return nil
}

func resolveAPIKey(cfg *config.Config) error {
	if cfg.Reply.APIKey != "" {
		return nil
	}
	if key := strings.TrimSpace(os.Getenv(googleAPIKeyEnv)); key != "" {
		cfg.Reply.APIKey = key
		return nil
	}

	key, err := secrets.GetAPIKey()
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return nil
		}
		return err
	}
	cfg.Reply.APIKey = key
	return nil
}

func newLogger(cfg config.Config) *zap.SugaredLogger {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return log
}

// connectManager returns a connected folder manager; callers Disconnect it.
func connectManager(cfg config.Config, log *zap.SugaredLogger) (*imap.Manager, error) {
	if err := config.ValidateIMAP(cfg); err != nil {
		return nil, err
	}
	mgr := imap.NewManager(cfg, log)
	if err := mgr.Connect(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func openContacts(cfg config.Config, log *zap.SugaredLogger) (*contacts.Store, error) {
	path, err := config.ContactsPath(cfg)
	if err != nil {
		return nil, err
	}
	return contacts.NewStore(path, log), nil
}

func newDrafter(cfg config.Config, log *zap.SugaredLogger) *reply.Drafter {
	var gen reply.Generator
	if cfg.Reply.APIKey != "" {
		gen = reply.NewGeminiClient(cfg.Reply.APIKey, cfg.Reply.Model)
	}
	return reply.NewDrafter(gen, log)
}
