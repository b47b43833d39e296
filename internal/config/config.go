package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	MinIntervalSeconds     = 60
	MaxIntervalSeconds     = 1800
	DefaultIntervalSeconds = 300
	DefaultBatchSize       = 20
	DefaultReplyModel      = "gemini-2.5-flash"
)

type Config struct {
	IMAP    IMAPConfig    `mapstructure:"imap" yaml:"imap"`
	SMTP    SMTPConfig    `mapstructure:"smtp" yaml:"smtp"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	Triage  TriageConfig  `mapstructure:"triage" yaml:"triage"`
	Reply   ReplyConfig   `mapstructure:"reply" yaml:"reply"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`

	// KeyringBackend is read directly by the secrets package: auto, keychain or file.
	KeyringBackend string `mapstructure:"keyring_backend" yaml:"keyring_backend,omitempty"`
}

type IMAPConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	StartTLS           bool   `mapstructure:"starttls" yaml:"starttls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type SMTPConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	StartTLS           bool   `mapstructure:"starttls" yaml:"starttls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// PasswordSource records where Password came from: env, config or keyring.
	PasswordSource string `mapstructure:"-" yaml:"-"`
}

type MonitorConfig struct {
	Folder          string `mapstructure:"folder" yaml:"folder"`
	IntervalSeconds int    `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	BatchSize       int    `mapstructure:"batch_size" yaml:"batch_size"`
}

type TriageConfig struct {
	ContactsFile string `mapstructure:"contacts_file" yaml:"contacts_file"`
}

type ReplyConfig struct {
	Model  string `mapstructure:"model" yaml:"model"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	Tone   string `mapstructure:"tone" yaml:"tone"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

func DefaultConfig() Config {
	return Config{
		IMAP: IMAPConfig{
			Port:     993,
			TLS:      true,
			StartTLS: false,
		},
		SMTP: SMTPConfig{
			Host:     "smtp.gmail.com",
			Port:     587,
			TLS:      false,
			StartTLS: true,
		},
		Monitor: MonitorConfig{
			Folder:          "INBOX",
			IntervalSeconds: DefaultIntervalSeconds,
			BatchSize:       DefaultBatchSize,
		},
		Reply: ReplyConfig{
			Model: DefaultReplyModel,
			Tone:  "Professional",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ContactsPath returns the configured contacts file or the default under Dir.
func ContactsPath(cfg Config) (string, error) {
	if cfg.Triage.ContactsFile != "" {
		return cfg.Triage.ContactsFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "known_contacts.json"), nil
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MAILBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes cfg to ConfigPath, creating the config directory if needed.
func Save(cfg Config) (string, error) {
	dir, err := EnsureDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.yaml")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

func Redact(cfg Config) Config {
	masked := cfg
	if masked.Auth.Password != "" {
		masked.Auth.Password = "****"
	}
	if masked.Reply.APIKey != "" {
		masked.Reply.APIKey = "****"
	}
	return masked
}

// ClampInterval bounds a polling interval to [MinIntervalSeconds, MaxIntervalSeconds].
func ClampInterval(seconds int) int {
	if seconds < MinIntervalSeconds {
		return MinIntervalSeconds
	}
	if seconds > MaxIntervalSeconds {
		return MaxIntervalSeconds
	}
	return seconds
}

// Every key needs a default so that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("imap.host", cfg.IMAP.Host)
	v.SetDefault("imap.port", cfg.IMAP.Port)
	v.SetDefault("imap.tls", cfg.IMAP.TLS)
	v.SetDefault("imap.starttls", cfg.IMAP.StartTLS)
	v.SetDefault("imap.insecure_skip_verify", cfg.IMAP.InsecureSkipVerify)

	v.SetDefault("smtp.host", cfg.SMTP.Host)
	v.SetDefault("smtp.port", cfg.SMTP.Port)
	v.SetDefault("smtp.tls", cfg.SMTP.TLS)
	v.SetDefault("smtp.starttls", cfg.SMTP.StartTLS)
	v.SetDefault("smtp.insecure_skip_verify", cfg.SMTP.InsecureSkipVerify)

	v.SetDefault("auth.username", cfg.Auth.Username)
	v.SetDefault("auth.password", cfg.Auth.Password)

	v.SetDefault("monitor.folder", cfg.Monitor.Folder)
	v.SetDefault("monitor.interval_seconds", cfg.Monitor.IntervalSeconds)
	v.SetDefault("monitor.batch_size", cfg.Monitor.BatchSize)

	v.SetDefault("triage.contacts_file", cfg.Triage.ContactsFile)

	v.SetDefault("reply.model", cfg.Reply.Model)
	v.SetDefault("reply.api_key", cfg.Reply.APIKey)
	v.SetDefault("reply.tone", cfg.Reply.Tone)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("keyring_backend", cfg.KeyringBackend)
}

func Validate(cfg Config) error {
	if err := ValidateIMAP(cfg); err != nil {
		return err
	}
	if err := ValidateSMTP(cfg); err != nil {
		return err
	}
	if cfg.Monitor.BatchSize <= 0 {
		return fmt.Errorf("monitor.batch_size must be positive")
	}
	return nil
}

func ValidateIMAP(cfg Config) error {
	if cfg.IMAP.Host == "" {
		return fmt.Errorf("imap.host is required")
	}
	if cfg.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	if cfg.Auth.Password == "" {
		return fmt.Errorf("auth.password is required")
	}
	return nil
}

func ValidateSMTP(cfg Config) error {
	if cfg.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required")
	}
	if cfg.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	if cfg.Auth.Password == "" {
		return fmt.Errorf("auth.password is required")
	}
	return nil
}
