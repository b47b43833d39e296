package cli

import (
	"errors"
	"fmt"

	"mailbuddy/internal/config"
	"mailbuddy/internal/reply"
	"mailbuddy/internal/secrets"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication and config setup",
	}
	cmd.AddCommand(newAuthLoginCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		imapHost     string
		imapPort     int
		imapTLS      bool
		imapStartTLS bool
		imapInsecure bool

		smtpHost     string
		smtpPort     int
		smtpTLS      bool
		smtpStartTLS bool
		smtpInsecure bool

		username     string
		password     string
		storeKeyring bool
		backend      string

		folder       string
		interval     int
		batchSize    int
		contactsFile string

		replyModel string
		replyTone  string
		apiKey     string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store mail server credentials and mailbuddy settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("imap-host") {
				cfg.IMAP.Host = imapHost
			}
			if cmd.Flags().Changed("imap-port") {
				cfg.IMAP.Port = imapPort
			}
			if cmd.Flags().Changed("imap-tls") {
				cfg.IMAP.TLS = imapTLS
			}
			if cmd.Flags().Changed("imap-starttls") {
				cfg.IMAP.StartTLS = imapStartTLS
			}
			if cmd.Flags().Changed("imap-insecure") {
				cfg.IMAP.InsecureSkipVerify = imapInsecure
			}

			if cmd.Flags().Changed("smtp-host") {
				cfg.SMTP.Host = smtpHost
			}
			if cmd.Flags().Changed("smtp-port") {
				cfg.SMTP.Port = smtpPort
			}
			if cmd.Flags().Changed("smtp-tls") {
				cfg.SMTP.TLS = smtpTLS
			}
			if cmd.Flags().Changed("smtp-starttls") {
				cfg.SMTP.StartTLS = smtpStartTLS
			}
			if cmd.Flags().Changed("smtp-insecure") {
				cfg.SMTP.InsecureSkipVerify = smtpInsecure
			}

			if cmd.Flags().Changed("username") {
				cfg.Auth.Username = username
			}
			if cmd.Flags().Changed("password") {
				cfg.Auth.Password = password
			}
			if cmd.Flags().Changed("folder") {
				cfg.Monitor.Folder = folder
			}
			if cmd.Flags().Changed("interval") {
				cfg.Monitor.IntervalSeconds = config.ClampInterval(interval)
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Monitor.BatchSize = batchSize
			}
			if cmd.Flags().Changed("contacts-file") {
				cfg.Triage.ContactsFile = contactsFile
			}
			if cmd.Flags().Changed("reply-model") {
				cfg.Reply.Model = replyModel
			}
			if cmd.Flags().Changed("reply-tone") {
				cfg.Reply.Tone = string(reply.ParseTone(replyTone))
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = logFormat
			}

			if cmd.Flags().Changed("keyring-backend") {
				cfg.KeyringBackend = backend
			}

			if storeKeyring && cfg.Auth.Password == "" {
				if pw, err := secrets.GetPassword(cfg.Auth.Username); err == nil {
					cfg.Auth.Password = pw
				} else if !errors.Is(err, secrets.ErrSecretNotFound) {
					return err
				}
			}

			if err := config.Validate(cfg); err != nil {
				return err
			}

			// The config is written first so that the keyring opens with the
			// backend chosen in this run.
			password := cfg.Auth.Password
			if storeKeyring {
				cfg.Auth.Password = ""
			} else if apiKey != "" {
				cfg.Reply.APIKey = apiKey
			}

			path, err := config.Save(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)

			if !storeKeyring {
				return nil
			}
			if err := secrets.SetPassword(cfg.Auth.Username, password); err != nil {
				return err
			}
			if apiKey != "" {
				if err := secrets.SetAPIKey(apiKey); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Secrets stored in keyring.")
			return nil
		},
	}

	cmd.Flags().StringVar(&imapHost, "imap-host", "", "IMAP host")
	cmd.Flags().IntVar(&imapPort, "imap-port", 0, "IMAP port")
	cmd.Flags().BoolVar(&imapTLS, "imap-tls", false, "Use IMAP TLS")
	cmd.Flags().BoolVar(&imapStartTLS, "imap-starttls", false, "Use IMAP STARTTLS")
	cmd.Flags().BoolVar(&imapInsecure, "imap-insecure", false, "Skip IMAP TLS verification")

	cmd.Flags().StringVar(&smtpHost, "smtp-host", "", "SMTP host")
	cmd.Flags().IntVar(&smtpPort, "smtp-port", 0, "SMTP port")
	cmd.Flags().BoolVar(&smtpTLS, "smtp-tls", false, "Use SMTP TLS")
	cmd.Flags().BoolVar(&smtpStartTLS, "smtp-starttls", false, "Use SMTP STARTTLS")
	cmd.Flags().BoolVar(&smtpInsecure, "smtp-insecure", false, "Skip SMTP TLS verification")

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password or app password")
	cmd.Flags().BoolVar(&storeKeyring, "store-keyring", false, "Keep the password and API key in the OS keyring instead of the config file")

	cmd.Flags().StringVar(&backend, "keyring-backend", "", "Keyring backend: auto, keychain or file")

	cmd.Flags().StringVar(&folder, "folder", "", "Folder to monitor")
	cmd.Flags().IntVar(&interval, "interval", 0, "Monitor interval in seconds (60-1800)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Messages fetched per check")
	cmd.Flags().StringVar(&contactsFile, "contacts-file", "", "Known contacts file")

	cmd.Flags().StringVar(&replyModel, "reply-model", "", "Reply generation model")
	cmd.Flags().StringVar(&replyTone, "reply-tone", "", "Default reply tone")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Reply generation API key")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")

	return cmd
}
