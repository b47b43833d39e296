package cli

import (
	"errors"
	"fmt"
	"strings"

	"mailbuddy/internal/config"
	"mailbuddy/internal/email"
	"mailbuddy/internal/reply"
	"mailbuddy/internal/smtp"

	"github.com/spf13/cobra"
)

func newReplyCmd() *cobra.Command {
	var folder string
	var tone string
	var extra string
	var send bool

	cmd := &cobra.Command{
		Use:   "reply <uid>",
		Short: "Draft a reply to a message and optionally send it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := parseUID(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if send {
				if err := config.ValidateSMTP(cfg); err != nil {
					return err
				}
			}
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			if folder == "" {
				folder = cfg.Monitor.Folder
			}
			if tone == "" {
				tone = cfg.Reply.Tone
			}

			mgr, err := connectManager(cfg, log)
			if err != nil {
				return err
			}
			msg, err := mgr.FetchMessage(folder, uid)
			mgr.Disconnect()
			if err != nil {
				return err
			}

			body, generated := newDrafter(cfg, log).Draft(cmd.Context(), reply.Request{
				Original: msg.Body,
				Tone:     reply.ParseTone(tone),
				Context:  strings.TrimSpace(extra),
			})
			plan := email.PlanReply(msg, cfg.Auth.Username)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "To: %s\n", strings.Join(plan.To, ", "))
			fmt.Fprintf(out, "Subject: %s\n", plan.Subject)
			if !generated {
				fmt.Fprintln(out, "(template reply)")
			}
			fmt.Fprintf(out, "\n%s\n", body)

			if !send {
				return nil
			}
			if len(plan.To) == 0 {
				return errors.New("no recipient address found for reply")
			}

			raw, err := email.BuildMessage(email.ComposeInput{
				From:       cfg.Auth.Username,
				To:         plan.To,
				Subject:    plan.Subject,
				Body:       body,
				InReplyTo:  plan.InReplyTo,
				References: plan.References,
			})
			if err != nil {
				return err
			}

			ok, status := smtp.Deliver(cfg, cfg.Auth.Username, plan.To, raw)
			if !ok {
				return errors.New(status)
			}
			fmt.Fprintln(out, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Folder holding the message (default: monitor folder)")
	cmd.Flags().StringVar(&tone, "tone", "", "Reply tone: Professional, Friendly, Apologetic or Persuasive")
	cmd.Flags().StringVar(&extra, "context", "", "Information the reply should include")
	cmd.Flags().BoolVar(&send, "send", false, "Send the reply over SMTP")

	return cmd
}
