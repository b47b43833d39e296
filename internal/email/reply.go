package email

import (
	"net/mail"
	"strings"

	"mailbuddy/internal/model"
)

// ReplyPlan holds what is needed to answer a fetched message.
type ReplyPlan struct {
	To         []string
	Subject    string
	InReplyTo  string
	References []string
}

// PlanReply addresses a reply to the sender of msg, skipping selfEmail, and
// threads it onto msg's Message-ID.
func PlanReply(msg model.Message, selfEmail string) ReplyPlan {
	plan := ReplyPlan{
		To:      deduplicateAddresses(filterOutSelf(parseEmailAddresses(msg.Sender), selfEmail)),
		Subject: ReplySubject(msg.Subject),
	}
	if id := strings.TrimSpace(msg.MessageID); id != "" {
		plan.InReplyTo = id
		plan.References = []string{id}
	}
	return plan
}

func ReplySubject(original string) string {
	trimmed := strings.TrimSpace(original)
	if trimmed == "" {
		return "Re:"
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}

func parseEmailAddresses(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(header)
	if err != nil {
		return parseEmailAddressesFallback(header)
	}
	result := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Address != "" {
			result = append(result, strings.ToLower(addr.Address))
		}
	}
	return result
}

// parseEmailAddressesFallback handles headers net/mail rejects, such as
// unquoted display names with commas or decoded non-ASCII names.
func parseEmailAddressesFallback(header string) []string {
	parts := strings.Split(header, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if start := strings.LastIndex(p, "<"); start != -1 {
			if end := strings.LastIndex(p, ">"); end > start {
				addr := strings.TrimSpace(p[start+1 : end])
				if addr != "" {
					result = append(result, strings.ToLower(addr))
				}
				continue
			}
		}
		if strings.Contains(p, "@") {
			result = append(result, strings.ToLower(p))
		}
	}
	return result
}

func filterOutSelf(addresses []string, selfEmail string) []string {
	selfLower := strings.ToLower(strings.TrimSpace(selfEmail))
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if strings.ToLower(addr) != selfLower {
			result = append(result, addr)
		}
	}
	return result
}

func deduplicateAddresses(addresses []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		lower := strings.ToLower(addr)
		if !seen[lower] {
			seen[lower] = true
			result = append(result, addr)
		}
	}
	return result
}
