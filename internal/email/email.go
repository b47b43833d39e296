package email

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidAddress is a shape check for a bare address, not an RFC 5322 parser.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

type ComposeInput struct {
	From       string
	To         []string
	Subject    string
	Body       string
	InReplyTo  string
	References []string
	Date       time.Time
}

// BuildMessage renders a plain-text message with a fresh Message-ID. Threading
// headers are written when InReplyTo or References are set.
func BuildMessage(in ComposeInput) ([]byte, error) {
	if in.From == "" {
		return nil, fmt.Errorf("from address is required")
	}
	if len(in.To) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	from, err := mail.ParseAddress(in.From)
	if err != nil {
		return nil, fmt.Errorf("parse from %q: %w", in.From, err)
	}
	to := make([]*mail.Address, 0, len(in.To))
	for _, raw := range in.To {
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("parse recipient %q: %w", raw, err)
		}
		to = append(to, addr)
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", to)
	h.SetSubject(in.Subject)
	h.SetMessageID(newMessageID(from.Address))
	if id := stripBrackets(in.InReplyTo); id != "" {
		h.SetMsgIDList("In-Reply-To", []string{id})
	}
	if refs := msgIDs(in.References); len(refs) > 0 {
		h.SetMsgIDList("References", refs)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(in.Body)); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func newMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return uuid.NewString() + "@" + domain
}

func msgIDs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, field := range strings.Fields(v) {
			if id := stripBrackets(field); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

func stripBrackets(id string) string {
	return strings.Trim(strings.TrimSpace(id), "<>")
}
