package imap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"

	"mailbuddy/internal/model"
)

const (
	defaultSubject = "No Subject"
	defaultSender  = "Unknown"
)

var headerDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// DecodeHeader unwraps RFC 2047 encoded words. It never fails: undecodable
// input is returned as permissively recovered text.
func DecodeHeader(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := headerDecoder.DecodeHeader(raw)
	if err != nil {
		return permissiveText([]byte(raw))
	}
	return permissiveText([]byte(decoded))
}

// permissiveText returns b as UTF-8, reading it as Latin-1 when it is not
// valid UTF-8. Latin-1 maps every byte, so this cannot fail.
func permissiveText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(bytes.ToValidUTF8(b, []byte("�")))
	}
	return string(s)
}

// ParseMessage builds a Message from a raw RFC 5322 message. Only an
// unreadable header block is an error; body problems degrade to raw text.
func ParseMessage(uid uint32, raw []byte) (model.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if mr == nil {
		if err == nil {
			err = errors.New("empty message")
		}
		return model.Message{}, fmt.Errorf("parse message %d: %w", uid, err)
	}
	defer mr.Close()

	h := mr.Header
	msg := model.Message{
		UID:       uid,
		MessageID: strings.TrimSpace(h.Get("Message-Id")),
		Subject:   headerOr(h, "Subject", defaultSubject),
		Sender:    headerOr(h, "From", defaultSender),
		Date:      strings.TrimSpace(h.Get("Date")),
	}

	body, ok := firstPlainText(mr)
	if !ok && body == "" {
		body = rawBody(raw)
	}
	msg.Body = strings.TrimSpace(body)

	return msg, nil
}

func headerOr(h mail.Header, key, fallback string) string {
	if !h.Has(key) {
		return fallback
	}
	return DecodeHeader(h.Get(key))
}

// firstPlainText returns the first inline text/plain part. ok is false when
// the MIME structure could not be walked to the end.
func firstPlainText(mr *mail.Reader) (string, bool) {
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", true
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", false
		}
		if p == nil {
			return "", false
		}

		h, inline := p.Header.(*mail.InlineHeader)
		if !inline {
			continue
		}
		ct, _, ctErr := h.ContentType()
		if ctErr != nil {
			ct = "text/plain"
		}
		if ct != "text/plain" {
			continue
		}
		data, readErr := io.ReadAll(p.Body)
		return permissiveText(data), readErr == nil
	}
}

// rawBody is everything after the header block, used when MIME decoding fails.
func rawBody(raw []byte) string {
	for _, sep := range [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")} {
		if i := bytes.Index(raw, sep); i >= 0 {
			return permissiveText(raw[i+len(sep):])
		}
	}
	return ""
}
