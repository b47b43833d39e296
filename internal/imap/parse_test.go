package imap

import (
	"strings"
	"testing"
)

func TestDecodeHeader(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		"plain subject":                      "plain subject",
		"=?UTF-8?B?SGVsbG8gV29ybGQ=?=":       "Hello World",
		"=?ISO-8859-1?Q?Caf=E9?= au lait":    "Café au lait",
		"=?utf-8?q?Re:_=C3=BCber?= tomorrow": "Re: über tomorrow",
	}
	for in, want := range cases {
		if got := DecodeHeader(in); got != want {
			t.Fatalf("DecodeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeHeaderFallsBackOnBadCharset(t *testing.T) {
	got := DecodeHeader("=?x-no-such-charset?Q?abc?=")
	if got == "" {
		t.Fatalf("expected best-effort text")
	}
}

func TestDecodeHeaderRecoversLatin1Bytes(t *testing.T) {
	got := DecodeHeader("caf\xe9")
	if got != "café" {
		t.Fatalf("expected latin-1 recovery, got %q", got)
	}
}

func TestParseMessageDefaults(t *testing.T) {
	raw := "Content-Type: text/plain\r\n\r\nhello\r\n"

	msg, err := ParseMessage(3, []byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Subject != "No Subject" || msg.Sender != "Unknown" {
		t.Fatalf("expected defaults, got subject=%q sender=%q", msg.Subject, msg.Sender)
	}
	if msg.Body != "hello" || msg.UID != 3 || msg.MessageID != "" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseMessageMultipartSkipsAttachments(t *testing.T) {
	raw := strings.Join([]string{
		"From: =?UTF-8?B?Qm9zcw==?= <boss@company.com>",
		"Subject: Report",
		"Message-Id: <r1@company.com>",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=XYZ",
		"",
		"--XYZ",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html version</p>",
		"--XYZ",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Disposition: attachment; filename=notes.txt",
		"",
		"attached notes",
		"--XYZ",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"the plain =3D body",
		"--XYZ--",
		"",
	}, "\r\n")

	msg, err := ParseMessage(1, []byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Sender != "Boss <boss@company.com>" {
		t.Fatalf("unexpected sender %q", msg.Sender)
	}
	if msg.Body != "the plain = body" {
		t.Fatalf("unexpected body %q", msg.Body)
	}
	if msg.MessageID != "<r1@company.com>" {
		t.Fatalf("unexpected message id %q", msg.MessageID)
	}
}

func TestParseMessageLatin1Body(t *testing.T) {
	raw := "Subject: hi\r\nContent-Type: text/plain; charset=iso-8859-1\r\n\r\ncaf\xe9\r\n"

	msg, err := ParseMessage(1, []byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Body != "café" {
		t.Fatalf("unexpected body %q", msg.Body)
	}
}

func TestParseMessageRejectsGarbageHeader(t *testing.T) {
	if _, err := ParseMessage(1, []byte("no colon here\r\n\r\nbody")); err == nil {
		t.Fatalf("expected parse error")
	}
}
