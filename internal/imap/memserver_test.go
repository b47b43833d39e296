package imap

import (
	"bytes"
	"net"
	"strconv"
	"testing"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	imapclient "github.com/emersion/go-imap/client"
	"go.uber.org/zap/zaptest"

	"mailbuddy/internal/config"
)

const (
	memUser = "testuser"
	memPass = "testpass"
)

func newMemServer(t *testing.T) config.Config {
	t.Helper()

	mem := imapmemserver.New()
	user := imapmemserver.NewUser(memUser, memPass)
	if err := user.Create("INBOX", nil); err != nil {
		t.Fatalf("create inbox: %v", err)
	}
	mem.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(_ *imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		InsecureAuth: true,
		Caps: imapv2.CapSet{
			imapv2.CapIMAP4rev1: {},
		},
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.IMAP.Host = host
	cfg.IMAP.Port = port
	cfg.IMAP.TLS = false
	cfg.IMAP.StartTLS = false
	cfg.Auth.Username = memUser
	cfg.Auth.Password = memPass
	return cfg
}

func appendMessages(t *testing.T, cfg config.Config, mailbox string, raws ...string) {
	t.Helper()

	c, err := imapclient.Dial(net.JoinHostPort(cfg.IMAP.Host, strconv.Itoa(cfg.IMAP.Port)))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Logout() }()
	if err := c.Login(memUser, memPass); err != nil {
		t.Fatal(err)
	}
	for _, raw := range raws {
		if err := c.Append(mailbox, nil, time.Now(), bytes.NewBufferString(raw)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func TestManagerAgainstMemoryServer(t *testing.T) {
	cfg := newMemServer(t)
	appendMessages(t, cfg, "INBOX",
		rawMessage("<a@example.com>", "first", "alpha"),
		rawMessage("<b@example.com>", "Your receipt", "bravo"),
		rawMessage("<c@example.com>", "third", "charlie"),
	)

	m := NewManager(cfg, zaptest.NewLogger(t).Sugar())
	if err := m.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer m.Disconnect()

	created, err := m.EnsureFolders()
	if err != nil {
		t.Fatalf("ensure folders: %v", err)
	}
	if len(created) != len(CategoryFolders()) {
		t.Fatalf("expected all category folders created, got %v", created)
	}
	again, err := m.EnsureFolders()
	if err != nil {
		t.Fatalf("ensure folders again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected second ensure to create nothing, got %v", again)
	}

	recent, err := m.FetchRecent("INBOX", 2)
	if err != nil {
		t.Fatalf("fetch recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Subject != "third" || recent[1].Subject != "Your receipt" {
		t.Fatalf("unexpected recent messages: %+v", recent)
	}

	if err := m.MoveMessage(recent[1].UID, "INBOX", "Receipts"); err != nil {
		t.Fatalf("move: %v", err)
	}

	receipts, err := m.FetchRecent("Receipts", 10)
	if err != nil {
		t.Fatalf("fetch receipts: %v", err)
	}
	if len(receipts) != 1 || receipts[0].MessageID != "<b@example.com>" {
		t.Fatalf("unexpected receipts: %+v", receipts)
	}

	inbox, err := m.FetchRecent("INBOX", 10)
	if err != nil {
		t.Fatalf("fetch inbox: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("expected 2 messages left in INBOX, got %d", len(inbox))
	}
}
