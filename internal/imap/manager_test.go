package imap

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/emersion/go-imap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"mailbuddy/internal/config"
	"mailbuddy/internal/triage"
)

type mockClient struct {
	listNames []string
	listErr   error
	createErr map[string]error
	messages  map[uint32]string
	unread    map[uint32]bool
	selectErr error
	copyErr   error
	storeErr  error

	calls     []string
	created   []string
	selected  string
	readOnly  bool
	fetched   []uint32
	loggedOut bool
}

func (m *mockClient) Login(username, password string) error { return nil }
func (m *mockClient) Logout() error {
	m.loggedOut = true
	return nil
}
func (m *mockClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	m.calls = append(m.calls, "select")
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	m.selected = name
	m.readOnly = readOnly
	return &imap.MailboxStatus{Name: name, ReadOnly: readOnly}, nil
}
func (m *mockClient) List(ref, name string, ch chan *imap.MailboxInfo) error {
	defer close(ch)
	if m.listErr != nil {
		return m.listErr
	}
	for _, mailbox := range m.listNames {
		ch <- &imap.MailboxInfo{Name: mailbox}
	}
	return nil
}
func (m *mockClient) Create(name string) error {
	if err := m.createErr[name]; err != nil {
		return err
	}
	m.created = append(m.created, name)
	return nil
}
func (m *mockClient) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	uids := make([]uint32, 0, len(m.messages))
	for uid := range m.messages {
		uids = append(uids, uid)
	}
	return uids, nil
}
func (m *mockClient) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	for uid, raw := range m.messages {
		if !seqset.Contains(uid) {
			continue
		}
		m.fetched = append(m.fetched, uid)
		msg := imap.NewMessage(0, items)
		msg.Uid = uid
		var body imap.Literal = bytes.NewBufferString(raw)
		if m.unread[uid] {
			body = failingLiteral{}
		}
		msg.Body = map[*imap.BodySectionName]imap.Literal{{}: body}
		ch <- msg
	}
	return nil
}
func (m *mockClient) UidCopy(seqset *imap.SeqSet, mailbox string) error {
	m.calls = append(m.calls, "copy")
	return m.copyErr
}
func (m *mockClient) UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
	m.calls = append(m.calls, "store")
	return m.storeErr
}
func (m *mockClient) Expunge(ch chan uint32) error {
	m.calls = append(m.calls, "expunge")
	if ch != nil {
		close(ch)
	}
	return nil
}

// failingLiteral is a message body whose read fails.
type failingLiteral struct{}

func (failingLiteral) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (failingLiteral) Len() int                 { return 10 }

func newTestManager(t *testing.T, mock *mockClient) *Manager {
	t.Helper()
	m := NewManager(config.Config{}, zaptest.NewLogger(t).Sugar())
	m.Dial = func(cfg config.Config) (Client, error) {
		return mock, nil
	}
	if err := m.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return m
}

func rawMessage(id, subject, body string) string {
	return "Message-Id: " + id + "\r\n" +
		"From: Sender <sender@example.com>\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n"
}

func TestConnectFailureLeavesManagerDisconnected(t *testing.T) {
	m := NewManager(config.Config{}, zaptest.NewLogger(t).Sugar())
	m.Dial = func(cfg config.Config) (Client, error) {
		return nil, errors.New("auth failed")
	}

	if err := m.Connect(); err == nil {
		t.Fatalf("expected connect error")
	}
	if m.Connected() {
		t.Fatalf("expected manager to stay disconnected")
	}
	if _, err := m.FetchRecent("INBOX", 5); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	mock := &mockClient{}
	m := newTestManager(t, mock)

	m.Disconnect()
	m.Disconnect()

	if !mock.loggedOut {
		t.Fatalf("expected logout to be called")
	}
	if m.Connected() {
		t.Fatalf("expected disconnected state")
	}
}

func TestEnsureFoldersCreatesMissing(t *testing.T) {
	mock := &mockClient{
		listNames: []string{"INBOX", "Urgent", "Receipts"},
		createErr: map[string]error{"Promotions": errors.New("NO permission denied")},
	}
	m := newTestManager(t, mock)

	created, err := m.EnsureFolders()
	if err != nil {
		t.Fatalf("ensure folders: %v", err)
	}
	want := []string{"Archive", "Important", "Newsletters"}
	if !reflect.DeepEqual(created, want) {
		t.Fatalf("expected %v, got %v", want, created)
	}
}

func TestEnsureFoldersFailsWhenListingFails(t *testing.T) {
	mock := &mockClient{listErr: errors.New("BAD list")}
	m := newTestManager(t, mock)

	if _, err := m.EnsureFolders(); err == nil {
		t.Fatalf("expected listing error")
	}
	if len(mock.created) != 0 {
		t.Fatalf("expected no folders created, got %v", mock.created)
	}
}

func TestFetchRecentReturnsNewestFirst(t *testing.T) {
	mock := &mockClient{messages: map[uint32]string{
		1: rawMessage("<m1@example.com>", "first", "one"),
		2: rawMessage("<m2@example.com>", "second", "two"),
		3: rawMessage("<m3@example.com>", "third", "three"),
		4: rawMessage("<m4@example.com>", "fourth", "four"),
	}}
	m := newTestManager(t, mock)

	messages, err := m.FetchRecent("INBOX", 3)
	if err != nil {
		t.Fatalf("fetch recent: %v", err)
	}
	if !mock.readOnly || mock.selected != "INBOX" {
		t.Fatalf("expected read-only select of INBOX, got %q readOnly=%v", mock.selected, mock.readOnly)
	}

	var uids []uint32
	for _, msg := range messages {
		uids = append(uids, msg.UID)
	}
	if !reflect.DeepEqual(uids, []uint32{4, 3, 2}) {
		t.Fatalf("expected uids [4 3 2], got %v", uids)
	}
	if messages[0].Subject != "fourth" || messages[0].Body != "four" {
		t.Fatalf("unexpected first message: %+v", messages[0])
	}
	if messages[0].MessageID != "<m4@example.com>" {
		t.Fatalf("unexpected message id %q", messages[0].MessageID)
	}
}

func TestFetchRecentSkipsUnparsableMessage(t *testing.T) {
	mock := &mockClient{messages: map[uint32]string{
		1: rawMessage("<m1@example.com>", "good", "ok"),
		2: "this line has no colon\r\n\r\nbody\r\n",
	}}
	m := newTestManager(t, mock)

	messages, err := m.FetchRecent("INBOX", 10)
	if err != nil {
		t.Fatalf("fetch recent: %v", err)
	}
	if len(messages) != 1 || messages[0].UID != 1 {
		t.Fatalf("expected only uid 1, got %+v", messages)
	}
}

func TestFetchRecentEmptyFolder(t *testing.T) {
	m := newTestManager(t, &mockClient{})

	messages, err := m.FetchRecent("INBOX", 20)
	if err != nil {
		t.Fatalf("fetch recent: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(messages))
	}
}

func TestFetchMessageNotFound(t *testing.T) {
	m := newTestManager(t, &mockClient{messages: map[uint32]string{}})

	if _, err := m.FetchMessage("INBOX", 9); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestMoveMessageRunsAllSteps(t *testing.T) {
	mock := &mockClient{}
	m := newTestManager(t, mock)

	if err := m.MoveMessage(7, "INBOX", "Urgent"); err != nil {
		t.Fatalf("move: %v", err)
	}
	want := []string{"select", "copy", "store", "expunge"}
	if !reflect.DeepEqual(mock.calls, want) {
		t.Fatalf("expected %v, got %v", want, mock.calls)
	}
	if mock.readOnly {
		t.Fatalf("expected read-write select")
	}
}

func TestMoveMessageCopyFailureStops(t *testing.T) {
	mock := &mockClient{copyErr: errors.New("NO [TRYCREATE] no such mailbox")}
	m := newTestManager(t, mock)

	if err := m.MoveMessage(7, "INBOX", "Missing"); err == nil {
		t.Fatalf("expected move to fail")
	}
	want := []string{"select", "copy"}
	if !reflect.DeepEqual(mock.calls, want) {
		t.Fatalf("expected %v, got %v", want, mock.calls)
	}
}

func TestMoveMessageStoreFailureStops(t *testing.T) {
	mock := &mockClient{storeErr: errors.New("NO store failed")}
	m := newTestManager(t, mock)

	if err := m.MoveMessage(7, "INBOX", "Archive"); err == nil {
		t.Fatalf("expected move to fail")
	}
	want := []string{"select", "copy", "store"}
	if !reflect.DeepEqual(mock.calls, want) {
		t.Fatalf("expected %v, got %v", want, mock.calls)
	}
}

func TestMoveMessageRequiresConnection(t *testing.T) {
	m := NewManager(config.Config{}, nil)
	if err := m.MoveMessage(1, "INBOX", "Archive"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestFolderForCategory(t *testing.T) {
	if got := FolderForCategory(triage.Urgent); got != "Urgent" {
		t.Fatalf("expected Urgent, got %q", got)
	}
	if got := FolderForCategory(triage.OTPReceipt); got != "Receipts" {
		t.Fatalf("expected Receipts, got %q", got)
	}
	if got := FolderForCategoryName("URGENT"); got != "Urgent" {
		t.Fatalf("expected Urgent, got %q", got)
	}
	if got := FolderForCategoryName("UNKNOWN"); got != "Archive" {
		t.Fatalf("expected Archive, got %q", got)
	}
	if got := len(CategoryFolders()); got != 6 {
		t.Fatalf("expected 6 folders, got %d", got)
	}
}

func TestListFolders(t *testing.T) {
	mock := &mockClient{listNames: []string{"INBOX", "Archive"}}
	m := newTestManager(t, mock)

	got, err := m.ListFolders()
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"INBOX", "Archive"}) {
		t.Fatalf("unexpected folders %v", got)
	}
}

func TestFetchMessageParsesSingleUID(t *testing.T) {
	mock := &mockClient{messages: map[uint32]string{
		4: rawMessage("<four@x>", "Four", "body four"),
		9: rawMessage("<nine@x>", "Nine", "body nine"),
	}}
	m := newTestManager(t, mock)

	msg, err := m.FetchMessage("Archive", 9)
	if err != nil {
		t.Fatalf("fetch message: %v", err)
	}
	if msg.UID != 9 || msg.Subject != "Nine" || msg.Body != "body nine" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if mock.selected != "Archive" || !mock.readOnly {
		t.Fatalf("expected read-only select of Archive, got %q (%v)", mock.selected, mock.readOnly)
	}
}

func TestFetchRecentLogsUnreadableBody(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mock := &mockClient{
		messages: map[uint32]string{
			1: rawMessage("<one@x>", "One", "first"),
			2: rawMessage("<two@x>", "Two", "second"),
		},
		unread: map[uint32]bool{2: true},
	}
	m := NewManager(config.Config{}, zap.New(core).Sugar())
	m.Dial = func(cfg config.Config) (Client, error) { return mock, nil }
	if err := m.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	msgs, err := m.FetchRecent("INBOX", 10)
	if err != nil {
		t.Fatalf("fetch recent: %v", err)
	}
	if len(msgs) != 1 || msgs[0].UID != 1 {
		t.Fatalf("expected only uid 1, got %+v", msgs)
	}

	entries := logs.FilterMessage("read message body failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one body read warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["uid"] != uint32(2) || fields["error"] != "connection reset" {
		t.Fatalf("unexpected log fields %v", fields)
	}
}
