package imap

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	"go.uber.org/zap"

	"mailbuddy/internal/config"
	"mailbuddy/internal/logger"
	"mailbuddy/internal/model"
	"mailbuddy/internal/triage"
)

var (
	ErrNotConnected    = errors.New("imap: not connected")
	ErrMessageNotFound = errors.New("imap: message not found")
)

const defaultFolder = "Archive"

var categoryFolders = map[triage.Category]string{
	triage.Urgent:      "Urgent",
	triage.Important:   "Important",
	triage.Newsletter:  "Newsletters",
	triage.Promotional: "Promotions",
	triage.OTPReceipt:  "Receipts",
	triage.Other:       defaultFolder,
}

// FolderForCategory maps a category to its destination folder.
func FolderForCategory(c triage.Category) string {
	if name, ok := categoryFolders[c]; ok {
		return name
	}
	return defaultFolder
}

// FolderForCategoryName is FolderForCategory for a category name; unknown
// names map to the archive folder.
func FolderForCategoryName(name string) string {
	c, ok := triage.ParseCategory(name)
	if !ok {
		return defaultFolder
	}
	return FolderForCategory(c)
}

// CategoryFolders returns every destination folder, one per category.
func CategoryFolders() []string {
	cats := triage.Categories()
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, FolderForCategory(c))
	}
	return out
}

// Manager owns a single IMAP session. Calls are serialized, but a UID it
// returns is only valid for the folder it was fetched from.
type Manager struct {
	Dial Dialer

	cfg    config.Config
	logger *zap.SugaredLogger

	mu     sync.Mutex
	client Client
}

func NewManager(cfg config.Config, log *zap.SugaredLogger) *Manager {
	return &Manager{
		Dial:   Dial,
		cfg:    cfg,
		logger: logger.OrNop(log),
	}
}

// Connect opens and authenticates a new session, replacing any existing one.
// On failure the manager is left disconnected.
func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()

	dial := m.Dial
	if dial == nil {
		dial = Dial
	}
	c, err := dial(m.cfg)
	if err != nil {
		m.logger.Warnw("imap connect failed", "host", m.cfg.IMAP.Host, "error", err)
		return fmt.Errorf("imap connect: %w", err)
	}
	m.client = c
	m.logger.Debugw("imap connected", "host", m.cfg.IMAP.Host, "user", m.cfg.Auth.Username)
	return nil
}

// Disconnect logs out if connected. It is safe to call repeatedly.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

func (m *Manager) closeLocked() {
	if m.client == nil {
		return
	}
	if err := m.client.Logout(); err != nil {
		m.logger.Debugw("imap logout", "error", err)
	}
	m.client = nil
}

func (m *Manager) session() (Client, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}
	return m.client, nil
}

func (m *Manager) ListFolders() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.session()
	if err != nil {
		return nil, err
	}
	return listFolders(c)
}

func listFolders(c Client) ([]string, error) {
	folders := []string{}
	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", ch)
	}()
	for mbox := range ch {
		folders = append(folders, mbox.Name)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// EnsureFolders creates any missing category folder and returns the ones it
// created. Only a failed listing is an error; a failed create is logged.
func (m *Manager) EnsureFolders() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.session()
	if err != nil {
		return nil, err
	}
	existing, err := listFolders(c)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	created := []string{}
	for _, name := range CategoryFolders() {
		if have[name] {
			continue
		}
		if err := c.Create(name); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			m.logger.Warnw("create folder failed", "folder", name, "error", err)
			continue
		}
		have[name] = true
		created = append(created, name)
	}
	return created, nil
}

func isAlreadyExists(err error) bool {
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "ALREADYEXISTS") || strings.Contains(msg, "ALREADY EXISTS")
}

// FetchRecent returns up to limit of the highest-UID messages in folder,
// newest first. Messages that fail to parse are skipped.
func (m *Manager) FetchRecent(folder string, limit int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.session()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []model.Message{}, nil
	}

	if _, err := c.Select(folder, true); err != nil {
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}
	uids, err := c.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", folder, err)
	}
	if len(uids) == 0 {
		return []model.Message{}, nil
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	raws, err := fetchRaw(c, uids, m.logger)
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		uid := uids[i]
		raw, ok := raws[uid]
		if !ok {
			m.logger.Debugw("message not returned by fetch", "folder", folder, "uid", uid)
			continue
		}
		msg, err := ParseMessage(uid, raw)
		if err != nil {
			m.logger.Warnw("skipping unparsable message", "folder", folder, "uid", uid, "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// FetchMessage fetches and parses a single message by UID.
func (m *Manager) FetchMessage(folder string, uid uint32) (model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.session()
	if err != nil {
		return model.Message{}, err
	}
	if _, err := c.Select(folder, true); err != nil {
		return model.Message{}, fmt.Errorf("select %s: %w", folder, err)
	}

	raws, err := fetchRaw(c, []uint32{uid}, m.logger)
	if err != nil {
		return model.Message{}, err
	}
	raw, ok := raws[uid]
	if !ok {
		return model.Message{}, fmt.Errorf("%w: uid %d in %s", ErrMessageNotFound, uid, folder)
	}
	return ParseMessage(uid, raw)
}

// fetchRaw fetches the full bodies of uids in one round trip, keyed by UID.
// A message whose body cannot be read is logged and left out.
func fetchRaw(c Client, uids []uint32, log *zap.SugaredLogger) (map[uint32][]byte, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	raws := make(map[uint32][]byte, len(uids))
	for msg := range ch {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			log.Warnw("fetch response has no body section", "uid", msg.Uid)
			continue
		}
		data, err := io.ReadAll(body)
		if err != nil {
			log.Warnw("read message body failed", "uid", msg.Uid, "error", err)
			continue
		}
		raws[msg.Uid] = data
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return raws, nil
}

// MoveMessage copies uid from one folder to another, flags the original
// \Deleted and expunges the source. The steps are not transactional: a
// failure after the copy can leave the message in both folders.
func (m *Manager) MoveMessage(uid uint32, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.session()
	if err != nil {
		return err
	}

	if _, err := c.Select(from, false); err != nil {
		return fmt.Errorf("select %s: %w", from, err)
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	if err := c.UidCopy(seqset, to); err != nil {
		return fmt.Errorf("copy uid %d to %s: %w", uid, to, err)
	}
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("flag uid %d deleted: %w", uid, err)
	}
	if err := c.Expunge(nil); err != nil {
		return fmt.Errorf("expunge %s: %w", from, err)
	}

	m.logger.Debugw("message moved", "uid", uid, "from", from, "to", to)
	return nil
}
