// Package contacts persists the list of known sender addresses.
package contacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mailbuddy/internal/logger"
	"mailbuddy/internal/triage"
)

type record struct {
	KnownContacts []string `json:"known_contacts"`
}

// Store reads and writes {"known_contacts": [...]} at Path.
type Store struct {
	Path   string
	logger *zap.SugaredLogger
}

func NewStore(path string, log *zap.SugaredLogger) *Store {
	return &Store{Path: path, logger: logger.OrNop(log)}
}

// Load returns the contacts lower-cased, deduplicated and sorted. A missing
// file is created empty; an unreadable one is logged and treated as empty.
func (s *Store) Load() []string {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := s.Save(nil); err != nil {
				s.logger.Warnw("create contacts file", "path", s.Path, "error", err)
			}
			return []string{}
		}
		s.logger.Warnw("read contacts file", "path", s.Path, "error", err)
		return []string{}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warnw("parse contacts file", "path", s.Path, "error", err)
		return []string{}
	}

	return Normalize(rec.KnownContacts)
}

// Save writes the contacts lower-cased, deduplicated and sorted.
func (s *Store) Save(addresses []string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("ensure contacts dir: %w", err)
	}

	data, err := json.MarshalIndent(record{KnownContacts: Normalize(addresses)}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write contacts: %w", err)
	}
	return nil
}

// Add saves address if it is not already known.
func (s *Store) Add(address string) error {
	address = normalize(address)
	if address == "" {
		return errors.New("empty address")
	}
	current := s.Load()
	for _, c := range current {
		if c == address {
			return nil
		}
	}
	return s.Save(append(current, address))
}

// Remove drops address; removing an unknown address is not an error.
func (s *Store) Remove(address string) error {
	address = normalize(address)
	current := s.Load()
	kept := current[:0]
	found := false
	for _, c := range current {
		if c == address {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return nil
	}
	return s.Save(kept)
}

// Set loads the contacts as a lookup set for classification.
func (s *Store) Set() triage.ContactSet {
	return triage.NewContactSet(s.Load()...)
}

// Normalize lower-cases, trims, deduplicates and sorts addresses, dropping
// blanks.
func Normalize(addresses []string) []string {
	seen := make(map[string]bool, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = normalize(addr)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
