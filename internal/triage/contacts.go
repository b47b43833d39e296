package triage

import (
	"regexp"
	"strings"
)

var bracketedAddress = regexp.MustCompile(`<(.+?)>`)

// ContactSet is a lower-cased set of known sender addresses.
type ContactSet map[string]struct{}

func NewContactSet(addresses ...string) ContactSet {
	set := make(ContactSet, len(addresses))
	for _, addr := range addresses {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			continue
		}
		set[addr] = struct{}{}
	}
	return set
}

func (s ContactSet) Has(address string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[strings.ToLower(strings.TrimSpace(address))]
	return ok
}

// IsKnown reports whether the address inside sender belongs to the set.
func (s ContactSet) IsKnown(sender string) bool {
	return s.Has(SenderAddress(sender))
}

// SenderAddress extracts the address from "Display Name <addr>" or returns the
// whole string, lower-cased.
func SenderAddress(sender string) string {
	if m := bracketedAddress.FindStringSubmatch(sender); m != nil {
		return strings.ToLower(m[1])
	}
	return strings.ToLower(sender)
}
