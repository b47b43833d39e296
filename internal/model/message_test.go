package model

import "testing"

func TestDedupKeyPrefersMessageID(t *testing.T) {
	msg := Message{UID: 7, MessageID: "<m1@example.com>"}
	if got := msg.DedupKey(); got != "<m1@example.com>" {
		t.Fatalf("expected message id key, got %q", got)
	}
}

func TestDedupKeyFallsBackToUID(t *testing.T) {
	msg := Message{UID: 7}
	if got := msg.DedupKey(); got != "uid:7" {
		t.Fatalf("expected uid key, got %q", got)
	}
}
