package model

import "fmt"

// Message is one fetched mailbox entry. UID is only meaningful inside the
// folder it was fetched from; MessageID comes from the message header and is
// stable across folders and sessions.
type Message struct {
	UID       uint32
	MessageID string
	Subject   string
	Sender    string
	Date      string
	Body      string
}

// DedupKey prefers the Message-ID header and falls back to the UID.
func (m Message) DedupKey() string {
	if m.MessageID != "" {
		return m.MessageID
	}
	return fmt.Sprintf("uid:%d", m.UID)
}
