package domain

import "time"

// Message represents a resolved platform message. It is transient: fetched
// for validation and rendering, never persisted.
type Message struct {
	ID            string
	ChannelID     string
	AuthorID      string
	AuthorName    string
	Content       string
	AttachmentURL string
	Timestamp     time.Time

	// Mentions maps mentioned user IDs to usernames, for rewriting mention
	// markup into readable text.
	Mentions map[string]string
}

// OlderThan reports whether the message was authored more than d before now.
func (m *Message) OlderThan(d time.Duration, now time.Time) bool {
	return m.Timestamp.Before(now.Add(-d))
}
