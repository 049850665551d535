package domain

import "time"

// EventType enumerates the gateway events the sync engine reacts to. Raw
// frames are decoded into this tagged form at the server boundary; nothing
// past that boundary inspects event names.
type EventType int

const (
	EventMessageCreate EventType = iota
	EventMessageUpdate
	EventMessageDelete
)

// GatewayEvent is a decoded gateway notification.
type GatewayEvent struct {
	Type      EventType
	GuildID   string
	ChannelID string
	MessageID string

	// Set for EventMessageCreate and content-bearing EventMessageUpdate.
	AuthorID   string
	AuthorName string
	Content    string

	// Set when the payload carries them; a full payload lets the engine
	// rebuild the message without a refetch.
	AttachmentURL string
	Timestamp     time.Time
	Mentions      map[string]string

	// HasContent distinguishes content edits from embed-only updates, which
	// carry no payload worth propagating.
	HasContent bool
}

// Message rebuilds the platform message from a full event payload, or nil
// when the payload is partial and the message has to be fetched instead.
func (ev *GatewayEvent) Message() *Message {
	if !ev.HasContent || ev.AuthorID == "" || ev.Timestamp.IsZero() {
		return nil
	}
	return &Message{
		ID:            ev.MessageID,
		ChannelID:     ev.ChannelID,
		AuthorID:      ev.AuthorID,
		AuthorName:    ev.AuthorName,
		Content:       ev.Content,
		AttachmentURL: ev.AttachmentURL,
		Timestamp:     ev.Timestamp,
		Mentions:      ev.Mentions,
	}
}
