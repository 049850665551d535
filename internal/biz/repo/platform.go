package repo

import (
	"context"

	"github.com/ayu-dev/starboard/internal/biz/domain"
)

// PermissionOverwrite restricts a role or user in a created channel.
type PermissionOverwrite struct {
	ID    string // role or user ID
	Type  int    // 0 = role, 1 = member
	Allow int64
	Deny  int64
}

// PlatformRepo is the chat-platform client interface consumed by the sync
// engine. Implementations talk to the platform's REST API.
type PlatformRepo interface {
	// FetchMessage fetches a single message by channel and ID. Returns
	// domain.ErrMessageNotFound if the platform no longer has it.
	FetchMessage(ctx context.Context, channelID, messageID string) (*domain.Message, error)

	// SendMessage posts text to a channel and returns the new message ID.
	SendMessage(ctx context.Context, channelID, text string) (string, error)

	// EditMessage replaces a message's text. Returns domain.ErrMessageNotFound
	// if the message is gone.
	EditMessage(ctx context.Context, channelID, messageID, text string) error

	// DeleteMessage removes a message. Missing messages are not an error.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// ChannelExists reports whether a channel is still live on the platform.
	ChannelExists(ctx context.Context, channelID string) (bool, error)

	// CreateChannel creates a guild text channel with the given permission
	// overwrites. Returns domain.ErrForbidden or domain.ErrBadChannelName on
	// the corresponding platform rejections.
	CreateChannel(ctx context.Context, guildID, name string, overwrites []PermissionOverwrite) (string, error)
}
