package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ayu-dev/starboard/internal/biz/domain"
	"github.com/ayu-dev/starboard/internal/biz/repo"
	"github.com/ayu-dev/starboard/internal/infra/discord"
)

// discordRepo implements the platform repository over the Discord REST API.
type discordRepo struct {
	client *discord.Client
}

// NewDiscordRepo creates a new Discord platform repository.
func NewDiscordRepo(client *discord.Client) repo.PlatformRepo {
	return &discordRepo{client: client}
}

// FetchMessage fetches a single message by fetching the one message created
// strictly before id+1, then verifying the ID. A mismatch means the message
// is gone (or the ID was bogus) and maps to domain.ErrMessageNotFound.
func (r *discordRepo) FetchMessage(ctx context.Context, channelID, messageID string) (*domain.Message, error) {
	id, err := strconv.ParseUint(messageID, 10, 64)
	if err != nil {
		return nil, domain.ErrMessageNotFound
	}
	before := strconv.FormatUint(id+1, 10)

	msgs, err := r.client.GetMessagesBefore(ctx, channelID, before, 1)
	if err != nil {
		if errors.Is(err, discord.ErrNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	if len(msgs) == 0 || msgs[0].ID != messageID {
		return nil, domain.ErrMessageNotFound
	}

	return toDomainMessage(&msgs[0]), nil
}

// SendMessage posts text to a channel.
func (r *discordRepo) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	msg, err := r.client.CreateMessage(ctx, channelID, text)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return msg.ID, nil
}

// EditMessage replaces a message's text.
func (r *discordRepo) EditMessage(ctx context.Context, channelID, messageID, text string) error {
	if err := r.client.EditMessage(ctx, channelID, messageID, text); err != nil {
		if errors.Is(err, discord.ErrNotFound) {
			return domain.ErrMessageNotFound
		}
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message. A message that is already gone is fine.
func (r *discordRepo) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := r.client.DeleteMessage(ctx, channelID, messageID); err != nil {
		if errors.Is(err, discord.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// ChannelExists reports whether a channel is still live.
func (r *discordRepo) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	_, err := r.client.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, discord.ErrNotFound) || errors.Is(err, discord.ErrForbidden) {
			return false, nil
		}
		return false, fmt.Errorf("get channel: %w", err)
	}
	return true, nil
}

// CreateChannel creates a guild text channel with permission overwrites.
func (r *discordRepo) CreateChannel(ctx context.Context, guildID, name string, overwrites []repo.PermissionOverwrite) (string, error) {
	wire := make([]discord.PermissionOverwrite, 0, len(overwrites))
	for _, o := range overwrites {
		wire = append(wire, discord.PermissionOverwrite{
			ID:    o.ID,
			Type:  o.Type,
			Allow: strconv.FormatInt(o.Allow, 10),
			Deny:  strconv.FormatInt(o.Deny, 10),
		})
	}

	ch, err := r.client.CreateGuildChannel(ctx, guildID, name, wire)
	if err != nil {
		switch {
		case errors.Is(err, discord.ErrForbidden):
			return "", domain.ErrForbidden
		case errors.Is(err, discord.ErrBadRequest):
			return "", domain.ErrBadChannelName
		}
		return "", fmt.Errorf("create channel: %w", err)
	}
	return ch.ID, nil
}

// toDomainMessage converts a wire message to the domain form.
func toDomainMessage(m *discord.Message) *domain.Message {
	msg := &domain.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
	}
	if len(m.Attachments) > 0 {
		msg.AttachmentURL = m.Attachments[0].URL
	}
	if len(m.Mentions) > 0 {
		msg.Mentions = make(map[string]string, len(m.Mentions))
		for _, u := range m.Mentions {
			msg.Mentions[u.ID] = u.Username
		}
	}
	return msg
}
