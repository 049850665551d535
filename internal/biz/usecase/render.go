package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ayu-dev/starboard/internal/biz/domain"
)

// MaxBoardMessageLen is the platform's message length ceiling. A render that
// would exceed it is rejected, never truncated.
const MaxBoardMessageLen = 2000

// starIcon picks the tier icon for a star count. The bands are contiguous
// and cover 0..infinity.
func starIcon(stars int) string {
	switch {
	case stars <= 5:
		return "⭐" // WHITE MEDIUM STAR
	case stars <= 10:
		return "\U0001f31f" // GLOWING STAR
	case stars <= 25:
		return "\U0001f4ab" // DIZZY SYMBOL
	case stars <= 50:
		return "✨" // SPARKLES
	default:
		return "\U0001f320" // SHOOTING STAR
	}
}

var mentionPattern = regexp.MustCompile(`<@[!&]?\d+>|<#\d+>`)

// cleanContent rewrites mention markup into readable text: user mentions
// become @username (via the message's mention list), role and channel
// mentions get the platform's deleted-entity placeholders, and mass mentions
// are neutralized with a zero-width space.
func cleanContent(content string, mentions map[string]string) string {
	cleaned := mentionPattern.ReplaceAllStringFunc(content, func(token string) string {
		switch {
		case strings.HasPrefix(token, "<#"):
			return "#deleted-channel"
		case strings.HasPrefix(token, "<@&"):
			return "@deleted-role"
		default:
			id := strings.TrimRight(strings.TrimLeft(token, "<@!"), ">")
			if name, ok := mentions[id]; ok {
				return "@" + name
			}
			return "@deleted-user"
		}
	})
	cleaned = strings.ReplaceAll(cleaned, "@everyone", "@\u200beveryone")
	return strings.ReplaceAll(cleaned, "@here", "@\u200bhere")
}

// RenderBoardMessage builds the one-line starboard mirror text for a message
// and its star count. It is deterministic. Returns domain.ErrTooLong when the
// result would exceed MaxBoardMessageLen; the caller must reject the
// operation before mutating any state.
func RenderBoardMessage(msg *domain.Message, stars int) (string, error) {
	content := cleanContent(msg.Content, msg.Mentions)
	if msg.AttachmentURL != "" {
		attachment := fmt.Sprintf("(attachment: %s)", msg.AttachmentURL)
		if content != "" {
			content = content + " " + attachment
		} else {
			content = attachment
		}
	}

	// <icon> <stars> <content> - <time> by <author> in <channel> (ID: <id>)
	base := starIcon(stars)
	if stars > 1 {
		base = fmt.Sprintf("%s **%d**", base, stars)
	}

	text := fmt.Sprintf("%s %s - %s by %s in <#%s> (ID: %s)",
		base,
		content,
		msg.Timestamp.UTC().Format("2006-01-02 15:04 UTC"),
		msg.AuthorName,
		msg.ChannelID,
		msg.ID,
	)

	if utf8.RuneCountInString(text) > MaxBoardMessageLen {
		return "", domain.ErrTooLong
	}
	return text, nil
}
