package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ayu-dev/starboard/internal/biz/domain"
	"github.com/ayu-dev/starboard/internal/biz/repo"
	"github.com/ayu-dev/starboard/internal/biz/usecase"
)

// StarboardService handles the user-facing star and starboard commands:
// validation feedback, reply texts, and command-message cleanup.
type StarboardService struct {
	starUC   *usecase.StarUsecase
	platform repo.PlatformRepo
}

// NewStarboardService creates a new starboard service.
func NewStarboardService(starUC *usecase.StarUsecase, platform repo.PlatformRepo) *StarboardService {
	return &StarboardService{starUC: starUC, platform: platform}
}

// Star handles the star command: the user in channelID stars messageID. The
// invoking command message is deleted best-effort on success since it is
// spammy.
func (s *StarboardService) Star(ctx context.Context, guildID, channelID, messageID, starrerID, commandMessageID string) {
	if _, err := strconv.ParseUint(messageID, 10, 64); err != nil {
		s.reply(ctx, channelID, "That is not a valid message ID. Use Developer Mode to get the Copy ID option.")
		return
	}

	result, err := s.starUC.Star(ctx, guildID, channelID, messageID, starrerID)
	if err != nil {
		s.reply(ctx, channelID, starErrorText(err))
		return
	}

	_ = s.platform.DeleteMessage(ctx, channelID, commandMessageID)

	fmt.Printf("[Starboard] %s starred %s in guild %s (stars=%d, created=%v)\n",
		starrerID, messageID, guildID, result.Stars, result.Created)
}

// Setup handles the starboard command: create the board channel for a guild.
func (s *StarboardService) Setup(ctx context.Context, guildID, channelID, name string) {
	if name == "" {
		name = "starboard"
	}

	boardChannelID, err := s.starUC.SetupBoard(ctx, guildID, name)
	if err != nil {
		s.reply(ctx, channelID, setupErrorText(err))
		return
	}

	s.reply(ctx, channelID, fmt.Sprintf("🌟 Starboard created at <#%s>", boardChannelID))
}

// HandleMessageUpdate propagates an original-message edit to its mirror.
func (s *StarboardService) HandleMessageUpdate(ctx context.Context, ev *domain.GatewayEvent) {
	if err := s.starUC.HandleMessageUpdate(ctx, ev); err != nil {
		fmt.Printf("[Starboard] Update propagation error: %v\n", err)
	}
}

// HandleMessageDelete purges ledger entries for mirrors deleted externally.
func (s *StarboardService) HandleMessageDelete(ctx context.Context, ev *domain.GatewayEvent) {
	if err := s.starUC.HandleMessageDelete(ctx, ev); err != nil {
		fmt.Printf("[Starboard] Delete handling error: %v\n", err)
	}
}

func (s *StarboardService) reply(ctx context.Context, channelID, text string) {
	if _, err := s.platform.SendMessage(ctx, channelID, text); err != nil {
		fmt.Printf("[Starboard] Failed to send reply: %v\n", err)
	}
}

// starErrorText maps a star failure to the reply shown to the user.
func starErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrBoardNotConfigured):
		return "⚠️ Starboard channel not found."
	case errors.Is(err, domain.ErrAlreadyStarred):
		return "🚫 You already starred this message."
	case errors.Is(err, domain.ErrOwnMessage):
		return "🚫 You cannot star your own message."
	case errors.Is(err, domain.ErrBoardChannel):
		return "🚫 You cannot star messages in the starboard."
	case errors.Is(err, domain.ErrTooOld):
		return "🚫 This message is older than 7 days."
	case errors.Is(err, domain.ErrTooLong):
		return "🚫 This message is too big to be starred."
	case errors.Is(err, domain.ErrMessageNotFound):
		return "❓ This message could not be found."
	default:
		return "⚠️ Something went wrong starring that message. Try again later."
	}
}

// setupErrorText maps a setup failure to the reply shown to the admin.
func setupErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrBoardExists):
		return "🚫 This server already has a starboard."
	case errors.Is(err, domain.ErrForbidden):
		return "🚫 I do not have permissions to create a channel."
	case errors.Is(err, domain.ErrBadChannelName):
		return "🔫 This channel name is bad or an unknown error happened."
	default:
		return "⚠️ Failed to create the starboard. Try again later."
	}
}
