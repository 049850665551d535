package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayu-dev/starboard/internal/biz/domain"
	"github.com/ayu-dev/starboard/internal/biz/repo"
)

// DefaultMaxStarAge is the eligibility window: messages older than this
// cannot receive stars.
const DefaultMaxStarAge = 7 * 24 * time.Hour

// Channel permission bits used for the starboard channel overwrites.
const (
	permViewChannel  = 1 << 10
	permSendMessages = 1 << 11
)

// StarUsecase is the synchronization engine between original messages and
// their starboard mirrors. All transitions on a guild's ledger are serialized
// behind a per-guild lock; guilds are fully independent.
type StarUsecase struct {
	boardRepo repo.BoardRepo
	platform  repo.PlatformRepo
	resolver  *MessageResolver
	maxAge    time.Duration
	botUserID string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStarUsecase creates the sync engine. botUserID may be empty; it is only
// used to grant the bot access in created starboard channels.
func NewStarUsecase(
	boardRepo repo.BoardRepo,
	platform repo.PlatformRepo,
	resolver *MessageResolver,
	maxAge time.Duration,
	botUserID string,
) *StarUsecase {
	if maxAge <= 0 {
		maxAge = DefaultMaxStarAge
	}
	return &StarUsecase{
		boardRepo: boardRepo,
		platform:  platform,
		resolver:  resolver,
		maxAge:    maxAge,
		botUserID: botUserID,
		locks:     make(map[string]*sync.Mutex),
	}
}

// guildLock returns the mutex serializing transitions for one guild.
func (uc *StarUsecase) guildLock(guildID string) *sync.Mutex {
	uc.locksMu.Lock()
	defer uc.locksMu.Unlock()

	lock, ok := uc.locks[guildID]
	if !ok {
		lock = &sync.Mutex{}
		uc.locks[guildID] = lock
	}
	return lock
}

// StarResult describes the outcome of a successful star.
type StarResult struct {
	BoardMessageID string
	Stars          int
	Created        bool // a new mirror was posted rather than edited
}

// Star records one user's star on a message and brings the mirror in sync:
// the first star posts the mirror, later stars edit its count. Validation
// failures return a domain sentinel with no state mutated and no platform
// call issued. A mirror that turns out to be deleted externally is purged and
// the star retried against a fresh entry.
func (uc *StarUsecase) Star(ctx context.Context, guildID, channelID, messageID, starrerID string) (*StarResult, error) {
	lock := uc.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := uc.boardRepo.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if !cfg.Configured() {
		return nil, domain.ErrBoardNotConfigured
	}
	if channelID == cfg.ChannelID {
		return nil, domain.ErrBoardChannel
	}

	entry := cfg.Entry(messageID)
	if entry != nil && entry.HasStarrer(starrerID) {
		return nil, domain.ErrAlreadyStarred
	}

	msg, err := uc.resolver.Resolve(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID == starrerID {
		return nil, domain.ErrOwnMessage
	}
	if msg.OlderThan(uc.maxAge, time.Now()) {
		return nil, domain.ErrTooOld
	}

	// Render before mutating anything so a too-long result rejects cleanly.
	stars := 1
	if entry != nil {
		stars = entry.Stars() + 1
	}
	text, err := RenderBoardMessage(msg, stars)
	if err != nil {
		return nil, err
	}

	if entry == nil || entry.BoardMessageID == "" {
		return uc.postMirror(ctx, guildID, cfg, messageID, starrerID, text)
	}

	// The edit doubles as the existence probe for the mirror.
	if err := uc.platform.EditMessage(ctx, cfg.ChannelID, entry.BoardMessageID, text); err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			// Someone deleted the mirror directly. Purge and restart the
			// lifecycle with this star as the first one.
			cfg.Purge(messageID)
			text, err := RenderBoardMessage(msg, 1)
			if err != nil {
				return nil, err
			}
			return uc.postMirror(ctx, guildID, cfg, messageID, starrerID, text)
		}
		return nil, fmt.Errorf("edit board message: %w", err)
	}

	if _, err := cfg.AddStar(messageID, starrerID); err != nil {
		return nil, err
	}
	if err := uc.boardRepo.Put(ctx, guildID, cfg); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	return &StarResult{BoardMessageID: entry.BoardMessageID, Stars: entry.Stars()}, nil
}

// postMirror creates the mirror message and persists the fresh entry.
func (uc *StarUsecase) postMirror(ctx context.Context, guildID string, cfg *domain.BoardConfig, messageID, starrerID, text string) (*StarResult, error) {
	boardMsgID, err := uc.platform.SendMessage(ctx, cfg.ChannelID, text)
	if err != nil {
		return nil, fmt.Errorf("send board message: %w", err)
	}

	entry, err := cfg.AddStar(messageID, starrerID)
	if err != nil {
		return nil, err
	}
	entry.BoardMessageID = boardMsgID

	if err := uc.boardRepo.Put(ctx, guildID, cfg); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	return &StarResult{BoardMessageID: boardMsgID, Stars: entry.Stars(), Created: true}, nil
}

// HandleMessageUpdate propagates an edit of a starred original to its mirror.
// The propagation is best-effort: failures (message gone, new content too
// long, platform down) drop the edit without touching the ledger.
func (uc *StarUsecase) HandleMessageUpdate(ctx context.Context, ev *domain.GatewayEvent) error {
	// Embed-only updates carry no content worth propagating.
	if !ev.HasContent {
		return nil
	}

	lock := uc.guildLock(ev.GuildID)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := uc.boardRepo.Get(ctx, ev.GuildID)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if !cfg.Configured() {
		return nil
	}
	entry := cfg.Entry(ev.MessageID)
	if entry == nil || entry.BoardMessageID == "" {
		return nil
	}

	// A full payload carries the edited message; seed the cache with it and
	// spare the refetch. Partial payloads force one.
	if updated := ev.Message(); updated != nil {
		uc.resolver.Store(updated)
	} else {
		uc.resolver.Invalidate(ev.MessageID)
	}
	msg, err := uc.resolver.Resolve(ctx, ev.ChannelID, ev.MessageID)
	if err != nil {
		return nil
	}

	// Count is unchanged by an edit. A render past the ceiling leaves the
	// mirror's previous text standing.
	text, err := RenderBoardMessage(msg, entry.Stars())
	if err != nil {
		return nil
	}
	_ = uc.platform.EditMessage(ctx, cfg.ChannelID, entry.BoardMessageID, text)
	return nil
}

// HandleMessageDelete purges the ledger entry whose mirror was deleted from
// the starboard channel. Deletes anywhere else are ignored: removing an
// original leaves its mirror standing as an archival record.
func (uc *StarUsecase) HandleMessageDelete(ctx context.Context, ev *domain.GatewayEvent) error {
	lock := uc.guildLock(ev.GuildID)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := uc.boardRepo.Get(ctx, ev.GuildID)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if !cfg.Configured() || ev.ChannelID != cfg.ChannelID {
		return nil
	}

	messageID := cfg.FindByBoardMessage(ev.MessageID)
	if messageID == "" {
		return nil
	}

	cfg.Purge(messageID)
	if err := uc.boardRepo.Put(ctx, ev.GuildID, cfg); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}

// SetupBoard creates the starboard channel for a guild. It fails with
// domain.ErrBoardExists while the recorded channel is still live; a channel
// deleted out from under us allows reconfiguration, clearing the old star
// data.
func (uc *StarUsecase) SetupBoard(ctx context.Context, guildID, name string) (string, error) {
	lock := uc.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := uc.boardRepo.Get(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("load board: %w", err)
	}
	if cfg.Configured() {
		live, err := uc.platform.ChannelExists(ctx, cfg.ChannelID)
		if err != nil {
			return "", fmt.Errorf("check board channel: %w", err)
		}
		if live {
			return "", domain.ErrBoardExists
		}
		// The channel is gone, so its star data is invalid. Drop the record
		// now; a failed creation below should not leave it behind.
		if err := uc.boardRepo.Remove(ctx, guildID); err != nil {
			return "", fmt.Errorf("remove stale board: %w", err)
		}
	}

	// Best-effort restrictive overwrites: everyone reads, only the bot posts.
	overwrites := []repo.PermissionOverwrite{
		{ID: guildID, Type: 0, Deny: permSendMessages},
	}
	if uc.botUserID != "" {
		overwrites = append(overwrites, repo.PermissionOverwrite{
			ID: uc.botUserID, Type: 1, Allow: permViewChannel | permSendMessages,
		})
	}

	channelID, err := uc.platform.CreateChannel(ctx, guildID, name, overwrites)
	if err != nil {
		return "", err
	}

	// A dead previous channel invalidates all of its star data.
	fresh := domain.NewBoardConfig()
	fresh.ChannelID = channelID
	if err := uc.boardRepo.Put(ctx, guildID, fresh); err != nil {
		return "", fmt.Errorf("save board: %w", err)
	}
	return channelID, nil
}
