package repo

import (
	"context"

	"github.com/ayu-dev/starboard/internal/biz/domain"
)

// BoardRepo is the starboard persistence interface. Reads and writes are
// atomic at guild granularity.
type BoardRepo interface {
	// Get loads a guild's board config. Absent guilds yield an empty config.
	Get(ctx context.Context, guildID string) (*domain.BoardConfig, error)

	// Put writes a guild's board config back, replacing the previous record.
	Put(ctx context.Context, guildID string, cfg *domain.BoardConfig) error

	// Remove deletes a guild's record entirely.
	Remove(ctx context.Context, guildID string) error

	// Close releases the underlying store.
	Close() error
}
