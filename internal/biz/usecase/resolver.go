package usecase

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ayu-dev/starboard/internal/biz/domain"
	"github.com/ayu-dev/starboard/internal/biz/repo"
)

// DefaultResolverCacheSize bounds the resolver cache to the working set of
// recently starred messages.
const DefaultResolverCacheSize = 256

// MessageResolver resolves (channel, message) pairs to message content,
// caching results to spare the platform redundant fetches. Cached messages
// are immutable; edits are handled by invalidating the stale entry.
type MessageResolver struct {
	platform repo.PlatformRepo
	cache    *lru.Cache[string, *domain.Message]
}

// NewMessageResolver creates a resolver with a bounded LRU cache.
func NewMessageResolver(platform repo.PlatformRepo, cacheSize int) (*MessageResolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultResolverCacheSize
	}
	cache, err := lru.New[string, *domain.Message](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create resolver cache: %w", err)
	}
	return &MessageResolver{platform: platform, cache: cache}, nil
}

// Resolve returns the message, fetching from the platform at most once per
// uncached lookup. Returns domain.ErrMessageNotFound if the platform no
// longer has the message.
func (r *MessageResolver) Resolve(ctx context.Context, channelID, messageID string) (*domain.Message, error) {
	if msg, ok := r.cache.Get(messageID); ok {
		return msg, nil
	}

	msg, err := r.platform.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}

	r.cache.Add(messageID, msg)
	return msg, nil
}

// Invalidate drops a cached message, forcing the next Resolve to fetch.
func (r *MessageResolver) Invalidate(messageID string) {
	r.cache.Remove(messageID)
}

// Store caches a message obtained out of band (e.g. from an edit payload).
func (r *MessageResolver) Store(msg *domain.Message) {
	r.cache.Add(msg.ID, msg)
}
