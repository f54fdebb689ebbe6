package revalidate

import (
	"context"

	redisc "github.com/pagemill/core/internal/pkg/redis"
	"go.uber.org/zap"
)

const (
	// Channel carries invalidated slugs for external caches (CDN workers,
	// frontend revalidation hooks) subscribed via Redis pub/sub.
	Channel = "pm:revalidate"

	// PageCacheKeyPrefix must match the public page cache middleware.
	PageCacheKeyPrefix = "pm:page-cache:"
)

// Broadcaster invalidates the cached public payload for a slug and announces
// the change to external caching layers. It signals on every state or content
// change that affects public visibility; it does not own any cache itself.
type Broadcaster struct {
	rc     *redisc.Client
	logger *zap.Logger
}

func NewBroadcaster(rc *redisc.Client, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{rc: rc, logger: logger}
}

// InvalidateSlug drops the locally cached response for slug and publishes the
// slug on the revalidation channel. Both operations are best-effort: a cache
// that cannot be purged only means one stale TTL window, so errors are logged
// rather than propagated into the write path.
func (b *Broadcaster) InvalidateSlug(ctx context.Context, slug string) {
	if b == nil || b.rc == nil || slug == "" {
		return
	}
	if err := b.rc.Del(ctx, PageCacheKeyPrefix+slug); err != nil {
		b.log("purge page cache", slug, err)
	}
	if err := b.rc.Publish(ctx, Channel, slug); err != nil {
		b.log("publish revalidation", slug, err)
	}
}

func (b *Broadcaster) log(op, slug string, err error) {
	if b.logger == nil {
		return
	}
	b.logger.Warn("revalidate: "+op+" failed", zap.String("slug", slug), zap.Error(err))
}
