package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const insightTTL = 24 * time.Hour

// InsightCache keeps normalized insight text keyed by protected
// content handle and query. Confidential runs take minutes; repeating
// a question against the same protected document should not pay that
// cost twice. Backend trouble degrades to cache misses.
type InsightCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewInsightCache(client *redis.Client) *InsightCache {
	return &InsightCache{client: client, logger: slog.Default()}
}

func (c *InsightCache) GetInsight(ctx context.Context, contentHandle, query string) (string, bool) {
	val, err := c.client.Get(ctx, insightKey(contentHandle, query)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("insight cache get failed", "error", err)
		}
		return "", false
	}
	return val, true
}

func (c *InsightCache) SetInsight(ctx context.Context, contentHandle, query, text string) {
	if err := c.client.Set(ctx, insightKey(contentHandle, query), text, insightTTL).Err(); err != nil {
		c.logger.Warn("insight cache set failed", "error", err)
	}
}

func insightKey(contentHandle, query string) string {
	sum := sha256.Sum256([]byte(query))
	return "insight:" + contentHandle + ":" + hex.EncodeToString(sum[:])
}
