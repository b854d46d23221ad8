package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/book"
	"github.com/barbosa7/bookdesk/internal/domain"
)

// ladderTTL bounds how stale a cached ladder can be. A restarted client only
// wants a warm start, not yesterday's book.
const ladderTTL = 10 * time.Minute

// LadderCache implements domain.LadderCache.
//
// Key schema, per competition:
//
//	ladder:{competitionID}:prices - sorted set of levels (score = price)
//	ladder:{competitionID}:bid    - hash mapping price -> bid quantity
//	ladder:{competitionID}:ask    - hash mapping price -> ask quantity
//	ladder:{competitionID}:meta   - hash with "ts" field (snapshot timestamp)
type LadderCache struct {
	rdb *redis.Client
}

// NewLadderCache creates a LadderCache backed by the given Client.
func NewLadderCache(c *Client) *LadderCache {
	return &LadderCache{rdb: c.Underlying()}
}

func ladderPricesKey(competitionID string) string { return "ladder:" + competitionID + ":prices" }
func ladderBidKey(competitionID string) string    { return "ladder:" + competitionID + ":bid" }
func ladderAskKey(competitionID string) string    { return "ladder:" + competitionID + ":ask" }
func ladderMetaKey(competitionID string) string   { return "ladder:" + competitionID + ":meta" }

// SetLadder atomically replaces the cached ladder for a competition. Existing
// keys are cleared and repopulated in a single transaction so readers never
// observe a half-written ladder.
func (lc *LadderCache) SetLadder(ctx context.Context, competitionID string, levels []domain.PriceLevel) error {
	pricesKey := ladderPricesKey(competitionID)
	bidKey := ladderBidKey(competitionID)
	askKey := ladderAskKey(competitionID)
	metaKey := ladderMetaKey(competitionID)

	pipe := lc.rdb.TxPipeline()
	pipe.Del(ctx, pricesKey, bidKey, askKey)

	for _, lvl := range levels {
		price := lvl.Price.StringFixed(book.PriceScale)
		score, _ := lvl.Price.Float64()
		pipe.ZAdd(ctx, pricesKey, redis.Z{Score: score, Member: price})
		if lvl.BidQuantity > 0 {
			pipe.HSet(ctx, bidKey, price, lvl.BidQuantity)
		}
		if lvl.AskQuantity > 0 {
			pipe.HSet(ctx, askKey, price, lvl.AskQuantity)
		}
	}
	pipe.HSet(ctx, metaKey, "ts", time.Now().UnixMilli())

	for _, key := range []string{pricesKey, bidKey, askKey, metaKey} {
		pipe.Expire(ctx, key, ladderTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set ladder %s: %w", competitionID, err)
	}
	return nil
}

// GetLadder returns the cached ladder, highest price first. A missing or
// expired ladder returns nil with no error.
func (lc *LadderCache) GetLadder(ctx context.Context, competitionID string) ([]domain.PriceLevel, error) {
	prices, err := lc.rdb.ZRevRange(ctx, ladderPricesKey(competitionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get ladder %s: %w", competitionID, err)
	}
	if len(prices) == 0 {
		return nil, nil
	}

	pipe := lc.rdb.Pipeline()
	bidCmd := pipe.HGetAll(ctx, ladderBidKey(competitionID))
	askCmd := pipe.HGetAll(ctx, ladderAskKey(competitionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: get ladder sizes %s: %w", competitionID, err)
	}
	bids := bidCmd.Val()
	asks := askCmd.Val()

	levels := make([]domain.PriceLevel, 0, len(prices))
	for _, p := range prices {
		price, err := decimal.NewFromString(p)
		if err != nil {
			return nil, fmt.Errorf("redis: corrupt ladder price %q: %w", p, err)
		}
		lvl := domain.PriceLevel{Price: price}
		if raw, ok := bids[p]; ok {
			if lvl.BidQuantity, err = strconv.ParseInt(raw, 10, 64); err != nil {
				return nil, fmt.Errorf("redis: corrupt bid quantity %q: %w", raw, err)
			}
		}
		if raw, ok := asks[p]; ok {
			if lvl.AskQuantity, err = strconv.ParseInt(raw, 10, 64); err != nil {
				return nil, fmt.Errorf("redis: corrupt ask quantity %q: %w", raw, err)
			}
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}
