package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// latestPriceKey holds the most recent accepted oracle price, mirrored out
// of the engine so read traffic never touches the engine mutex.
const latestPriceKey = "price:latest"

// PriceCache implements domain.PriceCache using a Redis hash with fields
// "price", "ts", and "by".
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

// Set mirrors the latest accepted price point.
func (pc *PriceCache) Set(ctx context.Context, point domain.PricePoint) error {
	fields := map[string]interface{}{
		"price": strconv.FormatUint(point.Price, 10),
		"ts":    strconv.FormatUint(point.Timestamp, 10),
		"by":    point.ReportedBy.Hex(),
	}
	if err := pc.rdb.HSet(ctx, latestPriceKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: set latest price: %w", err)
	}
	return nil
}

// Get retrieves the mirrored price point. It returns domain.ErrNotFound when
// no price has been mirrored yet.
func (pc *PriceCache) Get(ctx context.Context) (domain.PricePoint, error) {
	vals, err := pc.rdb.HGetAll(ctx, latestPriceKey).Result()
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("redis: get latest price: %w", err)
	}
	if len(vals) == 0 {
		return domain.PricePoint{}, domain.ErrNotFound
	}

	price, err := strconv.ParseUint(vals["price"], 10, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("redis: parse latest price: %w", err)
	}
	ts, err := strconv.ParseUint(vals["ts"], 10, 64)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("redis: parse latest price ts: %w", err)
	}

	return domain.PricePoint{
		Price:      price,
		Timestamp:  ts,
		ReportedBy: common.HexToAddress(vals["by"]),
	}, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
