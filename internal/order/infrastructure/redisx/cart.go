package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyCart = "cart:%s"

// CartCache removes a customer's cart after a successful checkout.
type CartCache struct {
	rdb *redis.Client
}

func NewCartCache(rdb *redis.Client) *CartCache {
	return &CartCache{rdb: rdb}
}

func (c *CartCache) ClearCart(ctx context.Context, customerID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(keyCart, customerID)).Err()
}
