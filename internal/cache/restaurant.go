package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andrevks/qrdine/internal/models"
)

// RestaurantCache keeps code→restaurant lookups out of Postgres for the hot
// path where every customer page load resolves the code from the QR URL.
// All operations are best-effort: a Redis error reads as a miss.
type RestaurantCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRestaurantCache(client *redis.Client, ttl time.Duration) *RestaurantCache {
	return &RestaurantCache{Client: client, TTL: ttl}
}

func key(code string) string {
	return "restaurant:code:" + strings.ToLower(code)
}

func (c *RestaurantCache) Get(ctx context.Context, code string) (*models.Restaurant, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}
	raw, err := c.Client.Get(ctx, key(code)).Bytes()
	if err != nil {
		return nil, false
	}
	var r models.Restaurant
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	return &r, true
}

func (c *RestaurantCache) Set(ctx context.Context, r *models.Restaurant) {
	if c == nil || c.Client == nil {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	c.Client.Set(ctx, key(r.Code), raw, c.TTL)
}

func (c *RestaurantCache) Invalidate(ctx context.Context, code string) {
	if c == nil || c.Client == nil {
		return
	}
	c.Client.Del(ctx, key(code))
}
