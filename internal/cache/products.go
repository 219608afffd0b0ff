package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Skotchmaster/warehouse/internal/models"
)

const (
	keyPrefix = "warehouse:product:"
	genPrefix = "warehouse:product-gen:"
	genTTL    = 24 * time.Hour
)

var ErrMiss = errors.New("cache miss")

func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// ProductCache stores products as JSON under warehouse:product:<id>. Each
// product also has a generation counter under warehouse:product-gen:<id>
// that Delete bumps, so a read-through Set racing an invalidation is
// dropped instead of storing a stale row.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func key(id uint) string {
	return keyPrefix + strconv.FormatUint(uint64(id), 10)
}

func genKey(id uint) string {
	return genPrefix + strconv.FormatUint(uint64(id), 10)
}

func parseGen(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// Get returns the cached product together with the current generation. On
// a miss the generation is still returned so the caller can hand it to Set.
func (c *ProductCache) Get(ctx context.Context, id uint) (*models.Product, int64, error) {
	vals, err := c.client.MGet(ctx, key(id), genKey(id)).Result()
	if err != nil {
		return nil, 0, err
	}
	gen, err := parseGen(vals[1])
	if err != nil {
		return nil, 0, fmt.Errorf("decode generation of product %d: %w", id, err)
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, ErrMiss
	}
	var p models.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, gen, fmt.Errorf("decode cached product %d: %w", id, err)
	}
	return &p, gen, nil
}

// Set stores p only while the generation still equals gen. A concurrent
// Delete makes it a no-op.
func (c *ProductCache) Set(ctx context.Context, p *models.Product, gen int64) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	gk := genKey(p.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(p.ID), raw, c.ttl)
			return nil
		})
		return err
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *ProductCache) Delete(ctx context.Context, id uint) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key(id))
		pipe.Incr(ctx, genKey(id))
		pipe.Expire(ctx, genKey(id), genTTL)
		return nil
	})
	return err
}
