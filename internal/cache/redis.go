package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Domenick1991/fieldbooking/config"
	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	branchesTTL time.Duration
	snapshotTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, branchesTTL, snapshotTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		branchesTTL: branchesTTL,
		snapshotTTL: snapshotTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetBranches(ctx context.Context, key string) ([]domain.Branch, error) {
	var branches []domain.Branch
	found, err := c.getJSON(ctx, branchesKey(key), &branches)
	if err != nil || !found {
		return nil, err
	}
	return branches, nil
}

func (c *RedisCache) SetBranches(ctx context.Context, key string, branches []domain.Branch) error {
	return c.setJSON(ctx, branchesKey(key), branches, c.branchesTTL)
}

// SaveSnapshot overwrites the room's previous snapshot.
func (c *RedisCache) SaveSnapshot(ctx context.Context, room string, snapshot domain.FieldAvailability) error {
	return c.setJSON(ctx, snapshotKey(room), snapshot, c.snapshotTTL)
}

// LatestSnapshot returns nil without error when nothing was pushed for room yet.
func (c *RedisCache) LatestSnapshot(ctx context.Context, room string) (*domain.FieldAvailability, error) {
	var snapshot domain.FieldAvailability
	found, err := c.getJSON(ctx, snapshotKey(room), &snapshot)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func branchesKey(query string) string {
	return "cache:branches:" + query
}

func snapshotKey(room string) string {
	return "snapshot:" + room
}
