package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/similarity"
	"github.com/spigell/mentor-matcher/internal/utils"
)

const defaultKeyPrefix = "mentor-matcher"

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Redis stores explanations with SETNX so concurrent writers keep the first entry.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisFromClient(client, cfg.Prefix, cfg.TTL)
}

// NewRedisFromClient wraps an existing client. A zero ttl keeps entries forever.
func NewRedisFromClient(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) explanationKey(k explain.Key) string {
	return r.prefix + ":explanation:" + utils.JoinKey(":", k.CohortID, k.MenteeID, k.MentorID)
}

func (r *Redis) embeddingKey(k similarity.EmbeddingKey) string {
	return r.prefix + ":embedding:" + utils.JoinKey(":", k.CohortID, k.Model, k.ParticipantID)
}

func (r *Redis) Get(ctx context.Context, key explain.Key) (explain.Entry, bool, error) {
	raw, err := r.client.Get(ctx, r.explanationKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return explain.Entry{}, false, nil
	}
	if err != nil {
		return explain.Entry{}, false, fmt.Errorf("get explanation %s: %w", key, err)
	}

	var entry explain.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return explain.Entry{}, false, fmt.Errorf("decode explanation %s: %w", key, err)
	}
	return entry, true, nil
}

func (r *Redis) Put(ctx context.Context, key explain.Key, entry explain.Entry) (explain.Entry, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return explain.Entry{}, fmt.Errorf("encode explanation %s: %w", key, err)
	}

	stored, err := r.client.SetNX(ctx, r.explanationKey(key), data, r.ttl).Result()
	if err != nil {
		return explain.Entry{}, fmt.Errorf("store explanation %s: %w", key, err)
	}
	if stored {
		return entry, nil
	}

	existing, ok, err := r.Get(ctx, key)
	if err != nil {
		return explain.Entry{}, err
	}
	if !ok {
		// expired between SETNX and GET
		return entry, nil
	}
	return existing, nil
}

func (r *Redis) GetEmbeddings(ctx context.Context, keys []similarity.EmbeddingKey) (map[similarity.EmbeddingKey]similarity.CachedEmbedding, error) {
	out := make(map[similarity.EmbeddingKey]similarity.CachedEmbedding, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = r.embeddingKey(k)
	}

	values, err := r.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get embeddings: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry similarity.CachedEmbedding
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		out[keys[i]] = entry
	}
	return out, nil
}

func (r *Redis) PutEmbeddings(ctx context.Context, entries map[similarity.EmbeddingKey]similarity.CachedEmbedding) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode embedding %s: %w", k.ParticipantID, err)
			}
			pipe.Set(ctx, r.embeddingKey(k), data, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	return nil
}
