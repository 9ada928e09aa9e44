package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/similarity"
)

// Backend is a store usable both as explanation and embedding cache.
type Backend interface {
	explain.Cache
	similarity.EmbeddingCache
	io.Closer
}

type Config struct {
	// Backend is one of memory, redis or postgres.
	Backend  string         `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// Open connects the configured backend and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		r := NewRedis(cfg.Redis)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	case "postgres":
		p, err := OpenPostgres(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := p.Migrate(ctx); err != nil {
			_ = p.Close()
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
