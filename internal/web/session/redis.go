package session

import (
	"github.com/gofiber/storage/redis/v3"
	goredis "github.com/redis/go-redis/v9"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
)

// NewRedisStorage returns the gofiber redis storage for cfg.
// The client connects lazily, so an unreachable server surfaces on first use.
// Reset flushes the whole database, keep sessions in a database of their own.
func NewRedisStorage(cfg config.Redis) *redis.Storage {
	return redis.NewFromConnection(goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}))
}
