package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// CacheSessionOrder maps a checkout session id to the order number so the
// webhook reconciler can skip a table scan on the hot path. Best effort; the
// database index on stripe_session_id remains the source of truth.
func CacheSessionOrder(ctx context.Context, sessionId, orderNumber string, ttl time.Duration) {
	rd := GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.SetEx(ctx, sessionOrderKey(sessionId), orderNumber, ttl).Err(); err != nil {
		log.Printf("[redis] Error caching session %s: %s\n", sessionId, err.Error())
	}
}

// GetCachedSessionOrder returns the cached order number for a session id, or
// an empty string on miss.
func GetCachedSessionOrder(ctx context.Context, sessionId string) string {
	rd := GetRedisClient()
	if rd == nil {
		return ""
	}
	val, err := rd.Get(ctx, sessionOrderKey(sessionId)).Result()
	if err == redis.Nil {
		return ""
	} else if err != nil {
		log.Printf("[redis] Error reading session cache for %s: %s\n", sessionId, err.Error())
		return ""
	}
	return val
}

func sessionOrderKey(sessionId string) string {
	return fmt.Sprintf("checkout:%s:order", sessionId)
}
