package lib

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestSessionOrderCacheRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	NewRedisClient(client)

	key := "checkout:cs_test_123:order"
	mock.ExpectSetEx(key, "ORD-20260830-ABC123", time.Hour).SetVal("OK")
	CacheSessionOrder(context.Background(), "cs_test_123", "ORD-20260830-ABC123", time.Hour)

	mock.ExpectGet(key).SetVal("ORD-20260830-ABC123")
	got := GetCachedSessionOrder(context.Background(), "cs_test_123")
	assert.Equal(t, "ORD-20260830-ABC123", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCachedSessionOrderMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	NewRedisClient(client)

	mock.ExpectGet("checkout:cs_missing:order").RedisNil()
	assert.Equal(t, "", GetCachedSessionOrder(context.Background(), "cs_missing"))
}
