// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisStore(client)
}

func testChallenge(id string) *Challenge {
	now := time.Now()
	return &Challenge{ID: id, Phone: testPhone, Secret: "SECRET", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
}

func matchCode(want string) func(*Challenge) bool {
	return func(*Challenge) bool { return want == "ok" }
}

func TestRedisStore_Attempt(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("c1")))

	_, err := store.Attempt(ctx, "c1", matchCode("bad"), 3)
	assert.ErrorIs(t, err, errCodeMismatch)

	c, err := store.Attempt(ctx, "c1", matchCode("ok"), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Attempts)
	assert.Equal(t, testPhone, c.Phone)

	_, err = store.Attempt(ctx, "c1", matchCode("ok"), 3)
	assert.ErrorIs(t, err, errChallengeNotFound)
}

func TestRedisStore_AttemptsExceeded(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testChallenge("c1")))

	_, err := store.Attempt(ctx, "c1", matchCode("bad"), 2)
	assert.ErrorIs(t, err, errCodeMismatch)
	_, err = store.Attempt(ctx, "c1", matchCode("bad"), 2)
	assert.ErrorIs(t, err, errAttemptsExceeded)
	_, err = store.Attempt(ctx, "c1", matchCode("ok"), 2)
	assert.ErrorIs(t, err, errChallengeNotFound)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, store := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testChallenge("c1")))

	assert.True(t, mr.Exists(challengeKeyPrefix+"c1"))
	mr.FastForward(2 * time.Minute)

	_, err := store.Attempt(ctx, "c1", matchCode("ok"), 3)
	assert.ErrorIs(t, err, errChallengeNotFound)
}

func TestRedisStore_PutExpired(t *testing.T) {
	_, store := newTestRedis(t)
	c := testChallenge("c1")
	c.ExpiresAt = time.Now().Add(-time.Second)
	assert.ErrorIs(t, store.Put(context.Background(), c), errChallengeNotFound)
}

func TestRedisStore_ConcurrentVerifyConsumesOnce(t *testing.T) {
	_, store := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testChallenge("c1")))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Attempt(ctx, "c1", matchCode("ok"), 3); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRedisStore_Delete(t *testing.T) {
	mr, store := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testChallenge("c1")))
	require.NoError(t, store.Delete(ctx, "c1"))
	assert.False(t, mr.Exists(challengeKeyPrefix+"c1"))
	require.NoError(t, store.Delete(ctx, "missing"))
}

func TestProvider_WithRedisStore(t *testing.T) {
	_, store := newTestRedis(t)
	p, outbox := newTestProvider(t, func(o *Options) { o.Store = store })
	ctx := context.Background()

	h, err := p.SendChallenge(ctx, testPhone, surface())
	require.NoError(t, err)
	d, _ := outbox.Latest(testPhone)
	u, err := p.VerifyChallenge(ctx, h, d.Code)
	require.NoError(t, err)
	assert.Equal(t, testPhone, u.PhoneNumber)
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	store, err := DialRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	mr.Close()
	_, err = DialRedis(context.Background(), mr.Addr(), "", 0)
	assert.ErrorIs(t, err, errStoreUnavailable)
}
