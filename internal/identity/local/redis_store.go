// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeKeyPrefix = "phonegate:challenge:"

// errStoreUnavailable wraps Redis failures.
var errStoreUnavailable = errors.New("local: challenge store unavailable")

// RedisStore is a ChallengeStore shared by every process pointing at the
// same Redis. Attempts are counted inside WATCH/MULTI so concurrent
// verifications of one challenge cannot both succeed.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client, prefix: challengeKeyPrefix}
}

// DialRedis connects to addr and checks it answers.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", errStoreUnavailable, err)
	}
	return NewRedisStore(client), nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Put(ctx context.Context, c *Challenge) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return errChallengeNotFound
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(c.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Attempt(ctx context.Context, id string, match func(*Challenge) bool, maxAttempts int) (*Challenge, error) {
	const maxRetries = 4
	key := s.key(id)

	for i := 0; i < maxRetries; i++ {
		var matched *Challenge

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return errChallengeNotFound
			}
			if err != nil {
				return err
			}

			var c Challenge
			if err := json.Unmarshal(data, &c); err != nil {
				return err
			}

			ttl := time.Until(c.ExpiresAt)
			if ttl <= 0 {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return errChallengeNotFound
			}

			if match(&c) {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				matched = &c
				return nil
			}

			c.Attempts++
			if maxAttempts > 0 && c.Attempts >= maxAttempts {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return errAttemptsExceeded
			}

			updated, err := json.Marshal(&c)
			if err != nil {
				return err
			}
			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			}); err != nil {
				return err
			}
			return errCodeMismatch
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, errChallengeNotFound), errors.Is(err, errCodeMismatch), errors.Is(err, errAttemptsExceeded):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", errStoreUnavailable, err)
			}
		}
		return matched, nil
	}

	return nil, errChallengeNotFound
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errStoreUnavailable, err)
	}
	return nil
}
