package flowstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"car-rental-assistant-be/pkg/assistant"
)

const checkpointKeyPrefix = "assistant:checkpoint:"

// RedisStore persists turn state snapshots in Redis with a sliding TTL, so
// conversations survive process restarts and idle threads expire on their
// own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, threadId string) (*assistant.TurnState, bool, error) {
	payload, err := s.client.Get(ctx, checkpointKey(threadId)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading checkpoint: %w", err)
	}

	var state assistant.TurnState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, false, fmt.Errorf("decoding checkpoint: %w", err)
	}
	return &state, true, nil
}

func (s *RedisStore) Put(ctx context.Context, state *assistant.TurnState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, checkpointKey(state.ThreadId), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, threadId string) error {
	if err := s.client.Del(ctx, checkpointKey(threadId)).Err(); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// CleanupStaleFlows scans checkpoint keys and drops conversation flows that
// have been idle longer than idleAfter. It rewrites only the affected
// checkpoints, preserving their remaining TTL.
func (s *RedisStore) CleanupStaleFlows(ctx context.Context, idleAfter time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-idleAfter)
	cleared := 0

	iter := s.client.Scan(ctx, 0, checkpointKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		payload, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return cleared, fmt.Errorf("loading checkpoint %s: %w", key, err)
		}

		var state assistant.TurnState
		if err := json.Unmarshal(payload, &state); err != nil {
			continue
		}
		if state.Flow == nil || !state.Flow.LastUpdated.Before(cutoff) {
			continue
		}

		state.Flow = nil
		updated, err := json.Marshal(&state)
		if err != nil {
			return cleared, fmt.Errorf("encoding checkpoint %s: %w", key, err)
		}
		if err := s.client.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
			return cleared, fmt.Errorf("storing checkpoint %s: %w", key, err)
		}
		cleared++
	}
	if err := iter.Err(); err != nil {
		return cleared, fmt.Errorf("scanning checkpoints: %w", err)
	}
	return cleared, nil
}

func checkpointKey(threadId string) string {
	return checkpointKeyPrefix + threadId
}
