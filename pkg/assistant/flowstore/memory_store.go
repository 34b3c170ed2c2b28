package flowstore

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"car-rental-assistant-be/pkg/assistant"
)

// MemoryStore is the in-process variant used in tests and single-node
// development setups.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

func (s *MemoryStore) Get(ctx context.Context, threadId string) (*assistant.TurnState, bool, error) {
	if x, found := s.cache.Get(threadId); found {
		return x.(*assistant.TurnState), true, nil
	}
	return nil, false, nil
}

func (s *MemoryStore) Put(ctx context.Context, state *assistant.TurnState) error {
	s.cache.Set(state.ThreadId, state, gocache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, threadId string) error {
	s.cache.Delete(threadId)
	return nil
}

func (s *MemoryStore) CleanupStaleFlows(ctx context.Context, idleAfter time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-idleAfter)
	cleared := 0
	for _, item := range s.cache.Items() {
		state, ok := item.Object.(*assistant.TurnState)
		if !ok || state.Flow == nil {
			continue
		}
		if state.Flow.LastUpdated.Before(cutoff) {
			state.Flow = nil
			s.cache.Set(state.ThreadId, state, gocache.DefaultExpiration)
			cleared++
		}
	}
	return cleared, nil
}
