package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cassiomorais/storekit/pkg/retry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PendingStore persists the deferred-confirmation set under one key per
// instance, so a restarted process resumes confirmation where it left off.
// Saves are retried with backoff: losing the pending set means a paid
// purchase may never be confirmed.
type PendingStore struct {
	client   *redis.Client
	key      string
	retryCfg retry.Config
	logger   zerolog.Logger
}

func NewPendingStore(client *redis.Client, instanceID string, logger zerolog.Logger) *PendingStore {
	return &PendingStore{
		client:   client,
		key:      fmt.Sprintf("storekit:pending:%s", instanceID),
		retryCfg: retry.DefaultConfig(),
		logger:   logger.With().Str("component", "pending_store").Logger(),
	}
}

func (s *PendingStore) Load(ctx context.Context) ([]string, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending set: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("pending set is corrupt: %w", err)
	}
	return ids, nil
}

func (s *PendingStore) Save(ctx context.Context, productIDs []string) error {
	if len(productIDs) == 0 {
		return s.deleteWithRetry(ctx)
	}

	raw, err := json.Marshal(productIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal pending set: %w", err)
	}

	cfg := s.retryCfg
	cfg.OnRetry = func(attempt uint, err error) {
		s.logger.Warn().Uint("attempt", attempt).Err(err).Msg("pending set save failed, retrying")
	}
	return retry.Do(ctx, cfg, func() error {
		return s.client.Set(ctx, s.key, raw, 0).Err()
	})
}

func (s *PendingStore) deleteWithRetry(ctx context.Context) error {
	cfg := s.retryCfg
	cfg.OnRetry = func(attempt uint, err error) {
		s.logger.Warn().Uint("attempt", attempt).Err(err).Msg("pending set delete failed, retrying")
	}
	return retry.Do(ctx, cfg, func() error {
		return s.client.Del(ctx, s.key).Err()
	})
}
