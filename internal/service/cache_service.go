package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the cache store with an enabled switch and a default
// TTL. Cache failures are logged and swallowed; reads fall through to the
// database.
type CacheService struct {
	store      cacheStore
	enabled    bool
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewCacheService constructs CacheService. A nil store disables caching.
func NewCacheService(store cacheStore, enabled bool, defaultTTL time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &CacheService{store: store, enabled: enabled && store != nil, defaultTTL: defaultTTL, logger: logger}
}

// Get reports whether the key was found, unmarshalling into dest on a hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.enabled {
		return false, nil
	}
	err := s.store.Get(ctx, key, dest)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, appErrors.ErrCacheMiss) {
		return false, nil
	}
	s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	return false, err
}

// Set stores the value under key with the default TTL when ttl is zero.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.enabled {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate removes the key and any derivatives.
func (s *CacheService) Invalidate(ctx context.Context, key string) error {
	if !s.enabled {
		return nil
	}
	if err := s.store.DeleteByPattern(ctx, key+"*"); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}
