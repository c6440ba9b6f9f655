// internal/service/leaderboard/leaderboard.go
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rollcall-service/internal/domain/leaderboard"
	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	scopeGlobal     = "global"
	defaultCacheTTL = 5 * time.Minute
)

// GlobalSource ranks all users
type GlobalSource interface {
	Leaderboard(ctx context.Context, metric leaderboard.Metric, limit int, today time.Time) ([]leaderboard.Entry, error)
}

// EventSource ranks one event's participants
type EventSource interface {
	Leaderboard(ctx context.Context, eventID int64, limit int, today time.Time) ([]leaderboard.Entry, error)
}

// Service serves leaderboards through a Redis read-through cache
type Service struct {
	users  GlobalSource
	events EventSource
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewService(users GlobalSource, events EventSource, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{
		users:  users,
		events: events,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Global returns the user leaderboard for metric
func (s *Service) Global(ctx context.Context, metric string, limit int) ([]leaderboard.Entry, error) {
	m, err := leaderboard.ParseMetric(metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
	}
	limit = leaderboard.ClampLimit(limit)

	return s.cached(ctx, Key(scopeGlobal, m, limit), func() ([]leaderboard.Entry, error) {
		return s.users.Leaderboard(ctx, m, limit, s.today())
	})
}

// ForEvent returns an event's leaderboard. Access checks belong to the caller.
func (s *Service) ForEvent(ctx context.Context, eventID int64, limit int) ([]leaderboard.Entry, error) {
	limit = leaderboard.ClampLimit(limit)

	return s.cached(ctx, Key(eventScope(eventID), leaderboard.MetricCurrentStreak, limit), func() ([]leaderboard.Entry, error) {
		return s.events.Leaderboard(ctx, eventID, limit, s.today())
	})
}

// Invalidate drops the cached boards a change in eventID can affect
func (s *Service) Invalidate(ctx context.Context, eventID int64) {
	s.drop(ctx, eventScope(eventID), scopeGlobal)
}

// InvalidateAll drops every cached board. A user leaving the ranking can
// appear on any event board.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.drop(ctx, "*")
}

func (s *Service) drop(ctx context.Context, scopes ...string) {
	if s.cache == nil {
		return
	}
	for _, scope := range scopes {
		pattern := fmt.Sprintf("leaderboard:%s:*", scope)
		iter := s.cache.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
				s.logger.Warn("failed to drop leaderboard cache", zap.String("key", iter.Val()), zap.Error(err))
			}
		}
		if err := iter.Err(); err != nil {
			s.logger.Warn("failed to scan leaderboard cache", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func (s *Service) cached(ctx context.Context, key string, load func() ([]leaderboard.Entry, error)) ([]leaderboard.Entry, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var entries []leaderboard.Entry
			if err := json.Unmarshal(data, &entries); err == nil {
				return entries, nil
			}
			s.logger.Warn("corrupt leaderboard cache entry", zap.String("key", key))
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("leaderboard cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	entries, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
				s.logger.Warn("leaderboard cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return entries, nil
}

func (s *Service) today() time.Time {
	return s.now().UTC()
}

// Key is the cache key of one board
func Key(scope string, metric leaderboard.Metric, limit int) string {
	return fmt.Sprintf("leaderboard:%s:%s:%d", scope, metric, limit)
}

func eventScope(eventID int64) string {
	return fmt.Sprintf("event:%d", eventID)
}
