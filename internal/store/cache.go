package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ideaflow/internal/common/logger"
	"ideaflow/internal/common/metrics"
	"ideaflow/internal/models"
	"ideaflow/internal/workflow"

	"github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "ideaflow:history:"

// HistoryVersionKey holds a counter bumped on every status change of the idea.
func HistoryVersionKey(ideaID string) string {
	return historyKeyPrefix + "ver:" + ideaID
}

// HistoryKey is the entry for one history version of the idea.
func HistoryKey(ideaID, version string) string {
	return historyKeyPrefix + ideaID + ":" + version
}

// CachedHistory serves transition history from Redis. Entries are keyed by
// the idea's history version, which a status change increments, so a snapshot
// read before a change can only land under a version nobody reads again.
// Superseded entries expire with their TTL. Redis failures fall through to next.
type CachedHistory struct {
	next   workflow.TransitionStore
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

var _ workflow.TransitionStore = (*CachedHistory)(nil)

func NewCachedHistory(next workflow.TransitionStore, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedHistory {
	return &CachedHistory{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "history-cache"}),
	}
}

func (c *CachedHistory) FetchTransitionHistory(ctx context.Context, ideaID string) ([]models.WorkflowTransition, error) {
	version, err := c.version(ctx, ideaID)
	if err != nil {
		c.logger.Warn("history cache version read failed", map[string]interface{}{"ideaId": ideaID, "error": err})
		metrics.HistoryCache.WithLabelValues("error").Inc()
		return c.next.FetchTransitionHistory(ctx, ideaID)
	}
	key := HistoryKey(ideaID, version)

	val, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var history []models.WorkflowTransition
		if jsonErr := json.Unmarshal(val, &history); jsonErr == nil {
			metrics.HistoryCache.WithLabelValues("hit").Inc()
			return history, nil
		}
		c.logger.Warn("discarding unreadable history cache entry", map[string]interface{}{"key": key})
		metrics.HistoryCache.WithLabelValues("corrupt").Inc()
	case errors.Is(err, redis.Nil):
		metrics.HistoryCache.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("history cache read failed", map[string]interface{}{"key": key, "error": err})
		metrics.HistoryCache.WithLabelValues("error").Inc()
	}

	history, err := c.next.FetchTransitionHistory(ctx, ideaID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(history)
	if err != nil {
		return history, nil
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("history cache write failed", map[string]interface{}{"key": key, "error": err})
	}
	return history, nil
}

// version returns the idea's current history version, "0" before any change.
func (c *CachedHistory) version(ctx context.Context, ideaID string) (string, error) {
	v, err := c.redis.Get(ctx, HistoryVersionKey(ideaID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func (c *CachedHistory) UpdateIdeaStatusAndLogTransition(ctx context.Context, u workflow.StatusUpdate, guard workflow.Guard) (*models.WorkflowTransition, error) {
	t, err := c.next.UpdateIdeaStatusAndLogTransition(ctx, u, guard)
	if err != nil {
		return nil, err
	}
	if err := c.redis.Incr(ctx, HistoryVersionKey(u.IdeaID)).Err(); err != nil {
		c.logger.Warn("history cache invalidation failed", map[string]interface{}{
			"ideaId": u.IdeaID,
			"error":  err,
		})
	}
	return t, nil
}
