package dedup

import (
	"context"
	"fmt"
	"time"

	"linksum/internal/config"
	"linksum/internal/constants"
	"linksum/internal/logger"
	"linksum/pkg/metrics"
)

// Store is the idempotency ledger: a live record for an event identifier
// means that identifier's side effects are committed or in flight.
//
// The check-and-mark is a single Redis SETNX with TTL, so two concurrent
// redeliveries of the same event cannot both pass the check; the
// read-then-write race the at-least-once delivery model invites is closed
// by the backend rather than tolerated.
type Store struct {
	repo   Repository
	ttl    time.Duration
	onErr  string
	logger logger.Logger
}

func NewStore(repo Repository, cfg config.DeduplicationConfig, log logger.Logger) *Store {
	return &Store{
		repo:   repo,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
		onErr:  cfg.OnRedisError,
		logger: log,
	}
}

// CheckAndMark records eventID and reports whether it had already been
// seen within the retention window. With no backend configured every event
// is reported unseen; deduplication degrades to a no-op instead of failing
// the pipeline.
func (s *Store) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if s.repo == nil {
		metrics.DedupChecksTotal.WithLabelValues("disabled").Inc()
		return false, nil
	}

	key := constants.CacheKeyPrefixEvent + eventID
	start := time.Now()
	firstSight, err := s.repo.SetNX(ctx, key, time.Now().Unix(), s.ttl)
	duration := time.Since(start)

	if err != nil {
		return s.handleBackendError(ctx, err, duration, eventID)
	}

	status := "duplicate"
	if firstSight {
		status = "unique"
	}
	metrics.DedupChecksTotal.WithLabelValues(status).Inc()
	metrics.ObserveDedupDuration(duration, status)

	return !firstSight, nil
}

func (s *Store) handleBackendError(ctx context.Context, err error, duration time.Duration, eventID string) (bool, error) {
	metrics.DedupChecksTotal.WithLabelValues("error").Inc()
	metrics.ObserveDedupDuration(duration, "error")

	if s.onErr == constants.FallbackAllow {
		metrics.FallbackUsageTotal.WithLabelValues("dedup", "allow_on_error").Inc()
		s.logger.WarnwCtx(ctx, "Dedup backend error, treating event as unseen (fallback: allow)",
			"error", err,
		)
		return false, nil
	}

	metrics.FallbackUsageTotal.WithLabelValues("dedup", "deny_on_error").Inc()
	return true, fmt.Errorf("dedup check failed for event %s: %w", eventID, err)
}
