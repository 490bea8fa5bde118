package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
	"github.com/lorrc/identity-sync-backend/internal/metrics"
)

// SyncConfig tunes the retry discipline of the synchronizer and deleter.
type SyncConfig struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	SoftDeadline   time.Duration
}

// DefaultSyncConfig returns the documented retry policy: 3 total attempts,
// backoff of 100ms x attempt number, 5s soft deadline.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
		SoftDeadline:   DefaultSoftDeadline,
	}
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.SoftDeadline <= 0 {
		c.SoftDeadline = DefaultSoftDeadline
	}
	return c
}

// SyncService reacts to account-created events with an idempotent,
// retryable, time-bounded upsert. It never raises an error back into the
// event-trigger machinery: every outcome is a domain.Outcome value.
type SyncService struct {
	repo        ports.ProjectionRepository
	marker      ports.EventMarker // may be nil
	broadcaster ports.EventBroadcaster
	recorder    metrics.Recorder
	logger      *slog.Logger
	cfg         SyncConfig
}

var _ ports.Synchronizer = (*SyncService)(nil)

// NewSyncService creates a synchronizer. marker may be nil to disable the
// redelivery fast path; broadcaster may be nil to disable the change feed.
func NewSyncService(
	repo ports.ProjectionRepository,
	marker ports.EventMarker,
	broadcaster ports.EventBroadcaster,
	recorder metrics.Recorder,
	logger *slog.Logger,
	cfg SyncConfig,
) *SyncService {
	return &SyncService{
		repo:        repo,
		marker:      marker,
		broadcaster: broadcaster,
		recorder:    recorder,
		logger:      logger.With("component", "synchronizer"),
		cfg:         cfg.withDefaults(),
	}
}

// Sync maps the event onto a projection row and upserts it, retrying
// transient failures. Re-running the same event produces the same final row
// state; only updated_at may advance.
func (s *SyncService) Sync(ctx context.Context, event domain.AccountCreatedEvent, eventID string) domain.Outcome {
	start := time.Now()
	log := s.logger.With("uid", event.UID, "event_id", eventID)

	if err := event.Validate(); err != nil {
		log.Error("malformed create event", "error", err)
		return s.finishSync(log, domain.Outcome{Attempts: 0, Duration: time.Since(start), Err: err})
	}

	if eventID != "" && s.marker != nil {
		if seen, err := s.marker.Seen(ctx, eventID); err != nil {
			log.Warn("event marker lookup failed, continuing", "error", err)
		} else if seen {
			log.Info("event already applied, skipping")
			return s.finishSync(log, domain.Outcome{Success: true, Attempts: 0, Duration: time.Since(start)})
		}
	}

	row := domain.ProjectionFromEvent(event)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		_, err := s.repo.Upsert(ctx, row)
		if err == nil {
			s.markApplied(ctx, log, eventID)
			s.broadcast(domain.EventUserSynced, row)
			return s.finishSync(log, domain.Outcome{Success: true, Attempts: attempt, Duration: time.Since(start)})
		}

		lastErr = err
		if !apperrors.IsTransient(err) {
			log.Error("non-retryable sync failure",
				"attempt", attempt,
				"error", err,
			)
			return s.finishSync(log, domain.Outcome{Attempts: attempt, Duration: time.Since(start), Err: err})
		}

		log.Warn("transient sync failure",
			"attempt", attempt,
			"error", err,
		)
		if attempt < s.cfg.MaxAttempts {
			time.Sleep(retryDelay(s.cfg.RetryBaseDelay, attempt))
		}
	}

	return s.finishSync(log, domain.Outcome{Attempts: s.cfg.MaxAttempts, Duration: time.Since(start), Err: lastErr})
}

// finishSync records metrics and the soft-deadline warning, then returns the
// outcome unchanged.
func (s *SyncService) finishSync(log *slog.Logger, o domain.Outcome) domain.Outcome {
	status := "failure"
	if o.Success {
		status = "success"
	}
	s.recorder.IncSync(status)
	s.recorder.ObserveSyncDuration(o.Duration)
	s.recorder.ObserveSyncAttempts(o.Attempts)

	if o.Duration > s.cfg.SoftDeadline {
		log.Warn("sync exceeded soft deadline",
			"duration_ms", o.DurationMs(),
			"deadline_ms", s.cfg.SoftDeadline.Milliseconds(),
			"attempts", o.Attempts,
		)
	}
	if o.Err != nil {
		log.Error("sync failed",
			"attempts", o.Attempts,
			"duration_ms", o.DurationMs(),
			"error", o.Err,
		)
	} else {
		log.Info("sync finished",
			"attempts", o.Attempts,
			"duration_ms", o.DurationMs(),
		)
	}
	return o
}

// markApplied remembers the event ID so redeliveries can be skipped. Marker
// failures are logged and ignored: the upsert already made the event safe to
// replay.
func (s *SyncService) markApplied(ctx context.Context, log *slog.Logger, eventID string) {
	if eventID == "" || s.marker == nil {
		return
	}
	if err := s.marker.Mark(ctx, eventID); err != nil {
		log.Warn("event marker write failed", "error", err)
	}
}

func (s *SyncService) broadcast(eventType domain.ProjectionEventType, row *domain.UserProjection) {
	if s.broadcaster == nil {
		return
	}
	_ = s.broadcaster.Broadcast(domain.ProjectionEvent{
		Type:        eventType,
		ExternalUID: row.ExternalUID,
		Payload:     row,
	})
}
