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

// DeleteService reacts to account-deleted events with the same retry,
// backoff, deadline and non-throwing discipline as the synchronizer.
// Deleting an already-absent row is a success.
type DeleteService struct {
	repo        ports.ProjectionRepository
	broadcaster ports.EventBroadcaster
	recorder    metrics.Recorder
	logger      *slog.Logger
	cfg         SyncConfig
}

var _ ports.Deleter = (*DeleteService)(nil)

// NewDeleteService creates a deleter. broadcaster may be nil to disable the
// change feed.
func NewDeleteService(
	repo ports.ProjectionRepository,
	broadcaster ports.EventBroadcaster,
	recorder metrics.Recorder,
	logger *slog.Logger,
	cfg SyncConfig,
) *DeleteService {
	return &DeleteService{
		repo:        repo,
		broadcaster: broadcaster,
		recorder:    recorder,
		logger:      logger.With("component", "deleter"),
		cfg:         cfg.withDefaults(),
	}
}

// Delete removes the row keyed by the event's UID. Zero rows affected is not
// an error; redelivered delete events converge on the same absent-row state.
func (s *DeleteService) Delete(ctx context.Context, event domain.AccountDeletedEvent, eventID string) domain.Outcome {
	start := time.Now()
	log := s.logger.With("uid", event.UID, "event_id", eventID)

	if err := event.Validate(); err != nil {
		log.Error("malformed delete event", "error", err)
		return s.finish(log, domain.Outcome{Attempts: 0, Duration: time.Since(start), Err: err})
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		affected, err := s.repo.Delete(ctx, event.UID)
		if err == nil {
			if affected == 0 {
				log.Info("row already absent")
			} else {
				s.broadcastDeleted(event.UID)
			}
			return s.finish(log, domain.Outcome{Success: true, Attempts: attempt, Duration: time.Since(start)})
		}

		lastErr = err
		if !apperrors.IsTransient(err) {
			log.Error("non-retryable delete failure",
				"attempt", attempt,
				"error", err,
			)
			return s.finish(log, domain.Outcome{Attempts: attempt, Duration: time.Since(start), Err: err})
		}

		log.Warn("transient delete failure",
			"attempt", attempt,
			"error", err,
		)
		if attempt < s.cfg.MaxAttempts {
			time.Sleep(retryDelay(s.cfg.RetryBaseDelay, attempt))
		}
	}

	return s.finish(log, domain.Outcome{Attempts: s.cfg.MaxAttempts, Duration: time.Since(start), Err: lastErr})
}

func (s *DeleteService) finish(log *slog.Logger, o domain.Outcome) domain.Outcome {
	status := "failure"
	if o.Success {
		status = "success"
	}
	s.recorder.IncDelete(status)
	s.recorder.ObserveDeleteDuration(o.Duration)

	if o.Duration > s.cfg.SoftDeadline {
		log.Warn("delete exceeded soft deadline",
			"duration_ms", o.DurationMs(),
			"deadline_ms", s.cfg.SoftDeadline.Milliseconds(),
			"attempts", o.Attempts,
		)
	}
	if o.Err != nil {
		log.Error("delete failed",
			"attempts", o.Attempts,
			"duration_ms", o.DurationMs(),
			"error", o.Err,
		)
	} else {
		log.Info("delete finished",
			"attempts", o.Attempts,
			"duration_ms", o.DurationMs(),
		)
	}
	return o
}

func (s *DeleteService) broadcastDeleted(uid string) {
	if s.broadcaster == nil {
		return
	}
	_ = s.broadcaster.Broadcast(domain.ProjectionEvent{
		Type:        domain.EventUserDeleted,
		ExternalUID: uid,
	})
}
