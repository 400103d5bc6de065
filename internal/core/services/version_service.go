package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/middleware"
	"github.com/polisys/ledgercore/internal/platform/metrics"
)

// ErrConcurrentModification is returned when a correction loses the
// optimistic-concurrency race: the version it meant to supersede is no
// longer the entity's open version. Callers re-read and retry.
var ErrConcurrentModification = errors.New("version was modified concurrently")

const historyPageSize = 100

// versionService manages bi-temporal version chains for one entity family.
type versionService[T any] struct {
	repo    ports.VersionRepository[T]
	metrics *metrics.Metrics
}

// NewVersionService creates a new VersionSvc over the given store.
func NewVersionService[T any](repo ports.VersionRepository[T], m *metrics.Metrics) ports.VersionSvc[T] {
	return &versionService[T]{repo: repo, metrics: m}
}

// Record appends the first version of an entity. Fails with
// domain.ErrTemporalOverlap when the entity already has an open version;
// corrections go through Correct.
func (s *versionService[T]) Record(ctx context.Context, entityID string, payload T, valid domain.ValidPeriod) (*domain.BiTemporalRecord[T], error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	rec := domain.BiTemporalRecord[T]{
		EntityID:     entityID,
		VersionID:    domain.NewVersionID(),
		ValidPeriod:  valid,
		SystemPeriod: domain.CurrentSystemPeriod(time.Now().UTC()),
		Payload:      payload,
	}
	if err := s.repo.AppendVersion(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrTemporalOverlap) {
			return nil, fmt.Errorf("%w: entity %s already has an open version", domain.ErrTemporalOverlap, entityID)
		}
		logger.Error("Failed to append version", slog.String("error", err.Error()), slog.String("entity_id", entityID))
		return nil, err
	}

	s.metrics.IncRecorded()
	logger.Info("Version recorded", slog.String("entity_id", entityID), slog.String("version_id", rec.VersionID.String()))
	return &rec, nil
}

// Correct supersedes the entity's open version with a new one. The old
// version stays in the chain with its system period closed; as-of queries
// against earlier system times still see it. The supersede is guarded by an
// optimistic compare on the open version's ID.
func (s *versionService[T]) Correct(ctx context.Context, entityID string, payload T, valid domain.ValidPeriod) (*domain.BiTemporalRecord[T], error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	open, err := s.repo.FindOpenVersion(ctx, entityID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: entity %s", domain.ErrVersionNotOpen, entityID)
		}
		return nil, err
	}

	replacement := domain.BiTemporalRecord[T]{
		EntityID:     entityID,
		VersionID:    domain.NewVersionID(),
		ValidPeriod:  valid,
		SystemPeriod: domain.CurrentSystemPeriod(time.Now().UTC()),
		Payload:      payload,
	}
	if err := s.repo.SupersedeVersion(ctx, entityID, open.VersionID, replacement); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.metrics.IncCorrectionConflict()
			logger.Warn("Correction lost optimistic race",
				slog.String("entity_id", entityID),
				slog.String("expected_open", open.VersionID.String()),
			)
			return nil, fmt.Errorf("%w: entity %s", ErrConcurrentModification, entityID)
		}
		logger.Error("Failed to supersede version", slog.String("error", err.Error()), slog.String("entity_id", entityID))
		return nil, err
	}

	s.metrics.IncCorrected()
	logger.Info("Version corrected",
		slog.String("entity_id", entityID),
		slog.String("superseded", open.VersionID.String()),
		slog.String("version_id", replacement.VersionID.String()),
	)
	return &replacement, nil
}

// AsOf answers "what did we believe at systemTime the world looked like at
// validTime". Passing time.Now for both yields the current best knowledge.
func (s *versionService[T]) AsOf(ctx context.Context, entityID string, validTime, systemTime time.Time) (T, error) {
	var zero T
	rec, err := s.repo.FindAsOf(ctx, entityID, validTime, systemTime)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return zero, fmt.Errorf("%w: entity %s valid at %s known at %s",
				apperrors.ErrNotFound, entityID, validTime.Format(time.RFC3339), systemTime.Format(time.RFC3339))
		}
		return zero, err
	}
	return rec.Payload, nil
}

// History lazily yields the entity's full version chain in recording order,
// paging through the store so the whole chain never has to sit in memory.
func (s *versionService[T]) History(ctx context.Context, entityID string) iter.Seq2[domain.BiTemporalRecord[T], error] {
	return func(yield func(domain.BiTemporalRecord[T], error) bool) {
		var nextToken *string
		for {
			page, token, err := s.repo.ListVersions(ctx, entityID, historyPageSize, nextToken)
			if err != nil {
				var zero domain.BiTemporalRecord[T]
				yield(zero, err)
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}
			if token == nil {
				return
			}
			nextToken = token
		}
	}
}
