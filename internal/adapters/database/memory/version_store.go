package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/utils/pagination"
)

// VersionStore keeps bi-temporal version chains in memory, one append-only
// slice per entity.
type VersionStore[T any] struct {
	mu     sync.RWMutex
	chains map[string][]domain.BiTemporalRecord[T]
}

// NewVersionStore creates an empty in-memory version store.
func NewVersionStore[T any]() *VersionStore[T] {
	return &VersionStore[T]{chains: make(map[string][]domain.BiTemporalRecord[T])}
}

var _ ports.VersionRepository[any] = (*VersionStore[any])(nil)

func (s *VersionStore[T]) AppendVersion(_ context.Context, rec domain.BiTemporalRecord[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.chains[rec.EntityID] {
		if existing.IsCurrent() {
			return fmt.Errorf("%w: entity %s has open version %s", domain.ErrTemporalOverlap, rec.EntityID, existing.VersionID)
		}
	}
	s.chains[rec.EntityID] = append(s.chains[rec.EntityID], rec)
	return nil
}

func (s *VersionStore[T]) CloseVersion(_ context.Context, entityID string, versionID domain.VersionID, supersededAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.chains[entityID]
	for i := range chain {
		if chain[i].VersionID != versionID {
			continue
		}
		if !chain[i].IsCurrent() {
			return fmt.Errorf("%w: version %s is already closed", apperrors.ErrConflict, versionID)
		}
		chain[i].SystemPeriod = chain[i].SystemPeriod.SupersededBy(supersededAt)
		return nil
	}
	return fmt.Errorf("%w: version %s of entity %s", apperrors.ErrNotFound, versionID, entityID)
}

func (s *VersionStore[T]) SupersedeVersion(_ context.Context, entityID string, openVersionID domain.VersionID, replacement domain.BiTemporalRecord[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.chains[entityID]
	openIdx := -1
	for i := range chain {
		if chain[i].IsCurrent() {
			openIdx = i
			break
		}
	}
	if openIdx < 0 || chain[openIdx].VersionID != openVersionID {
		return fmt.Errorf("%w: version %s is not the open version of entity %s", apperrors.ErrConflict, openVersionID, entityID)
	}

	chain[openIdx].SystemPeriod = chain[openIdx].SystemPeriod.SupersededBy(replacement.SystemPeriod.RecordedAt)
	s.chains[entityID] = append(chain, replacement)
	return nil
}

func (s *VersionStore[T]) FindOpenVersion(_ context.Context, entityID string) (*domain.BiTemporalRecord[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.chains[entityID] {
		if rec.IsCurrent() {
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("%w: no open version for entity %s", apperrors.ErrNotFound, entityID)
}

func (s *VersionStore[T]) FindAsOf(_ context.Context, entityID string, validTime, systemTime time.Time) (*domain.BiTemporalRecord[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *domain.BiTemporalRecord[T]
	for _, rec := range s.chains[entityID] {
		if !rec.EffectiveAt(validTime, systemTime) {
			continue
		}
		if match == nil || rec.SystemPeriod.RecordedAt.After(match.SystemPeriod.RecordedAt) {
			r := rec
			match = &r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: entity %s has no version valid at %s known at %s",
			apperrors.ErrNotFound, entityID, validTime.Format(time.RFC3339), systemTime.Format(time.RFC3339))
	}
	return match, nil
}

func (s *VersionStore[T]) ListVersions(_ context.Context, entityID string, limit int, nextToken *string) ([]domain.BiTemporalRecord[T], *string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var afterTime time.Time
	afterID := ""
	if nextToken != nil {
		t, id, err := pagination.DecodeTimeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
		}
		afterTime, afterID = t, id
	}

	chain := append([]domain.BiTemporalRecord[T](nil), s.chains[entityID]...)
	sort.Slice(chain, func(i, j int) bool {
		if !chain[i].SystemPeriod.RecordedAt.Equal(chain[j].SystemPeriod.RecordedAt) {
			return chain[i].SystemPeriod.RecordedAt.Before(chain[j].SystemPeriod.RecordedAt)
		}
		return chain[i].VersionID < chain[j].VersionID
	})

	page := make([]domain.BiTemporalRecord[T], 0, len(chain))
	for _, rec := range chain {
		if nextToken != nil {
			if rec.SystemPeriod.RecordedAt.Before(afterTime) {
				continue
			}
			if rec.SystemPeriod.RecordedAt.Equal(afterTime) && string(rec.VersionID) <= afterID {
				continue
			}
		}
		page = append(page, rec)
	}

	if limit <= 0 || limit > len(page) {
		return page, nil, nil
	}
	page = page[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeTimeToken(last.SystemPeriod.RecordedAt, string(last.VersionID))
	return page, &token, nil
}
