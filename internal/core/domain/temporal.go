package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPeriod indicates a period whose start does not precede its end.
	ErrInvalidPeriod = errors.New("invalid period: start must precede end")
	// ErrTemporalOverlap indicates a write that would create overlapping
	// open versions for the same entity.
	ErrTemporalOverlap = errors.New("temporal overlap")
	// ErrVersionNotOpen indicates a correction against an entity with no
	// currently-open version.
	ErrVersionNotOpen = errors.New("no open version for entity")
)

// ValidPeriod is the valid-time axis: when a fact is true in the modeled
// world. A nil End means "true until further notice". Start is inclusive,
// End exclusive.
type ValidPeriod struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// NewValidPeriod builds a bounded period, rejecting start >= end.
func NewValidPeriod(start, end time.Time) (ValidPeriod, error) {
	if !start.Before(end) {
		return ValidPeriod{}, fmt.Errorf("%w: start %s, end %s", ErrInvalidPeriod, start, end)
	}
	return ValidPeriod{Start: start, End: &end}, nil
}

// OpenValidPeriod builds a period with no end.
func OpenValidPeriod(start time.Time) ValidPeriod {
	return ValidPeriod{Start: start}
}

// IsOpen reports whether the period has no end.
func (p ValidPeriod) IsOpen() bool { return p.End == nil }

// Contains reports whether t falls inside the period.
func (p ValidPeriod) Contains(t time.Time) bool {
	if t.Before(p.Start) {
		return false
	}
	return p.End == nil || t.Before(*p.End)
}

// Overlaps reports whether two periods share any instant.
func (p ValidPeriod) Overlaps(other ValidPeriod) bool {
	startsBeforeOtherEnds := other.End == nil || p.Start.Before(*other.End)
	otherStartsBeforeEnds := p.End == nil || other.Start.Before(*p.End)
	return startsBeforeOtherEnds && otherStartsBeforeEnds
}

// CloseAt returns a copy of the period ending at t, rejecting t <= Start.
func (p ValidPeriod) CloseAt(t time.Time) (ValidPeriod, error) {
	if !p.Start.Before(t) {
		return ValidPeriod{}, fmt.Errorf("%w: start %s, end %s", ErrInvalidPeriod, p.Start, t)
	}
	return ValidPeriod{Start: p.Start, End: &t}, nil
}

// SystemPeriod is the system-time axis: when the system considered the fact
// current. A nil SupersededAt marks the currently-known version; at most one
// version per entity may be open at any instant.
type SystemPeriod struct {
	RecordedAt   time.Time  `json:"recordedAt"`
	SupersededAt *time.Time `json:"supersededAt,omitempty"`
}

// CurrentSystemPeriod opens a system period at the given instant.
func CurrentSystemPeriod(now time.Time) SystemPeriod {
	return SystemPeriod{RecordedAt: now}
}

// IsCurrent reports whether the version has not been superseded.
func (p SystemPeriod) IsCurrent() bool { return p.SupersededAt == nil }

// ActiveAt reports whether the version was a known one at t. Both bounds are
// inclusive: at the exact superseding instant the closed version and its
// replacement are both known, and readers resolve the tie by the latest
// RecordedAt. Exclusive superseding would leave retroactive facts unanswerable
// at the correction instant itself.
func (p SystemPeriod) ActiveAt(t time.Time) bool {
	if t.Before(p.RecordedAt) {
		return false
	}
	return p.SupersededAt == nil || !t.After(*p.SupersededAt)
}

// SupersededBy returns a copy of the period closed at t.
func (p SystemPeriod) SupersededBy(t time.Time) SystemPeriod {
	return SystemPeriod{RecordedAt: p.RecordedAt, SupersededAt: &t}
}

// BiTemporalRecord is one version of a logical entity, carrying both time
// axes. Versions sharing an EntityID form a chain ordered by RecordedAt;
// history is append-only and never erased, only superseded.
type BiTemporalRecord[T any] struct {
	EntityID     string       `json:"entityID"`
	VersionID    VersionID    `json:"versionID"`
	ValidPeriod  ValidPeriod  `json:"validPeriod"`
	SystemPeriod SystemPeriod `json:"systemPeriod"`
	Payload      T            `json:"payload"`
}

// IsCurrent reports whether this is the currently-known version.
func (r BiTemporalRecord[T]) IsCurrent() bool { return r.SystemPeriod.IsCurrent() }

// ValidAt reports whether the fact was true at the given valid time.
func (r BiTemporalRecord[T]) ValidAt(t time.Time) bool { return r.ValidPeriod.Contains(t) }

// KnownAt reports whether the system considered this version current at t.
func (r BiTemporalRecord[T]) KnownAt(t time.Time) bool { return r.SystemPeriod.ActiveAt(t) }

// EffectiveAt combines both axes: true at validTime as known at systemTime.
func (r BiTemporalRecord[T]) EffectiveAt(validTime, systemTime time.Time) bool {
	return r.ValidAt(validTime) && r.KnownAt(systemTime)
}
