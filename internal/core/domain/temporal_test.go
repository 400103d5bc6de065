package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisys/ledgercore/internal/core/domain"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jun1 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	dec1 = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
)

func TestNewValidPeriod_RejectsInvertedBounds(t *testing.T) {
	_, err := domain.NewValidPeriod(jun1, jan1)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = domain.NewValidPeriod(jan1, jan1)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestValidPeriod_Contains(t *testing.T) {
	bounded, err := domain.NewValidPeriod(jan1, dec1)
	require.NoError(t, err)

	assert.True(t, bounded.Contains(jan1), "start is inclusive")
	assert.True(t, bounded.Contains(jun1))
	assert.False(t, bounded.Contains(dec1), "end is exclusive")
	assert.False(t, bounded.Contains(jan1.Add(-time.Second)))

	open := domain.OpenValidPeriod(jan1)
	assert.True(t, open.IsOpen())
	assert.True(t, open.Contains(dec1.AddDate(10, 0, 0)))
	assert.False(t, open.Contains(jan1.Add(-time.Second)))
}

func TestValidPeriod_Overlaps(t *testing.T) {
	first, err := domain.NewValidPeriod(jan1, jun1)
	require.NoError(t, err)
	second, err := domain.NewValidPeriod(jun1, dec1)
	require.NoError(t, err)

	assert.False(t, first.Overlaps(second), "adjacent periods do not overlap")
	assert.False(t, second.Overlaps(first))

	wide, err := domain.NewValidPeriod(jan1, dec1)
	require.NoError(t, err)
	assert.True(t, wide.Overlaps(first))
	assert.True(t, wide.Overlaps(second))

	open := domain.OpenValidPeriod(jun1)
	assert.True(t, open.Overlaps(second))
	assert.False(t, open.Overlaps(first), "open period starts where the bounded one ends")
}

func TestValidPeriod_CloseAt(t *testing.T) {
	open := domain.OpenValidPeriod(jan1)

	closed, err := open.CloseAt(jun1)
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.False(t, closed.Contains(jun1))

	_, err = open.CloseAt(jan1)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestSystemPeriod_ActiveAt(t *testing.T) {
	p := domain.CurrentSystemPeriod(jan1)
	assert.True(t, p.IsCurrent())
	assert.True(t, p.ActiveAt(jun1))
	assert.False(t, p.ActiveAt(jan1.Add(-time.Second)))

	closed := p.SupersededBy(jun1)
	assert.False(t, closed.IsCurrent())
	assert.True(t, closed.ActiveAt(jan1))
	assert.True(t, closed.ActiveAt(jun1), "still known at the superseding instant")
	assert.False(t, closed.ActiveAt(jun1.Add(time.Second)))
}

func TestBiTemporalRecord_EffectiveAt(t *testing.T) {
	valid, err := domain.NewValidPeriod(jan1, dec1)
	require.NoError(t, err)

	rec := domain.BiTemporalRecord[string]{
		EntityID:     "POL-1",
		VersionID:    domain.NewVersionID(),
		ValidPeriod:  valid,
		SystemPeriod: domain.CurrentSystemPeriod(jun1),
		Payload:      "v1",
	}

	// Valid in June, but the system only learned it in June.
	assert.True(t, rec.EffectiveAt(jun1, jun1))
	assert.True(t, rec.EffectiveAt(jan1, jun1), "retroactively valid from January")
	assert.False(t, rec.EffectiveAt(jan1, jan1), "not yet known in January")
	assert.False(t, rec.EffectiveAt(dec1, dec1), "valid period ended")
}
