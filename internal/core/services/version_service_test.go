package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/polisys/ledgercore/internal/adapters/database/memory"
	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/core/services"
)

type coverage struct {
	SumInsured int    `json:"sumInsured"`
	Product    string `json:"product"`
}

// The correction scenario: a policy coverage recorded effective January,
// later corrected. Queries against the old system time still see the
// original version.
func TestVersionService_CorrectionPreservesHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewVersionStore[coverage]()
	svc := services.NewVersionService[coverage](store, nil)

	policyID := domain.NewPolicyID().String()
	validFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	v1, err := svc.Record(ctx, policyID, coverage{SumInsured: 100000, Product: "term-life"}, domain.OpenValidPeriod(validFrom))
	require.NoError(t, err)

	// Keep the two system times strictly apart.
	time.Sleep(10 * time.Millisecond)

	v2, err := svc.Correct(ctx, policyID, coverage{SumInsured: 250000, Product: "term-life"}, domain.OpenValidPeriod(validFrom))
	require.NoError(t, err)
	require.NotEqual(t, v1.VersionID, v2.VersionID)

	queryValid := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// What we believe now.
	current, err := svc.AsOf(ctx, policyID, queryValid, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 250000, current.SumInsured)

	// What we believed before the correction was recorded.
	before, err := svc.AsOf(ctx, policyID, queryValid, v1.SystemPeriod.RecordedAt)
	require.NoError(t, err)
	assert.Equal(t, 100000, before.SumInsured)

	// Before the valid period started there was no coverage at all.
	_, err = svc.AsOf(ctx, policyID, validFrom.Add(-time.Hour), time.Now().UTC())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Before the system knew anything there was nothing either.
	_, err = svc.AsOf(ctx, policyID, queryValid, v1.SystemPeriod.RecordedAt.Add(-time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// A correction that narrows the valid period must not erase what was true
// before it: at the correction's own system time the superseded version is
// still answerable for dates the replacement does not cover.
func TestVersionService_CorrectionNarrowingValidPeriod(t *testing.T) {
	ctx := context.Background()
	store := memory.NewVersionStore[coverage]()
	svc := services.NewVersionService[coverage](store, nil)

	policyID := domain.NewPolicyID().String()
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jun1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	v1, err := svc.Record(ctx, policyID, coverage{SumInsured: 100000}, domain.OpenValidPeriod(jan1))
	require.NoError(t, err)
	s1 := v1.SystemPeriod.RecordedAt

	time.Sleep(10 * time.Millisecond)

	v2, err := svc.Correct(ctx, policyID, coverage{SumInsured: 250000}, domain.OpenValidPeriod(jun1))
	require.NoError(t, err)
	s2 := v2.SystemPeriod.RecordedAt

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	july := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	got, err := svc.AsOf(ctx, policyID, march, s1)
	require.NoError(t, err)
	assert.Equal(t, 100000, got.SumInsured)

	// The correction instant itself still answers for March: the old version
	// is known through s2 and the replacement does not cover that date.
	got, err = svc.AsOf(ctx, policyID, march, s2)
	require.NoError(t, err)
	assert.Equal(t, 100000, got.SumInsured)

	// Where both versions cover the date, the later recording wins.
	got, err = svc.AsOf(ctx, policyID, july, s2)
	require.NoError(t, err)
	assert.Equal(t, 250000, got.SumInsured)

	// After the correction instant the March fact is gone from current knowledge.
	_, err = svc.AsOf(ctx, policyID, march, s2.Add(time.Second))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVersionService_RecordRejectsSecondOpenVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewVersionStore[coverage]()
	svc := services.NewVersionService[coverage](store, nil)

	policyID := domain.NewPolicyID().String()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Record(ctx, policyID, coverage{SumInsured: 100000}, domain.OpenValidPeriod(start))
	require.NoError(t, err)

	_, err = svc.Record(ctx, policyID, coverage{SumInsured: 200000}, domain.OpenValidPeriod(start))
	assert.ErrorIs(t, err, domain.ErrTemporalOverlap)
}

func TestVersionService_CorrectWithoutOpenVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewVersionStore[coverage]()
	svc := services.NewVersionService[coverage](store, nil)

	_, err := svc.Correct(ctx, "POL-unknown", coverage{}, domain.OpenValidPeriod(time.Now().UTC()))
	assert.ErrorIs(t, err, domain.ErrVersionNotOpen)
}

func TestVersionService_History(t *testing.T) {
	ctx := context.Background()
	store := memory.NewVersionStore[coverage]()
	svc := services.NewVersionService[coverage](store, nil)

	policyID := domain.NewPolicyID().String()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Record(ctx, policyID, coverage{SumInsured: 100000}, domain.OpenValidPeriod(start))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Correct(ctx, policyID, coverage{SumInsured: 150000}, domain.OpenValidPeriod(start))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Correct(ctx, policyID, coverage{SumInsured: 200000}, domain.OpenValidPeriod(start))
	require.NoError(t, err)

	var sums []int
	var currents []bool
	for rec, err := range svc.History(ctx, policyID) {
		require.NoError(t, err)
		sums = append(sums, rec.Payload.SumInsured)
		currents = append(currents, rec.IsCurrent())
	}

	assert.Equal(t, []int{100000, 150000, 200000}, sums, "chain in recording order")
	assert.Equal(t, []bool{false, false, true}, currents, "only the last version is open")
}

// --- Mock VersionRepository for the conflict path ---

type MockVersionRepository struct {
	mock.Mock
}

var _ ports.VersionRepository[coverage] = (*MockVersionRepository)(nil)

func (m *MockVersionRepository) AppendVersion(ctx context.Context, rec domain.BiTemporalRecord[coverage]) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockVersionRepository) CloseVersion(ctx context.Context, entityID string, versionID domain.VersionID, supersededAt time.Time) error {
	args := m.Called(ctx, entityID, versionID, supersededAt)
	return args.Error(0)
}

func (m *MockVersionRepository) SupersedeVersion(ctx context.Context, entityID string, openVersionID domain.VersionID, replacement domain.BiTemporalRecord[coverage]) error {
	args := m.Called(ctx, entityID, openVersionID, replacement)
	return args.Error(0)
}

func (m *MockVersionRepository) FindOpenVersion(ctx context.Context, entityID string) (*domain.BiTemporalRecord[coverage], error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BiTemporalRecord[coverage]), args.Error(1)
}

func (m *MockVersionRepository) FindAsOf(ctx context.Context, entityID string, validTime, systemTime time.Time) (*domain.BiTemporalRecord[coverage], error) {
	args := m.Called(ctx, entityID, validTime, systemTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BiTemporalRecord[coverage]), args.Error(1)
}

func (m *MockVersionRepository) ListVersions(ctx context.Context, entityID string, limit int, nextToken *string) ([]domain.BiTemporalRecord[coverage], *string, error) {
	args := m.Called(ctx, entityID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var token *string
	if args.Get(1) != nil {
		t := args.Get(1).(string)
		token = &t
	}
	return args.Get(0).([]domain.BiTemporalRecord[coverage]), token, args.Error(2)
}

// A correction that loses the supersede race maps the adapter conflict to
// ErrConcurrentModification.
func TestVersionService_CorrectConflict(t *testing.T) {
	ctx := context.Background()
	repo := new(MockVersionRepository)
	svc := services.NewVersionService[coverage](repo, nil)

	entityID := "POL-race"
	open := &domain.BiTemporalRecord[coverage]{
		EntityID:     entityID,
		VersionID:    domain.NewVersionID(),
		ValidPeriod:  domain.OpenValidPeriod(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		SystemPeriod: domain.CurrentSystemPeriod(time.Now().UTC()),
	}

	repo.On("FindOpenVersion", ctx, entityID).Return(open, nil).Once()
	repo.On("SupersedeVersion", ctx, entityID, open.VersionID, mock.Anything).Return(apperrors.ErrConflict).Once()

	_, err := svc.Correct(ctx, entityID, coverage{SumInsured: 1}, open.ValidPeriod)

	require.ErrorIs(t, err, services.ErrConcurrentModification)
	repo.AssertExpectations(t)
}
