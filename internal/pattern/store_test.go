package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/logger"
)

func newTestStore(t *testing.T) *Store {
	s, err := NewStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return s
}

func steps() []entity.PatternStep {
	return []entity.PatternStep{
		{
			Order: 0,
			Kind:  entity.ActionClick,
			Target: entity.ElementTarget{
				PrimarySelector:   "#reports-tab",
				FallbackSelectors: []string{"[data-testid='reports']"},
			},
			TimeoutMs:  5000,
			MaxRetries: 2,
		},
		{
			Order:     1,
			Kind:      entity.ActionClick,
			Target:    entity.ElementTarget{PrimarySelector: "#download-csv"},
			TimeoutMs: 5000,
		},
	}
}

func TestStoreAndRetrieve(t *testing.T) {
	s := newTestStore(t)
	fp := entity.ContextFingerprint(entity.TaskReportDownload, "app.example.com", "prod")

	stored, err := s.StorePattern(entity.TaskReportDownload, fp, steps())
	require.NoError(t, err)

	got, err := s.BestPattern(entity.TaskReportDownload, fp)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Len(t, got.ActionSequence, 2)
}

func TestBestPattern_NoMatch(t *testing.T) {
	s := newTestStore(t)
	fp := entity.ContextFingerprint(entity.TaskReportDownload, "app.example.com", "prod")

	_, err := s.BestPattern(entity.TaskRecordLookup, fp)
	assert.ErrorIs(t, err, entity.ErrNoPattern)
}

func TestBestPattern_FingerprintMustMatch(t *testing.T) {
	s := newTestStore(t)
	fpA := entity.ContextFingerprint(entity.TaskReportDownload, "a.example.com", "prod")
	fpB := entity.ContextFingerprint(entity.TaskReportDownload, "b.example.com", "prod")

	_, err := s.StorePattern(entity.TaskReportDownload, fpA, steps())
	require.NoError(t, err)

	_, err = s.BestPattern(entity.TaskReportDownload, fpB)
	assert.ErrorIs(t, err, entity.ErrNoPattern)
}

func TestRepeatedFailuresDegradeBelowThreshold(t *testing.T) {
	s := newTestStore(t)
	fp := entity.ContextFingerprint(entity.TaskReportDownload, "app.example.com", "prod")

	stored, err := s.StorePattern(entity.TaskReportDownload, fp, steps())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		if _, err := s.BestPattern(entity.TaskReportDownload, fp); err != nil {
			break
		}
		require.NoError(t, s.UpdateAfterExecution(stored.ID, false))
	}

	_, err = s.BestPattern(entity.TaskReportDownload, fp)
	assert.ErrorIs(t, err, entity.ErrNoPattern, "degraded pattern must no longer be offered")
}

func TestSuccessReinforces(t *testing.T) {
	s := newTestStore(t)
	fp := entity.ContextFingerprint(entity.TaskRecordLookup, "app.example.com", "prod")

	stored, err := s.StorePattern(entity.TaskRecordLookup, fp, steps())
	require.NoError(t, err)
	initial := stored.Confidence

	require.NoError(t, s.UpdateAfterExecution(stored.ID, true))

	got, err := s.BestPattern(entity.TaskRecordLookup, fp)
	require.NoError(t, err)
	assert.Greater(t, got.Confidence, initial)
	assert.InDelta(t, 1.0, got.SuccessRate, 1e-9)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewNop()
	fp := entity.ContextFingerprint(entity.TaskReportDownload, "app.example.com", "prod")

	s1, err := NewStore(dir, log)
	require.NoError(t, err)
	stored, err := s1.StorePattern(entity.TaskReportDownload, fp, steps())
	require.NoError(t, err)

	s2, err := NewStore(dir, log)
	require.NoError(t, err)
	got, err := s2.BestPattern(entity.TaskReportDownload, fp)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
}

func TestStorePattern_RejectsEmptySequence(t *testing.T) {
	s := newTestStore(t)
	_, err := s.StorePattern(entity.TaskReportDownload, "fp", nil)
	assert.Error(t, err)
}

func TestUpdate_UnknownID(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateAfterExecution("missing", true)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
