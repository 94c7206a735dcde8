package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zecapture/graph/pkg/model"
)

func newTestRepo(t *testing.T) *GormGraphAuditRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	repo := NewGormGraphAuditRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func TestGormGraphAuditRepository_RecordCaptureThenGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.RecordCapture(ctx, "graph-1", 42, 5, 2)
	require.NoError(t, err)

	rec, err := repo.GetByGraphUUID(ctx, "graph-1")
	require.NoError(t, err)
	require.Equal(t, "graph-1", rec.GraphUUID)
	require.Equal(t, uint64(42), rec.ContextID)
	require.Equal(t, 5, rec.CommandCount)
	require.Equal(t, 2, rec.SubgraphCount)
	require.Equal(t, model.OutcomeCaptured, rec.Outcome)
}

func TestGormGraphAuditRepository_RecordInstantiationSuccess(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordCapture(ctx, "graph-2", 1, 3, 0))
	require.NoError(t, repo.RecordInstantiation(ctx, "graph-2", "split", nil))

	rec, err := repo.GetByGraphUUID(ctx, "graph-2")
	require.NoError(t, err)
	require.Equal(t, "split", rec.ForkPolicy)
	require.Equal(t, model.OutcomeInstantiated, rec.Outcome)
}

func TestGormGraphAuditRepository_RecordInstantiationFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordCapture(ctx, "graph-3", 1, 1, 0))
	instErr := errUnjoinedForks
	require.NoError(t, repo.RecordInstantiation(ctx, "graph-3", "monolithic", instErr))

	rec, err := repo.GetByGraphUUID(ctx, "graph-3")
	require.NoError(t, err)
	require.Equal(t, model.OutcomeFailed, rec.Outcome)
	require.Equal(t, instErr.Error(), rec.ErrorMessage)
}

func TestGormGraphAuditRepository_RecordExecution(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordCapture(ctx, "graph-4", 1, 1, 0))
	require.NoError(t, repo.RecordExecution(ctx, "graph-4", 15*time.Millisecond, nil))

	rec, err := repo.GetByGraphUUID(ctx, "graph-4")
	require.NoError(t, err)
	require.Equal(t, model.OutcomeExecuted, rec.Outcome)
	require.Equal(t, int64(15), rec.DurationMillis)
}

func TestGormGraphAuditRepository_GetByGraphUUID_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetByGraphUUID(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestGormGraphAuditRepository_ListRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordCapture(ctx, "graph-5", 1, 1, 0))
	require.NoError(t, repo.RecordCapture(ctx, "graph-6", 1, 1, 0))

	records, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

var errUnjoinedForks = &testError{"graph has unjoined forks"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
