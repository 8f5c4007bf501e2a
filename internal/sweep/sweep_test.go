package sweep

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	jobsvc "github.com/paceml-cloud/paceml/api/rest/service/job"
	"github.com/paceml-cloud/paceml/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}, &models.Binding{}))
	return db
}

func seedJob(t *testing.T, db *gorm.DB, status models.Status, startedAt int64) *models.Job {
	t.Helper()

	bind := &models.Binding{ProjectID: 1, UserID: 1, DatasetID: 7, VersionID: 0, IsCurrent: true}
	require.NoError(t, db.Create(bind).Error)

	job := &models.Job{
		BindingID: bind.ID,
		StageType: models.StageAutoML,
		Status:    status,
		StartedAt: startedAt,
		EndedAt:   -1,
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

func TestSweepFailsStuckJobs(t *testing.T) {
	db := openTestDB(t)

	stale := time.Now().UTC().Add(-3 * time.Hour).Unix()
	stuck := seedJob(t, db, models.StatusRunning, stale)
	fresh := seedJob(t, db, models.StatusRunning, time.Now().UTC().Unix())
	pending := seedJob(t, db, models.StatusNotStarted, -1)

	swept, err := NewSweeper(db, time.Hour).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	svc := jobsvc.Service(context.Background()).WithDatabase(db)

	job, err := svc.Get(stuck.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusError, job.Status)
	require.Greater(t, job.EndedAt, int64(-1))

	job, err = svc.Get(fresh.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusRunning, job.Status)

	job, err = svc.Get(pending.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusNotStarted, job.Status)
}

func TestSweepNothingStuck(t *testing.T) {
	db := openTestDB(t)
	seedJob(t, db, models.StatusComplete, time.Now().UTC().Add(-4*time.Hour).Unix())

	swept, err := NewSweeper(db, time.Hour).Sweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, swept)
}
