package job

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}, &models.Binding{}))
	return db
}

func seedBinding(t *testing.T, db *gorm.DB, projectID, userID, datasetID, versionID int64) *models.Binding {
	t.Helper()
	bind := &models.Binding{
		ProjectID: projectID,
		UserID:    userID,
		DatasetID: datasetID,
		VersionID: versionID,
		IsCurrent: true,
	}
	require.NoError(t, db.Create(bind).Error)
	return bind
}

func TestCreateStartsNotStarted(t *testing.T) {
	db := openTestDB(t)
	svc := (&jobService{ctx: context.Background()}).WithDatabase(db)
	bind := seedBinding(t, db, 1, 1, 7, 0)

	job, err := svc.Create(&CreateRequest{
		BindingID: bind.ID,
		StageType: models.StagePreprocess,
		Options:   datatypes.JSONMap{"impute": "mean"},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusNotStarted, job.Status)
	require.EqualValues(t, -1, job.ParentJobID)
	require.EqualValues(t, -1, job.StartedAt)
	require.EqualValues(t, -1, job.EndedAt)
}

func TestCreateRejectsUnknownStage(t *testing.T) {
	svc := (&jobService{ctx: context.Background()}).WithDatabase(openTestDB(t))

	_, err := svc.Create(&CreateRequest{BindingID: 1, StageType: "imputation"})
	require.Error(t, err)
}

func TestTransitionLifecycle(t *testing.T) {
	db := openTestDB(t)
	svc := (&jobService{ctx: context.Background()}).WithDatabase(db)
	bind := seedBinding(t, db, 1, 1, 7, 0)

	job, err := svc.Create(&CreateRequest{BindingID: bind.ID, StageType: models.StageFeatureEng})
	require.NoError(t, err)

	running, err := svc.Transition(job.ID, models.StatusRunning, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusRunning, running.Status)
	require.Greater(t, running.StartedAt, int64(-1))
	require.EqualValues(t, -1, running.EndedAt)

	done, err := svc.Transition(job.ID, models.StatusComplete, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusComplete, done.Status)
	require.Greater(t, done.EndedAt, int64(-1))
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	db := openTestDB(t)
	svc := (&jobService{ctx: context.Background()}).WithDatabase(db)
	bind := seedBinding(t, db, 1, 1, 7, 0)

	job, err := svc.Create(&CreateRequest{BindingID: bind.ID, StageType: models.StagePreprocess})
	require.NoError(t, err)

	// NotStarted may not skip straight to a terminal state
	_, err = svc.Transition(job.ID, models.StatusComplete, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.Transition(job.ID, models.StatusError, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)

	_, err = svc.Transition(job.ID, models.StatusRunning, nil)
	require.NoError(t, err)
	_, err = svc.Transition(job.ID, models.StatusError, nil)
	require.NoError(t, err)

	// terminal states absorb nothing
	_, err = svc.Transition(job.ID, models.StatusRunning, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.Transition(job.ID, models.StatusComplete, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)

	// the failed transition left the row untouched
	stored, err := svc.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusError, stored.Status)
}

func TestTransitionFirstFinisherWins(t *testing.T) {
	db := openTestDB(t)
	bind := seedBinding(t, db, 1, 1, 7, 0)

	// a consumer and the liveness sweep each hold their own service
	// handle and both believe the job is still Running
	consumer := (&jobService{ctx: context.Background()}).WithDatabase(db)
	sweeper := (&jobService{ctx: context.Background()}).WithDatabase(db)

	job, err := consumer.Create(&CreateRequest{BindingID: bind.ID, StageType: models.StageAutoML})
	require.NoError(t, err)
	_, err = consumer.Transition(job.ID, models.StatusRunning, nil)
	require.NoError(t, err)

	done, err := consumer.Transition(job.ID, models.StatusComplete, nil)
	require.NoError(t, err)

	// the late finisher's update is keyed on the Running it read, so
	// it matches nothing and must not overwrite the terminal state
	_, err = sweeper.Transition(job.ID, models.StatusError, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)

	stored, err := consumer.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusComplete, stored.Status)
	require.Equal(t, done.EndedAt, stored.EndedAt)
}

func TestTransitionMissingJob(t *testing.T) {
	svc := (&jobService{ctx: context.Background()}).WithDatabase(openTestDB(t))

	_, err := svc.Transition(404, models.StatusRunning, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionPersistsOptions(t *testing.T) {
	db := openTestDB(t)
	svc := (&jobService{ctx: context.Background()}).WithDatabase(db)
	bind := seedBinding(t, db, 1, 1, 7, 0)

	job, err := svc.Create(&CreateRequest{BindingID: bind.ID, StageType: models.StagePreprocess})
	require.NoError(t, err)

	_, err = svc.Transition(job.ID, models.StatusRunning, datatypes.JSONMap{"scale": "minmax"})
	require.NoError(t, err)

	stored, err := svc.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, "minmax", stored.Options["scale"])
}

func TestListFilters(t *testing.T) {
	db := openTestDB(t)
	svc := (&jobService{ctx: context.Background()}).WithDatabase(db)

	bindA := seedBinding(t, db, 1, 10, 7, 0)
	bindB := seedBinding(t, db, 2, 20, 8, 3)

	jobA, err := svc.Create(&CreateRequest{BindingID: bindA.ID, StageType: models.StagePreprocess})
	require.NoError(t, err)
	_, err = svc.Create(&CreateRequest{BindingID: bindB.ID, StageType: models.StageAutoML})
	require.NoError(t, err)

	_, err = svc.Transition(jobA.ID, models.StatusRunning, nil)
	require.NoError(t, err)
	_, err = svc.Transition(jobA.ID, models.StatusComplete, nil)
	require.NoError(t, err)

	dataset := int64(7)
	details, err := svc.List(&ListRequest{DatasetID: &dataset})
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, jobA.ID, details[0].ID)
	require.EqualValues(t, 7, details[0].DatasetID)
	require.EqualValues(t, 0, details[0].VersionID)
	require.EqualValues(t, 1, details[0].ProjectID)
	require.EqualValues(t, 10, details[0].UserID)

	complete := models.StatusComplete
	details, err = svc.List(&ListRequest{Status: &complete, BindingIDs: []int64{bindA.ID}})
	require.NoError(t, err)
	require.Len(t, details, 1)

	project := int64(2)
	details, err = svc.List(&ListRequest{ProjectID: &project})
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, models.StageAutoML, details[0].StageType)
}

func TestListStartedBefore(t *testing.T) {
	db := openTestDB(t)
	svc := (&jobService{ctx: context.Background()}).WithDatabase(db)
	bind := seedBinding(t, db, 1, 1, 7, 0)

	stuck, err := svc.Create(&CreateRequest{BindingID: bind.ID, StageType: models.StageAutoML})
	require.NoError(t, err)
	_, err = svc.Transition(stuck.ID, models.StatusRunning, nil)
	require.NoError(t, err)

	fresh, err := svc.Create(&CreateRequest{BindingID: bind.ID, StageType: models.StagePreprocess})
	require.NoError(t, err)

	running := models.StatusRunning
	cutoff := time.Now().UTC().Add(time.Minute)
	details, err := svc.List(&ListRequest{Status: &running, StartedBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, stuck.ID, details[0].ID)

	past := time.Now().UTC().Add(-time.Minute)
	details, err = svc.List(&ListRequest{Status: &running, StartedBefore: &past})
	require.NoError(t, err)
	require.Empty(t, details)

	// jobs that never started are excluded regardless of cutoff
	_ = fresh
}

func TestDeleteHidesFromList(t *testing.T) {
	db := openTestDB(t)
	svc := (&jobService{ctx: context.Background()}).WithDatabase(db)
	bind := seedBinding(t, db, 1, 1, 7, 0)

	job, err := svc.Create(&CreateRequest{BindingID: bind.ID, StageType: models.StagePreprocess})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(job.ID))

	details, err := svc.List(&ListRequest{BindingIDs: []int64{bind.ID}})
	require.NoError(t, err)
	require.Empty(t, details)

	details, err = svc.List(&ListRequest{BindingIDs: []int64{bind.ID}, IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, details, 1)
}
