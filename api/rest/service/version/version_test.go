package version

import (
	"context"
	"fmt"
	"testing"

	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.DatasetVersion{}))
	return db
}

func testService(t *testing.T) Version {
	return (&versionService{ctx: context.Background()}).WithDatabase(openTestDB(t))
}

func TestCreateStartsAtZero(t *testing.T) {
	svc := testService(t)

	ver, err := svc.Create(&CreateRequest{
		DatasetID:       7,
		ParentVersionID: -1,
		Location:        "datasets/7/0/data.csv",
		CreatingJobID:   -1,
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, ver.VersionID)
	require.True(t, ver.Root())
}

func TestCreateMonotonic(t *testing.T) {
	svc := testService(t)

	for want := int64(0); want < 4; want++ {
		ver, err := svc.Create(&CreateRequest{
			DatasetID:       3,
			ParentVersionID: want - 1,
			Location:        fmt.Sprintf("datasets/3/%d/data.csv", want),
			CreatingJobID:   -1,
		})
		require.NoError(t, err)
		require.Equal(t, want, ver.VersionID)
	}

	max, err := svc.MaxVersion(3)
	require.NoError(t, err)
	require.EqualValues(t, 3, max)
}

func TestMaxVersionEmptyDataset(t *testing.T) {
	svc := testService(t)

	max, err := svc.MaxVersion(99)
	require.NoError(t, err)
	require.EqualValues(t, -1, max)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	db := openTestDB(t)
	svc := (&versionService{ctx: context.Background()}).WithDatabase(db)

	_, err := svc.Create(&CreateRequest{DatasetID: 1, ParentVersionID: -1, Location: "l", CreatingJobID: -1})
	require.NoError(t, err)

	// force the race a concurrent completion would cause
	err = db.Create(&models.DatasetVersion{
		DatasetID: 1, VersionID: 1, ParentVersionID: 0, Location: "l",
	}).Error
	require.NoError(t, err)

	dup := &models.DatasetVersion{DatasetID: 1, VersionID: 1, ParentVersionID: 0, Location: "l"}
	err = db.Create(dup).Error
	require.Error(t, err)
	require.True(t, isDuplicateErr(err))
}

func TestGetMissingAndTombstoned(t *testing.T) {
	svc := testService(t)

	_, err := svc.Get(5, 0)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(&CreateRequest{DatasetID: 5, ParentVersionID: -1, Location: "l", CreatingJobID: -1})
	require.NoError(t, err)

	zero := int64(0)
	require.NoError(t, svc.Delete(5, &zero))

	_, err = svc.Get(5, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAllVersions(t *testing.T) {
	svc := testService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(&CreateRequest{DatasetID: 2, ParentVersionID: int64(i) - 1, Location: "l", CreatingJobID: -1})
		require.NoError(t, err)
	}

	require.NoError(t, svc.Delete(2, nil))

	versions, err := svc.List(&ListRequest{DatasetID: 2})
	require.NoError(t, err)
	require.Empty(t, versions)

	// tombstoned versions keep their ids: the next create does not
	// renumber
	ver, err := svc.Create(&CreateRequest{DatasetID: 2, ParentVersionID: 2, Location: "l", CreatingJobID: -1})
	require.NoError(t, err)
	require.EqualValues(t, 3, ver.VersionID)
}

func TestSetProfiling(t *testing.T) {
	svc := testService(t)

	_, err := svc.Create(&CreateRequest{DatasetID: 4, ParentVersionID: -1, Location: "l", CreatingJobID: -1})
	require.NoError(t, err)

	require.NoError(t, svc.SetProfiling(4, 0, 11))

	ver, err := svc.Get(4, 0)
	require.NoError(t, err)
	require.True(t, ver.ProfilingDone)
	require.EqualValues(t, 11, ver.ProfilingJobID)

	require.ErrorIs(t, svc.SetProfiling(4, 9, 11), ErrNotFound)
}

func TestLineageTerminatesAtRoot(t *testing.T) {
	svc := testService(t)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(&CreateRequest{DatasetID: 6, ParentVersionID: int64(i) - 1, Location: "l", CreatingJobID: -1})
		require.NoError(t, err)
	}

	max, err := svc.MaxVersion(6)
	require.NoError(t, err)

	steps := 0
	for v := max; v > 0; steps++ {
		require.LessOrEqual(t, int64(steps), max+1)
		ver, err := svc.Get(6, v)
		require.NoError(t, err)
		require.Less(t, ver.ParentVersionID, ver.VersionID)
		v = ver.ParentVersionID
	}
}
