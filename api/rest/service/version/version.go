package version

import (
	"context"
	"errors"

	"github.com/mattn/go-sqlite3"
	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/pkg/db"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the requested version does not exist or
	// has been tombstoned.
	ErrNotFound = errors.New("dataset version not found")
	// ErrVersionConflict indicates two writers raced on max+1 for the
	// same dataset. This is a fatal invariant violation; callers must
	// serialize lineage extension per dataset.
	ErrVersionConflict = errors.New("duplicate version id for dataset")
)

// Version is the store of immutable dataset version records.
type Version interface {
	WithDatabase(*gorm.DB) Version
	Create(*CreateRequest) (*models.DatasetVersion, error)
	MaxVersion(datasetID int64) (int64, error)
	Get(datasetID, versionID int64) (*models.DatasetVersion, error)
	List(*ListRequest) (models.DatasetVersions, error)
	Delete(datasetID int64, versionID *int64) error
	SetProfiling(datasetID, versionID, jobID int64) error
}

type versionService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) Version {
	return &versionService{ctx: ctx, db: db.Connection()}
}

func (v *versionService) WithDatabase(conn *gorm.DB) Version {
	v.db = conn
	return v
}

type CreateRequest struct {
	DatasetID       int64  `json:"dataset_id"`
	ParentVersionID int64  `json:"parent_version_id"`
	Location        string `json:"location"`
	CreatingJobID   int64  `json:"creating_job_id"`
}

// Create inserts the next version of a dataset, computing
// max(version_id)+1 (0 for a new dataset) inside the service's
// database handle. Callers extending a lineage must run Create inside
// the same transaction as the dependent binding update.
func (v *versionService) Create(req *CreateRequest) (*models.DatasetVersion, error) {
	q := v.db.WithContext(v.ctx)

	max, err := maxVersion(q, req.DatasetID)
	if err != nil {
		return nil, err
	}

	ver := &models.DatasetVersion{
		DatasetID:       req.DatasetID,
		VersionID:       max + 1,
		ParentVersionID: req.ParentVersionID,
		Location:        req.Location,
		CreatingJobID:   req.CreatingJobID,
	}

	if err := q.Create(ver).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, ErrVersionConflict
		}
		return nil, err
	}

	return ver, nil
}

func (v *versionService) MaxVersion(datasetID int64) (int64, error) {
	return maxVersion(v.db.WithContext(v.ctx), datasetID)
}

func maxVersion(q *gorm.DB, datasetID int64) (int64, error) {
	var max *int64

	err := q.Model(&models.DatasetVersion{}).
		Where("dataset_id = ?", datasetID).
		Select("MAX(version_id)").
		Scan(&max).Error
	if err != nil {
		return -1, err
	}

	// -1 so that +1 yields version 0
	if max == nil {
		return -1, nil
	}

	return *max, nil
}

func (v *versionService) Get(datasetID, versionID int64) (*models.DatasetVersion, error) {
	var ver models.DatasetVersion

	err := v.db.WithContext(v.ctx).
		Where(
			"dataset_id = ? AND version_id = ? AND is_deleted = ?",
			datasetID, versionID, false,
		).
		First(&ver).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &ver, nil
}

type ListRequest struct {
	DatasetID       int64
	CreatingJobID   *int64
	ParentVersionID *int64
}

func (v *versionService) List(req *ListRequest) (models.DatasetVersions, error) {
	var (
		versions = make(models.DatasetVersions, 0)
		q        = v.db.WithContext(v.ctx).
				Where("dataset_id = ? AND is_deleted = ?", req.DatasetID, false)
	)

	if req.CreatingJobID != nil {
		q = q.Where("creating_job_id = ?", *req.CreatingJobID)
	}

	if req.ParentVersionID != nil {
		q = q.Where("parent_version_id = ?", *req.ParentVersionID)
	}

	return versions, q.Order("version_id ASC").Find(&versions).Error
}

// Delete tombstones one version, or every version of the dataset when
// versionID is nil. Version ids are never renumbered.
func (v *versionService) Delete(datasetID int64, versionID *int64) error {
	q := v.db.WithContext(v.ctx).
		Model(&models.DatasetVersion{}).
		Where("dataset_id = ? AND is_deleted = ?", datasetID, false)

	if versionID != nil {
		q = q.Where("version_id = ?", *versionID)
	}

	result := q.Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (v *versionService) SetProfiling(datasetID, versionID, jobID int64) error {
	result := v.db.WithContext(v.ctx).
		Model(&models.DatasetVersion{}).
		Where("dataset_id = ? AND version_id = ?", datasetID, versionID).
		Updates(map[string]interface{}{
			"profiling_done":   true,
			"profiling_job_id": jobID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	return false
}
