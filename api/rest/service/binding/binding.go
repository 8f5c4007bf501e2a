package binding

import (
	"context"
	"errors"

	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/pkg/db"
	"gorm.io/gorm"
)

// ErrNotFound indicates no binding matched the lookup.
var ErrNotFound = errors.New("binding not found")

// Binding tracks which dataset version each (project, user) pair is
// currently working on. Rebinding supersedes the previous binding
// atomically; superseded bindings remain queryable.
type Binding interface {
	WithDatabase(*gorm.DB) Binding
	Bind(*BindRequest) (*models.Binding, error)
	Current(projectID, userID int64) (*models.Binding, error)
	Find(projectID, userID, datasetID, versionID int64) (int64, error)
	FindForVersion(projectID, userID, datasetID, versionID int64) (*models.Binding, error)
	Get(bindingID int64) (*models.Binding, error)
	MarkNotCurrent(bindingID int64) error
}

type bindingService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) Binding {
	return &bindingService{ctx: ctx, db: db.Connection()}
}

func (b *bindingService) WithDatabase(conn *gorm.DB) Binding {
	b.db = conn
	return b
}

type BindRequest struct {
	ProjectID    int64  `json:"project_id"`
	UserID       int64  `json:"user_id"`
	DatasetID    int64  `json:"dataset_id"`
	VersionID    int64  `json:"version_id"`
	TargetColumn string `json:"target_column"`
}

// Bind points (project, user) at a dataset version. The flip of the
// previous current binding and the insert of the new one happen in one
// transaction, preserving the at-most-one-current invariant.
func (b *bindingService) Bind(req *BindRequest) (*models.Binding, error) {
	bind := &models.Binding{
		ProjectID:    req.ProjectID,
		UserID:       req.UserID,
		DatasetID:    req.DatasetID,
		VersionID:    req.VersionID,
		TargetColumn: req.TargetColumn,
		IsCurrent:    true,
	}

	err := b.db.WithContext(b.ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Binding{}).
			Where("project_id = ? AND user_id = ? AND is_current = ?",
				req.ProjectID, req.UserID, true).
			Update("is_current", false).Error
		if err != nil {
			return err
		}

		return tx.Create(bind).Error
	})
	if err != nil {
		return nil, err
	}

	return bind, nil
}

func (b *bindingService) Current(projectID, userID int64) (*models.Binding, error) {
	var bind models.Binding

	err := b.db.WithContext(b.ctx).
		Where("project_id = ? AND user_id = ? AND is_current = ?",
			projectID, userID, true).
		First(&bind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &bind, nil
}

// Find returns the id of the binding attaching (project, user) to the
// given dataset version, current or not. Jobs are attached to bindings
// through this lookup.
func (b *bindingService) Find(projectID, userID, datasetID, versionID int64) (int64, error) {
	bind, err := b.FindForVersion(projectID, userID, datasetID, versionID)
	if err != nil {
		return -1, err
	}

	return bind.ID, nil
}

// FindForVersion returns the binding (historical bindings included)
// for a dataset version under a (project, user) pair. The pipeline
// resolver walks superseded bindings through this.
func (b *bindingService) FindForVersion(projectID, userID, datasetID, versionID int64) (*models.Binding, error) {
	var bind models.Binding

	err := b.db.WithContext(b.ctx).
		Where("project_id = ? AND user_id = ? AND dataset_id = ? AND version_id = ?",
			projectID, userID, datasetID, versionID).
		Order("id DESC").
		First(&bind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &bind, nil
}

func (b *bindingService) Get(bindingID int64) (*models.Binding, error) {
	var bind models.Binding

	err := b.db.WithContext(b.ctx).First(&bind, "id = ?", bindingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &bind, nil
}

// MarkNotCurrent clears a binding's current flag without installing a
// successor, used when a dataset is deleted to avoid a dangling
// current pointer.
func (b *bindingService) MarkNotCurrent(bindingID int64) error {
	result := b.db.WithContext(b.ctx).
		Model(&models.Binding{}).
		Where("id = ?", bindingID).
		Update("is_current", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
