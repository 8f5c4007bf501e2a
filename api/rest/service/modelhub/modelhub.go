package modelhub

import (
	"context"
	"errors"

	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/pkg/db"
	"gorm.io/gorm"
)

// ErrNotFound indicates the model version is not registered.
var ErrNotFound = errors.New("model version not found")

// ModelHub registers trained model versions and resolves the training
// job that produced one.
type ModelHub interface {
	WithDatabase(*gorm.DB) ModelHub
	Register(*RegisterRequest) (*models.ModelVersion, error)
	Get(modelID, versionID int64) (*models.ModelVersion, error)
	TrainingJob(modelID, versionID int64) (int64, error)
}

type modelHubService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) ModelHub {
	return &modelHubService{ctx: ctx, db: db.Connection()}
}

func (m *modelHubService) WithDatabase(conn *gorm.DB) ModelHub {
	m.db = conn
	return m
}

type RegisterRequest struct {
	ModelID   int64  `json:"model_id"`
	VersionID int64  `json:"version_id"`
	JobID     int64  `json:"job_id"`
	Location  string `json:"location"`
}

func (m *modelHubService) Register(req *RegisterRequest) (*models.ModelVersion, error) {
	mv := &models.ModelVersion{
		ModelID:   req.ModelID,
		VersionID: req.VersionID,
		JobID:     req.JobID,
		Location:  req.Location,
	}

	if err := m.db.WithContext(m.ctx).Create(mv).Error; err != nil {
		return nil, err
	}

	return mv, nil
}

func (m *modelHubService) Get(modelID, versionID int64) (*models.ModelVersion, error) {
	var mv models.ModelVersion

	err := m.db.WithContext(m.ctx).
		Where("model_id = ? AND version_id = ? AND is_deleted = ?",
			modelID, versionID, false).
		First(&mv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &mv, nil
}

// TrainingJob returns the id of the job whose run produced the model
// version.
func (m *modelHubService) TrainingJob(modelID, versionID int64) (int64, error) {
	mv, err := m.Get(modelID, versionID)
	if err != nil {
		return -1, err
	}

	return mv.JobID, nil
}
