package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the job does not exist.
	ErrNotFound = errors.New("job not found")
	// ErrIllegalTransition indicates an attempt to move a job against
	// the state machine. Such attempts are rejected, never ignored.
	ErrIllegalTransition = errors.New("illegal job status transition")
)

// Job is the registry of transformation jobs and the sole enforcer of
// the job status state machine.
type Job interface {
	WithDatabase(*gorm.DB) Job
	Create(*CreateRequest) (*models.Job, error)
	Transition(jobID int64, status models.Status, options datatypes.JSONMap) (*models.Job, error)
	Get(jobID int64) (*models.Job, error)
	List(*ListRequest) (models.JobDetails, error)
	Delete(jobID int64) error
}

type jobService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) Job {
	return &jobService{ctx: ctx, db: db.Connection()}
}

func (j *jobService) WithDatabase(conn *gorm.DB) Job {
	j.db = conn
	return j
}

type CreateRequest struct {
	BindingID   int64             `json:"binding_id"`
	StageType   models.StageType  `json:"stage_type"`
	Options     datatypes.JSONMap `json:"options,omitempty"`
	ParentJobID int64             `json:"parent_job_id"`
}

func (j *jobService) Create(req *CreateRequest) (*models.Job, error) {
	if _, err := models.ParseStageType(req.StageType.String()); err != nil {
		return nil, err
	}

	parent := req.ParentJobID
	if parent == 0 {
		parent = -1
	}

	job := &models.Job{
		BindingID:   req.BindingID,
		StageType:   req.StageType,
		Options:     req.Options,
		Status:      models.StatusNotStarted,
		ParentJobID: parent,
		StartedAt:   -1,
		EndedAt:     -1,
	}

	if err := j.db.WithContext(j.ctx).Create(job).Error; err != nil {
		return nil, err
	}

	return job, nil
}

// Transition moves a job through its state machine. Entering Running
// stamps StartedAt; entering a terminal state stamps EndedAt. Options,
// when non-nil, replace the stored job options (the consumer uses this
// to persist resolved stage options). Any transition the state machine
// forbids fails with ErrIllegalTransition.
func (j *jobService) Transition(jobID int64, status models.Status, options datatypes.JSONMap) (*models.Job, error) {
	from, ok := transitionFrom[status]
	if !ok {
		return nil, fmt.Errorf("%w: no transition enters %v", ErrIllegalTransition, status)
	}

	now := time.Now().UTC().Unix()
	updates := map[string]interface{}{"status": int(status)}

	switch {
	case status == models.StatusRunning:
		updates["started_at"] = now
	case status.Terminal():
		updates["ended_at"] = now
	}

	if options != nil {
		updates["options"] = options
	}

	var job models.Job

	err := j.db.WithContext(j.ctx).Transaction(func(tx *gorm.DB) error {
		// the prior status is part of the update key: a concurrent
		// writer that already moved the job leaves this update
		// matching zero rows instead of overwriting a terminal state
		result := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", jobID, int(from)).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			return fmt.Errorf("%w: %v -> %v (job %d)",
				ErrIllegalTransition, job.Status, status, jobID)
		}

		return tx.First(&job, "id = ?", jobID).Error
	})
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// transitionFrom maps each enterable status to the only status it may
// be entered from. The chain is linear, so the guarded update needs
// exactly one expected prior value.
var transitionFrom = map[models.Status]models.Status{
	models.StatusRunning:  models.StatusNotStarted,
	models.StatusComplete: models.StatusRunning,
	models.StatusError:    models.StatusRunning,
}

func (j *jobService) Get(jobID int64) (*models.Job, error) {
	var job models.Job

	err := j.db.WithContext(j.ctx).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &job, nil
}

type ListRequest struct {
	DatasetID      *int64
	VersionID      *int64
	ProjectID      *int64
	UserID         *int64
	Status         *models.Status
	BindingIDs     []int64
	StartedBefore  *time.Time
	IncludeDeleted bool
}

// List returns jobs joined with the binding each was attached to at
// creation time. The binding join is what lets callers filter by
// dataset, version, project or user; StartedBefore exists to support
// an external liveness sweep over stuck Running jobs.
func (j *jobService) List(req *ListRequest) (models.JobDetails, error) {
	var (
		details = make(models.JobDetails, 0)
		q       = j.db.WithContext(j.ctx).
			Table("jobs").
			Select("jobs.*, bindings.dataset_id, bindings.version_id, bindings.project_id, bindings.user_id").
			Joins("JOIN bindings ON bindings.id = jobs.binding_id")
	)

	if !req.IncludeDeleted {
		q = q.Where("jobs.is_deleted = ?", false)
	}

	if req.DatasetID != nil {
		q = q.Where("bindings.dataset_id = ?", *req.DatasetID)
	}

	if req.VersionID != nil {
		q = q.Where("bindings.version_id = ?", *req.VersionID)
	}

	if req.ProjectID != nil {
		q = q.Where("bindings.project_id = ?", *req.ProjectID)
	}

	if req.UserID != nil {
		q = q.Where("bindings.user_id = ?", *req.UserID)
	}

	if req.Status != nil {
		q = q.Where("jobs.status = ?", int(*req.Status))
	}

	if len(req.BindingIDs) > 0 {
		q = q.Where("jobs.binding_id IN ?", req.BindingIDs)
	}

	if req.StartedBefore != nil {
		q = q.Where("jobs.started_at > ? AND jobs.started_at < ?", -1, req.StartedBefore.Unix())
	}

	return details, q.Order("jobs.id ASC").Scan(&details).Error
}

// Delete soft-deletes a job from listings. Job rows are never removed.
func (j *jobService) Delete(jobID int64) error {
	result := j.db.WithContext(j.ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
