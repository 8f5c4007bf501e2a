// Package dispatch implements the producer and consumer sides of the
// asynchronous stage execution contract: the dispatcher records a job
// and enqueues it, the consumer executes it and extends the dataset
// lineage.
package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	bindingsvc "github.com/paceml-cloud/paceml/api/rest/service/binding"
	jobsvc "github.com/paceml-cloud/paceml/api/rest/service/job"
	versionsvc "github.com/paceml-cloud/paceml/api/rest/service/version"
	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/internal/queue"
	"github.com/paceml-cloud/paceml/internal/storage"
	"github.com/paceml-cloud/paceml/pkg/log"
)

// ErrAlreadyIngested indicates the dataset already has a version 0;
// re-ingestion would fork the lineage root.
var ErrAlreadyIngested = errors.New("dataset already ingested")

// Dispatcher creates jobs and publishes them to the queue. Job row and
// queue message are kept consistent by publishing inside the job
// creation transaction: a failed publish rolls the job back, so a job
// recorded as created but never enqueued cannot exist.
type Dispatcher struct {
	db      *gorm.DB
	queue   queue.Queue
	storage storage.Store
}

func NewDispatcher(db *gorm.DB, q queue.Queue, store storage.Store) *Dispatcher {
	return &Dispatcher{db: db, queue: q, storage: store}
}

type SubmitRequest struct {
	ProjectID   int64             `json:"project_id"`
	UserID      int64             `json:"user_id"`
	DatasetID   int64             `json:"dataset_id"`
	VersionID   int64             `json:"version_id"`
	StageType   models.StageType  `json:"stage_type"`
	Options     datatypes.JSONMap `json:"options,omitempty"`
	ParentJobID int64             `json:"parent_job_id,omitempty"`
}

// Submit requests a stage run against a dataset version the caller is
// bound to. It returns the id of the job now waiting on the queue.
func (d *Dispatcher) Submit(ctx context.Context, req *SubmitRequest) (int64, error) {
	bindingID, err := bindingsvc.Service(ctx).WithDatabase(d.db).
		Find(req.ProjectID, req.UserID, req.DatasetID, req.VersionID)
	if err != nil {
		return -1, err
	}

	var jobID int64

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := jobsvc.Service(ctx).WithDatabase(tx).Create(&jobsvc.CreateRequest{
			BindingID:   bindingID,
			StageType:   req.StageType,
			Options:     req.Options,
			ParentJobID: req.ParentJobID,
		})
		if err != nil {
			return err
		}
		jobID = job.ID

		return d.queue.Publish(ctx, &queue.Message{
			MessageID: uuid.NewString(),
			Type:      req.StageType,
			JobID:     job.ID,
			DatasetID: req.DatasetID,
			VersionID: req.VersionID,
			ProjectID: req.ProjectID,
			UserID:    req.UserID,
			Options:   req.Options,
		})
	})
	if err != nil {
		return -1, err
	}

	log.Info("job dispatched",
		"job_id", jobID,
		"stage_type", req.StageType,
		"dataset_id", req.DatasetID,
		"version_id", req.VersionID,
	)

	return jobID, nil
}

type IngestRequest struct {
	ProjectID    int64  `json:"project_id"`
	UserID       int64  `json:"user_id"`
	DatasetID    int64  `json:"dataset_id"`
	TargetColumn string `json:"target_column"`
	Data         []byte `json:"-"`
}

// Ingest stores raw dataset bytes as version 0 of a dataset and binds
// the caller to it, the root of every lineage chain.
func (d *Dispatcher) Ingest(ctx context.Context, req *IngestRequest) (*models.DatasetVersion, error) {
	var ver *models.DatasetVersion

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		max, err := versionsvc.Service(ctx).WithDatabase(tx).MaxVersion(req.DatasetID)
		if err != nil {
			return err
		}
		if max >= 0 {
			return ErrAlreadyIngested
		}

		location, err := d.storage.Put(ctx, req.DatasetID, 0, req.Data)
		if err != nil {
			return err
		}

		ver, err = versionsvc.Service(ctx).WithDatabase(tx).Create(&versionsvc.CreateRequest{
			DatasetID:       req.DatasetID,
			ParentVersionID: -1,
			Location:        location,
			CreatingJobID:   -1,
		})
		if err != nil {
			return err
		}

		_, err = bindingsvc.Service(ctx).WithDatabase(tx).Bind(&bindingsvc.BindRequest{
			ProjectID:    req.ProjectID,
			UserID:       req.UserID,
			DatasetID:    req.DatasetID,
			VersionID:    ver.VersionID,
			TargetColumn: req.TargetColumn,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("dataset ingested",
		"dataset_id", req.DatasetID,
		"version_id", ver.VersionID,
		"project_id", req.ProjectID,
		"user_id", req.UserID,
	)

	return ver, nil
}
