package dispatch

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	bindingsvc "github.com/paceml-cloud/paceml/api/rest/service/binding"
	jobsvc "github.com/paceml-cloud/paceml/api/rest/service/job"
	versionsvc "github.com/paceml-cloud/paceml/api/rest/service/version"
	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/internal/queue"
	"github.com/paceml-cloud/paceml/internal/stage"
	"github.com/paceml-cloud/paceml/internal/storage"
	"github.com/paceml-cloud/paceml/internal/worker"
	"github.com/paceml-cloud/paceml/pkg/log"
)

// Consumer pulls job messages off the queue, runs the stage, and
// applies the outcome. Version creation, current-binding rebind and
// the Complete transition commit in one transaction; on any failure
// the job goes to Error and the binding stays on the last good
// version. Messages are always acknowledged after a terminal
// transition; failed jobs are not retried by redelivery.
type Consumer struct {
	db       *gorm.DB
	queue    queue.Queue
	storage  storage.Store
	registry *stage.Registry
	pool     *worker.Pool
	locks    *worker.KeyLock
}

func NewConsumer(db *gorm.DB, q queue.Queue, store storage.Store, registry *stage.Registry, concurrency int) (*Consumer, error) {
	if err := registry.Complete(); err != nil {
		return nil, err
	}

	return &Consumer{
		db:       db,
		queue:    q,
		storage:  store,
		registry: registry,
		pool:     worker.NewPool(concurrency),
		locks:    worker.NewKeyLock(),
	}, nil
}

// Run consumes until the context is cancelled, then drains in-flight
// jobs.
func (c *Consumer) Run(ctx context.Context) error {
	if recoverer, ok := c.queue.(queue.Recoverer); ok {
		moved, err := recoverer.Recover(ctx)
		if err != nil {
			return err
		}
		if moved > 0 {
			log.Warn("requeued in-flight deliveries", "count", moved)
		}
	}

	for {
		delivery, err := c.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.pool.Wait()
				return nil
			}
			log.Error("queue receive failure", "error", err)
			continue
		}

		if err := c.pool.Submit(ctx, func() { c.handle(ctx, delivery) }); err != nil {
			c.pool.Wait()
			return nil
		}
	}
}

// Handle processes one delivery synchronously. Exposed for tests and
// single-shot processing.
func (c *Consumer) Handle(ctx context.Context, delivery *queue.Delivery) {
	c.handle(ctx, delivery)
}

func (c *Consumer) handle(ctx context.Context, delivery *queue.Delivery) {
	msg := delivery.Message

	// one lineage extension per dataset at a time
	c.locks.Lock(msg.DatasetID)
	defer c.locks.Unlock(msg.DatasetID)

	jobs := jobsvc.Service(ctx).WithDatabase(c.db)

	if _, err := jobs.Transition(msg.JobID, models.StatusRunning, msg.Options); err != nil {
		// a duplicate delivery of a job already past NotStarted, or a
		// message whose creating transaction never committed; neither
		// is actionable, so acknowledge and move on
		switch {
		case errors.Is(err, jobsvc.ErrIllegalTransition):
			log.Warn("skipping redelivered job", "job_id", msg.JobID)
		case errors.Is(err, jobsvc.ErrNotFound):
			log.Warn("skipping message for unknown job", "job_id", msg.JobID)
		default:
			log.Error("failed to start job",
				"job_id", msg.JobID, "error", err)
		}
		c.ack(ctx, delivery)
		return
	}

	log.Info("job running",
		"job_id", msg.JobID,
		"stage_type", msg.Type,
		"dataset_id", msg.DatasetID,
		"version_id", msg.VersionID,
	)

	if err := c.execute(ctx, msg); err != nil {
		log.Error("job failed",
			"job_id", msg.JobID,
			"stage_type", msg.Type,
			"dataset_id", msg.DatasetID,
			"version_id", msg.VersionID,
			"error", err,
		)

		if _, terr := jobs.Transition(msg.JobID, models.StatusError, nil); terr != nil {
			log.Error("failed to mark job errored", "job_id", msg.JobID, "error", terr)
		}
	}

	c.ack(ctx, delivery)
}

func (c *Consumer) execute(ctx context.Context, msg *queue.Message) error {
	executor, err := c.registry.Lookup(msg.Type)
	if err != nil {
		return err
	}

	data, err := c.storage.Get(ctx, msg.DatasetID, msg.VersionID)
	if err != nil {
		return err
	}

	result, err := executor.Run(ctx, data, msg.Options)
	if err != nil {
		return err
	}

	if msg.Type.ExtendsLineage() {
		return c.completeLineage(ctx, msg, result)
	}

	return c.completeInPlace(ctx, msg, result)
}

// completeLineage applies a successful transform stage: new version,
// blob, artifact, rebind and Complete as one unit of work. A crash
// between any two of these rolls all of them back, so a version never
// exists without its binding once the job shows Complete.
func (c *Consumer) completeLineage(ctx context.Context, msg *queue.Message, result *stage.Result) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		binding, err := bindingsvc.Service(ctx).WithDatabase(tx).
			FindForVersion(msg.ProjectID, msg.UserID, msg.DatasetID, msg.VersionID)
		if err != nil {
			return err
		}

		versions := versionsvc.Service(ctx).WithDatabase(tx)

		max, err := versions.MaxVersion(msg.DatasetID)
		if err != nil {
			return err
		}
		next := max + 1

		location, err := c.storage.Put(ctx, msg.DatasetID, next, result.Data)
		if err != nil {
			return err
		}

		ver, err := versions.Create(&versionsvc.CreateRequest{
			DatasetID:       msg.DatasetID,
			ParentVersionID: msg.VersionID,
			Location:        location,
			CreatingJobID:   msg.JobID,
		})
		if err != nil {
			return err
		}
		if ver.VersionID != next {
			return versionsvc.ErrVersionConflict
		}

		if result.Artifact != nil {
			_, err = c.storage.PutArtifact(
				ctx, msg.DatasetID, ver.VersionID,
				msg.Type.ArtifactName(), result.Artifact,
			)
			if err != nil {
				return err
			}
		}

		_, err = bindingsvc.Service(ctx).WithDatabase(tx).Bind(&bindingsvc.BindRequest{
			ProjectID:    msg.ProjectID,
			UserID:       msg.UserID,
			DatasetID:    msg.DatasetID,
			VersionID:    ver.VersionID,
			TargetColumn: binding.TargetColumn,
		})
		if err != nil {
			return err
		}

		if _, err = jobsvc.Service(ctx).WithDatabase(tx).
			Transition(msg.JobID, models.StatusComplete, nil); err != nil {
			return err
		}

		log.Info("job complete",
			"job_id", msg.JobID,
			"stage_type", msg.Type,
			"dataset_id", msg.DatasetID,
			"version_id", ver.VersionID,
		)

		return nil
	})
}

// completeInPlace finishes stages that do not extend the lineage:
// AutoML keeps its leaderboard artifact against the input version and
// profiling annotates the input version; neither touches the binding.
func (c *Consumer) completeInPlace(ctx context.Context, msg *queue.Message, result *stage.Result) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result.Artifact != nil {
			_, err := c.storage.PutArtifact(
				ctx, msg.DatasetID, msg.VersionID,
				msg.Type.ArtifactName(), result.Artifact,
			)
			if err != nil {
				return err
			}
		}

		if msg.Type == models.StageProfile {
			err := versionsvc.Service(ctx).WithDatabase(tx).
				SetProfiling(msg.DatasetID, msg.VersionID, msg.JobID)
			if err != nil {
				return err
			}
		}

		if _, err := jobsvc.Service(ctx).WithDatabase(tx).
			Transition(msg.JobID, models.StatusComplete, nil); err != nil {
			return err
		}

		log.Info("job complete",
			"job_id", msg.JobID,
			"stage_type", msg.Type,
			"dataset_id", msg.DatasetID,
			"version_id", msg.VersionID,
		)

		return nil
	})
}

func (c *Consumer) ack(ctx context.Context, delivery *queue.Delivery) {
	ackCtx := ctx
	if ctx.Err() != nil {
		// still acknowledge during shutdown
		var cancel context.CancelFunc
		ackCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	if err := c.queue.Ack(ackCtx, delivery); err != nil {
		log.Error("failed to acknowledge delivery",
			"job_id", delivery.Message.JobID, "error", err)
	}
}
