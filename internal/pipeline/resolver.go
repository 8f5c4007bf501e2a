// Package pipeline reconstructs the ordered sequence of transform
// artifacts that produced a trained model's input, by walking the
// dataset version chain backward from the model's training job.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	bindingsvc "github.com/paceml-cloud/paceml/api/rest/service/binding"
	jobsvc "github.com/paceml-cloud/paceml/api/rest/service/job"
	modelhubsvc "github.com/paceml-cloud/paceml/api/rest/service/modelhub"
	versionsvc "github.com/paceml-cloud/paceml/api/rest/service/version"
	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/internal/storage"
	"github.com/paceml-cloud/paceml/pkg/log"
)

// ErrBrokenLineage indicates an ancestor version or its producing job
// could not be found. Resolution is all-or-nothing: replaying a
// pipeline with a silently missing transform would feed the model
// shapes it was never trained on.
var ErrBrokenLineage = errors.New("broken lineage")

// Step is one replayable transform in a resolved pipeline. Steps are
// ordered oldest to newest; applying them in ascending Seq order maps
// raw input into the feature space the model was trained on.
type Step struct {
	Seq          int              `json:"seq"`
	Stage        models.StageType `json:"stage"`
	DatasetID    int64            `json:"dataset_id"`
	VersionID    int64            `json:"version_id"`
	ArtifactName string           `json:"artifact_name"`
	Location     string           `json:"location"`
}

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve walks the lineage backward from the version a model was
// trained on to the raw root, collecting the artifacts of every
// replay-relevant stage. Augmentation and AutoML stages alter the
// training set or search, not the feature space of a single row, and
// are skipped.
func (r *Resolver) Resolve(ctx context.Context, modelID, modelVersionID int64) ([]Step, error) {
	var (
		bindings = bindingsvc.Service(ctx).WithDatabase(r.db)
		jobs     = jobsvc.Service(ctx).WithDatabase(r.db)
		versions = versionsvc.Service(ctx).WithDatabase(r.db)
		hub      = modelhubsvc.Service(ctx).WithDatabase(r.db)
	)

	jobID, err := hub.TrainingJob(modelID, modelVersionID)
	if err != nil {
		return nil, err
	}

	trainingJob, err := jobs.Get(jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: training job %d: %v", ErrBrokenLineage, jobID, err)
	}

	origin, err := bindings.Get(trainingJob.BindingID)
	if err != nil {
		return nil, fmt.Errorf("%w: binding %d: %v", ErrBrokenLineage, trainingJob.BindingID, err)
	}

	var (
		datasetID = origin.DatasetID
		versionID = origin.VersionID
		steps     []Step
	)

	log.Debug("resolving pipeline",
		"model_id", modelID,
		"model_version_id", modelVersionID,
		"dataset_id", datasetID,
		"version_id", versionID,
	)

	for versionID > 0 {
		ver, err := versions.Get(datasetID, versionID)
		if err != nil {
			return nil, fmt.Errorf("%w: version %d/%d: %v",
				ErrBrokenLineage, datasetID, versionID, err)
		}

		parent := ver.ParentVersionID

		// the job that consumed the parent version produced this one;
		// its binding may long since have been superseded
		prevBinding, err := bindings.FindForVersion(
			origin.ProjectID, origin.UserID, datasetID, parent,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: no binding for version %d/%d: %v",
				ErrBrokenLineage, datasetID, parent, err)
		}

		producing, err := completedJob(jobs, prevBinding.ID, ver.CreatingJobID)
		if err != nil {
			return nil, fmt.Errorf("%w: no completed job for version %d/%d: %v",
				ErrBrokenLineage, datasetID, versionID, err)
		}

		if producing.StageType.ReplayedAtInference() {
			// prepend: the walk runs newest to oldest, the pipeline
			// replays oldest to newest
			steps = append([]Step{{
				Stage:        producing.StageType,
				DatasetID:    datasetID,
				VersionID:    versionID,
				ArtifactName: producing.StageType.ArtifactName(),
				Location: storage.ArtifactKey(
					datasetID, versionID, producing.StageType.ArtifactName(),
				),
			}}, steps...)
		}

		versionID = parent
	}

	for i := range steps {
		steps[i].Seq = i + 1
	}

	return steps, nil
}

// completedJob returns the Complete job attached to a binding that
// produced the given version. The creating job id recorded on the
// version disambiguates when one binding carries several jobs
// (re-processing from the same version); a completed job that is not
// the recorded creator is never an acceptable substitute, since it
// may be a different transform entirely.
func completedJob(jobs jobsvc.Job, bindingID, creatingJobID int64) (*models.JobDetail, error) {
	complete := models.StatusComplete

	candidates, err := jobs.List(&jobsvc.ListRequest{
		BindingIDs: []int64{bindingID},
		Status:     &complete,
	})
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if candidate.ID == creatingJobID {
			return candidate, nil
		}
	}

	return nil, fmt.Errorf("creating job %d is not among the binding's completed jobs", creatingJobID)
}
