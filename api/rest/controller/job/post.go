package job

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/binding"
	"github.com/paceml-cloud/paceml/internal/dispatch"
	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/pkg/log"
)

type PostResponse struct {
	JobID  int64         `json:"job_id"`
	Status models.Status `json:"status"`
}

// Post submits a stage run against a dataset version the caller is
// bound to. The job is durably recorded and enqueued before the
// response is written; execution is asynchronous.
func Post(c echo.Context) error {
	req := &dispatch.SubmitRequest{}
	if err := c.Bind(req); err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	if _, err := models.ParseStageType(string(req.StageType)); err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	log.Info(
		"submitting job",
		"stage_type", req.StageType,
		"dataset_id", req.DatasetID,
		"version_id", req.VersionID,
	)

	jobID, err := dispatch.Default().Submit(c.Request().Context(), req)
	switch {
	case errors.Is(err, binding.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "caller is not bound to this dataset version")
	case err != nil:
		log.Error("job submission failure", "error", err)
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusAccepted, &PostResponse{
		JobID:  jobID,
		Status: models.StatusNotStarted,
	})
}
