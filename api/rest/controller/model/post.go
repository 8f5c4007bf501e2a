package model

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/job"
	"github.com/paceml-cloud/paceml/api/rest/service/modelhub"
	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/pkg/log"
)

// Post registers a trained model version against the job that trained
// it. The job link is what makes the model's pipeline resolvable
// later; registration against an unfinished job is rejected.
func Post(c echo.Context) error {
	req := &modelhub.RegisterRequest{}
	if err := c.Bind(req); err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	ctx := c.Request().Context()

	trainingJob, err := job.Service(ctx).Get(req.JobID)
	switch {
	case errors.Is(err, job.ErrNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, "training job does not exist")
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	}
	if trainingJob.Status != models.StatusComplete {
		return echo.NewHTTPError(http.StatusConflict, "training job is not complete")
	}

	log.Info(
		"registering model version",
		"model_id", req.ModelID,
		"version_id", req.VersionID,
		"job_id", req.JobID,
	)

	mv, err := modelhub.Service(ctx).Register(req)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusCreated, mv)
}
