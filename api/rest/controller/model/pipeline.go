package model

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/modelhub"
	"github.com/paceml-cloud/paceml/internal/pipeline"
	"github.com/paceml-cloud/paceml/pkg/db"
	"github.com/paceml-cloud/paceml/pkg/log"
)

type PipelineResponse struct {
	ModelID   int64           `json:"model_id"`
	VersionID int64           `json:"version_id"`
	Steps     []pipeline.Step `json:"steps"`
}

// Pipeline resolves the ordered transform artifacts an inference
// service must replay before feeding rows to the model. The response
// is all-or-nothing: a lineage with any missing link is an error, not
// a shorter pipeline.
func Pipeline(c echo.Context) error {
	modelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}
	versionID, err := strconv.ParseInt(c.Param("version"), 10, 64)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	steps, err := pipeline.NewResolver(db.Connection()).
		Resolve(c.Request().Context(), modelID, versionID)
	switch {
	case errors.Is(err, modelhub.ErrNotFound):
		return echo.ErrNotFound
	case errors.Is(err, pipeline.ErrBrokenLineage):
		log.Error("pipeline resolution failure",
			"model_id", modelID,
			"version_id", versionID,
			"error", err,
		)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "model lineage is broken")
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	}

	if steps == nil {
		steps = []pipeline.Step{}
	}

	return c.JSON(http.StatusOK, &PipelineResponse{
		ModelID:   modelID,
		VersionID: versionID,
		Steps:     steps,
	})
}
