package job

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/job"
	"github.com/paceml-cloud/paceml/pkg/log"
)

// Delete soft-deletes a job. The row survives for lineage resolution.
func Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	log.Info("deleting job", "job_id", id)

	err = job.Service(c.Request().Context()).Delete(id)
	switch {
	case errors.Is(err, job.ErrNotFound):
		return echo.ErrNotFound
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.NoContent(http.StatusNoContent)
}
