package job

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/job"
)

// Get returns a single job, including its lifecycle status and
// timestamps.
func Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	j, err := job.Service(c.Request().Context()).Get(id)
	switch {
	case errors.Is(err, job.ErrNotFound):
		return echo.ErrNotFound
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, j)
}
