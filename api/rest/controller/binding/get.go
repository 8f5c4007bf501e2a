package binding

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/binding"
)

// Current returns the dataset version a project and user pair is
// currently bound to.
func Current(c echo.Context) error {
	projectID, err := strconv.ParseInt(c.QueryParam("project_id"), 10, 64)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}
	userID, err := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	bind, err := binding.Service(c.Request().Context()).Current(projectID, userID)
	switch {
	case errors.Is(err, binding.ErrNotFound):
		return echo.ErrNotFound
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, bind)
}
