package dataset

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/version"
)

// List returns every live version of a dataset.
func List(c echo.Context) error {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	versions, err := version.Service(c.Request().Context()).
		List(&version.ListRequest{DatasetID: datasetID})
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, versions)
}
