package dataset

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/version"
)

// Get returns a single dataset version.
func Get(c echo.Context) error {
	datasetID, versionID, err := pathIDs(c)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	ver, err := version.Service(c.Request().Context()).Get(datasetID, versionID)
	switch {
	case errors.Is(err, version.ErrNotFound):
		return echo.ErrNotFound
	case err != nil:
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, ver)
}

func pathIDs(c echo.Context) (datasetID, versionID int64, err error) {
	if datasetID, err = strconv.ParseInt(c.Param("id"), 10, 64); err != nil {
		return
	}
	versionID, err = strconv.ParseInt(c.Param("version"), 10, 64)
	return
}
