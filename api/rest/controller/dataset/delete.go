package dataset

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/binding"
	"github.com/paceml-cloud/paceml/api/rest/service/version"
	"github.com/paceml-cloud/paceml/pkg/log"
)

// Delete tombstones a dataset version. Version rows are never erased;
// lineage resolution must be able to detect a deleted ancestor. When
// project_id and user_id are supplied and their current binding points
// at the deleted version, the binding's current flag is cleared so no
// dangling current pointer survives.
func Delete(c echo.Context) error {
	datasetID, versionID, err := pathIDs(c)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	log.Info("deleting dataset version",
		"dataset_id", datasetID,
		"version_id", versionID,
	)

	ctx := c.Request().Context()

	if err := version.Service(ctx).Delete(datasetID, &versionID); err != nil {
		if errors.Is(err, version.ErrNotFound) {
			return echo.ErrNotFound
		}
		return echo.ErrInternalServerError.SetInternal(err)
	}

	if err := unbindCurrent(c, datasetID, versionID); err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func unbindCurrent(c echo.Context, datasetID, versionID int64) error {
	rawProject, rawUser := c.QueryParam("project_id"), c.QueryParam("user_id")
	if rawProject == "" || rawUser == "" {
		return nil
	}

	projectID, err := strconv.ParseInt(rawProject, 10, 64)
	if err != nil {
		return err
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		return err
	}

	svc := binding.Service(c.Request().Context())

	current, err := svc.Current(projectID, userID)
	switch {
	case errors.Is(err, binding.ErrNotFound):
		return nil
	case err != nil:
		return err
	}

	if current.DatasetID != datasetID || current.VersionID != versionID {
		return nil
	}

	log.Info("clearing current binding for deleted version",
		"binding_id", current.ID,
		"dataset_id", datasetID,
		"version_id", versionID,
	)

	return svc.MarkNotCurrent(current.ID)
}
