package job

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/service/job"
	"github.com/paceml-cloud/paceml/internal/models"
)

// List returns jobs filtered by dataset, version, project, user or
// status query parameters.
func List(c echo.Context) error {
	req, err := parseListRequest(c)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	jobs, err := job.Service(c.Request().Context()).List(req)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, jobs)
}

func parseListRequest(c echo.Context) (*job.ListRequest, error) {
	req := &job.ListRequest{}

	for param, target := range map[string]**int64{
		"dataset_id": &req.DatasetID,
		"version_id": &req.VersionID,
		"project_id": &req.ProjectID,
		"user_id":    &req.UserID,
	} {
		if raw := c.QueryParam(param); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, err
			}
			*target = &v
		}
	}

	if raw := c.QueryParam("status"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		status := models.Status(v)
		req.Status = &status
	}

	return req, nil
}
