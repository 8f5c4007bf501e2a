package dataset

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/internal/dispatch"
	"github.com/paceml-cloud/paceml/pkg/log"
)

// Post ingests raw dataset bytes as version 0 of a dataset and binds
// the caller to it. The payload is a multipart upload: a "file" part
// with the data, plus project_id, user_id, dataset_id and an optional
// target_column as form values.
func Post(c echo.Context) error {
	req, err := parsePostRequest(c)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	log.Info(
		"ingesting dataset",
		"dataset_id", req.DatasetID,
		"project_id", req.ProjectID,
		"user_id", req.UserID,
	)

	ver, err := dispatch.Default().Ingest(c.Request().Context(), req)
	switch {
	case errors.Is(err, dispatch.ErrAlreadyIngested):
		return echo.NewHTTPError(http.StatusConflict, "dataset already ingested")
	case err != nil:
		log.Error("dataset ingest failure", "error", err)
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusCreated, ver)
}

func parsePostRequest(c echo.Context) (*dispatch.IngestRequest, error) {
	req := &dispatch.IngestRequest{
		TargetColumn: c.FormValue("target_column"),
	}

	var err error
	if req.ProjectID, err = strconv.ParseInt(c.FormValue("project_id"), 10, 64); err != nil {
		return nil, err
	}
	if req.UserID, err = strconv.ParseInt(c.FormValue("user_id"), 10, 64); err != nil {
		return nil, err
	}
	if req.DatasetID, err = strconv.ParseInt(c.FormValue("dataset_id"), 10, 64); err != nil {
		return nil, err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if req.Data, err = io.ReadAll(f); err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		return nil, errors.New("empty dataset upload")
	}

	return req, nil
}
