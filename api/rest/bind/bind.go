package bind

import (
	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/controller/binding"
	"github.com/paceml-cloud/paceml/api/rest/controller/dataset"
	"github.com/paceml-cloud/paceml/api/rest/controller/job"
	"github.com/paceml-cloud/paceml/api/rest/controller/model"
)

func All(g *echo.Group) {
	// datasets
	{
		g.POST("/datasets", dataset.Post)
		g.GET("/datasets/:id/versions", dataset.List)
		g.GET("/datasets/:id/versions/:version", dataset.Get)
		g.DELETE("/datasets/:id/versions/:version", dataset.Delete)
	}

	// jobs
	{
		g.GET("/jobs", job.List)
		g.GET("/jobs/:id", job.Get)
		g.POST("/jobs", job.Post)
		g.DELETE("/jobs/:id", job.Delete)
	}

	// bindings
	{
		g.GET("/bindings/current", binding.Current)
	}

	// models
	{
		g.POST("/models", model.Post)
		g.GET("/models/:id/versions/:version/pipeline", model.Pipeline)
	}
}
