package api

import (
	"context"
	"fmt"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"

	"github.com/paceml-cloud/paceml/api/rest/bind"
	"github.com/paceml-cloud/paceml/pkg/env"
)

var server *echo.Echo

// Start launches the REST API and blocks until it exits.
func Start() error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// health
	e.GET("/health", Health)

	// metrics
	prometheus.NewPrometheus("paceml", nil).Use(e)

	// REST
	bind.All(e.Group("/v1"))

	server = e

	return e.Start(fmt.Sprintf(":%v", env.Variables().Port))
}

// Shutdown gracefully stops the REST API.
func Shutdown(ctx context.Context) error {
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
