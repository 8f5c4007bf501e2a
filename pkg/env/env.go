package env

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/paceml-cloud/paceml/pkg/log"
	"github.com/pkg/errors"
)

var variables = new(Environment)

// Process the environment variables set for paceml.
func Process() error {
	if err := envconfig.Process("paceml", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevelFromString(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used
// by paceml.
type Environment struct {
	LogLevel     string `default:"info"`
	Port         int    `default:"8080"`
	NodeID       string `default:""` // defaults to the hostname
	DatabaseType string `default:"postgres"`
	DatabaseDSN  string `default:"host=postgres user=postgres password=postgres dbname=paceml port=5432 sslmode=disable"`

	QueueType       string `default:"redis"`
	QueueName       string `default:"paceml_jobs"`
	RedisAddr       string `default:"localhost:6379"`
	RedisPassword   string `default:""`
	RedisDB         int    `default:"0"`
	StorageType     string `default:"minio"`
	StorageEndpoint string `default:"localhost:9000"`
	StorageBucket   string `default:"paceml"`
	StorageAccess   string `default:""`
	StorageSecret   string `default:""`
	StorageSecure   bool   `default:"false"`

	TransformURL string `default:"http://localhost:9090"`

	WorkerCount    int           `default:"4"`
	ReceiveTimeout time.Duration `default:"5s"`

	SweepSchedule string        `default:"@every 5m"`
	JobDeadline   time.Duration `default:"2h"`
}
