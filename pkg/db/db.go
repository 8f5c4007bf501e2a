package db

import (
	"sync"

	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/pkg/env"
	"github.com/paceml-cloud/paceml/pkg/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	conn     *gorm.DB
	connOnce sync.Once
)

// Connection returns the shared gorm connection to the database
// configured by the environment, opening it on first use.
func Connection() *gorm.DB {
	connOnce.Do(func() {
		conn = open()
	})
	return conn
}

func open() *gorm.DB {
	var (
		gdb *gorm.DB
		err error
	)

	switch env.Variables().DatabaseType {
	case "sqlite":
		gdb, err = gorm.Open(
			sqlite.Open(env.Variables().DatabaseDSN),
			&gorm.Config{},
		)
	case "postgres":
		fallthrough
	default:
		gdb, err = gorm.Open(
			postgres.Open(env.Variables().DatabaseDSN),
			&gorm.Config{},
		)
	}

	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	return gdb
}

// Migrate creates or updates the schema for every model.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.DatasetVersion{},
		&models.Job{},
		&models.Binding{},
		&models.ModelVersion{},
	)
}
