package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paceml-cloud/paceml/internal/dispatch"
	"github.com/paceml-cloud/paceml/internal/runtime"
	"github.com/paceml-cloud/paceml/internal/stage/remote"
	"github.com/paceml-cloud/paceml/pkg/db"
	"github.com/paceml-cloud/paceml/pkg/env"
	"github.com/paceml-cloud/paceml/pkg/log"
)

const (
	usage   = "worker"
	short   = "Start a paceml worker instance"
	long    = "This command starts a paceml worker that consumes and executes stage jobs"
	example = "paceml worker"
)

var (
	// Cmd is the worker command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"w"},
		SuggestFor: []string{"consume", "process"},
		Example:    example,
		RunE:       run,
	}
)

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s := <-signalChan
		log.Info("shutting down worker", "signal", s)
		cancel()
	}()

	log.Info("migrating database")
	if err := db.Migrate(db.Connection()); err != nil {
		log.Fatal("database migration failure", "error", err)
	}

	vars := env.Variables()

	q, err := runtime.BuildQueue(vars)
	if err != nil {
		log.Fatal("queue configuration failure", "error", err)
	}

	store, err := runtime.BuildStorage(ctx, vars)
	if err != nil {
		log.Fatal("storage configuration failure", "error", err)
	}

	consumer, err := dispatch.NewConsumer(
		db.Connection(),
		q,
		store,
		remote.Registry(vars.TransformURL),
		vars.WorkerCount,
	)
	if err != nil {
		log.Fatal("consumer configuration failure", "error", err)
	}

	log.Info("launching consumer",
		"node", runtime.NodeID(vars),
		"workers", vars.WorkerCount,
		"queue", vars.QueueName,
		"transform_url", vars.TransformURL,
	)

	return consumer.Run(ctx)
}
