package start

import (
	"context"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paceml-cloud/paceml/api"
	"github.com/paceml-cloud/paceml/internal/dispatch"
	"github.com/paceml-cloud/paceml/internal/runtime"
	"github.com/paceml-cloud/paceml/internal/sweep"
	"github.com/paceml-cloud/paceml/pkg/db"
	"github.com/paceml-cloud/paceml/pkg/env"
	"github.com/paceml-cloud/paceml/pkg/log"
)

const (
	usage   = "start"
	short   = "Start a paceml API instance"
	long    = "This command starts a paceml API and orchestration instance"
	example = "paceml start"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"launch", "boot", "up", "run", "begin"},
		Example:    example,
		RunE:       start,
	}
)

var cancel context.CancelFunc

func start(cmd *cobra.Command, args []string) error {
	signalChan := make(chan os.Signal, 1)

	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 signal")
				if profile := pprof.Lookup("goroutine"); profile != nil {
					if err := profile.WriteTo(os.Stdout, 1); err != nil {
						log.Error("write goroutine profile", "error", err)
					}
				}
			case syscall.SIGINT:
				log.Info("gracefully shutting down due to SIGINT signal")
				shutdown()
				os.Exit(0)
			}
		}
	}()

	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT)

	var errs = make(chan error)
	ctx, cancelFunc := context.WithCancel(context.Background())
	cancel = cancelFunc

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

	dispatch.SetDefault(dispatch.NewDispatcher(db.Connection(), q, store))

	log.Info("scheduling liveness sweep", "schedule", vars.SweepSchedule)
	sweeper := sweep.NewSweeper(db.Connection(), vars.JobDeadline)
	if err := sweeper.Schedule(ctx, vars.SweepSchedule); err != nil {
		log.Fatal("sweep scheduling failure", "error", err)
	}

	go func() {
		log.Info("spinning up api", "port", vars.Port)
		errs <- api.Start()
	}()

	defer shutdown()

	return <-errs
}

func shutdown() {
	if cancel != nil {
		cancel()
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelFunc()

	if err := api.Shutdown(ctx); err != nil {
		log.Error("api shutdown failure", "error", err)
	}
}
