// Package sweep force-fails jobs stuck in Running. A worker that dies
// between Running and a terminal transition leaves its job running
// forever; the sweeper periodically lists Running jobs that started
// before a deadline and moves them to Error.
package sweep

import (
	"context"
	"time"

	"github.com/robfig/cron"
	"gorm.io/gorm"

	jobsvc "github.com/paceml-cloud/paceml/api/rest/service/job"
	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/pkg/log"
)

type Sweeper struct {
	db       *gorm.DB
	deadline time.Duration
}

func NewSweeper(db *gorm.DB, deadline time.Duration) *Sweeper {
	if deadline <= 0 {
		deadline = 2 * time.Hour
	}
	return &Sweeper{db: db, deadline: deadline}
}

// Sweep fails every job that entered Running before now-deadline and
// returns how many were failed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	var (
		jobs    = jobsvc.Service(ctx).WithDatabase(s.db)
		running = models.StatusRunning
		cutoff  = time.Now().UTC().Add(-s.deadline)
	)

	stuck, err := jobs.List(&jobsvc.ListRequest{
		Status:        &running,
		StartedBefore: &cutoff,
	})
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, job := range stuck {
		if _, err := jobs.Transition(job.ID, models.StatusError, nil); err != nil {
			log.Error("failed to sweep stuck job", "job_id", job.ID, "error", err)
			continue
		}

		log.Warn("swept stuck job",
			"job_id", job.ID,
			"stage_type", job.StageType,
			"started_at", job.StartedAt,
		)
		swept++
	}

	return swept, nil
}

// Schedule runs the sweep on a cron schedule until the context is
// cancelled.
func (s *Sweeper) Schedule(ctx context.Context, schedule string) error {
	c := cron.New()

	err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			log.Error("sweep failure", "error", err)
		}
	})
	if err != nil {
		return err
	}

	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}
