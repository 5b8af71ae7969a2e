package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"vibedojo-ledger/logger"
)

type ScheduledJob struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// StartScheduler runs each job on its interval until ctx ends or the scheduler is shut down.
// A job still running when its next tick fires is not started twice.
func StartScheduler(ctx context.Context, log *logger.Logger, jobs ...ScheduledJob) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	for _, job := range jobs {
		job := job
		_, err := sched.NewJob(
			gocron.DurationJob(job.Interval),
			gocron.NewTask(func() {
				if err := job.Run(ctx); err != nil {
					log.Error("[Scheduler] job failed", "job", job.Name, "error", err)
				}
			}),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("schedule %s: %w", job.Name, err)
		}
		log.Info("⏱️ job scheduled", "job", job.Name, "interval", job.Interval.String())
	}

	sched.Start()
	return sched, nil
}
