package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentloop-backend/internal/config"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

// Job names accepted by RunOnce.
const (
	JobReconcileAvailability = "reconcile-availability"
	JobHealthCheck           = "health-check"
	JobAll                   = "all"
)

// HealthChecker refreshes the published health status.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	items   repository.ItemRepository
	health  HealthChecker
	config  *config.Config
	timeout time.Duration
	log     *slog.Logger
}

// NewJobRunner creates a new job runner. health may be nil when no health
// endpoint is served.
func NewJobRunner(items repository.ItemRepository, health HealthChecker, cfg *config.Config) *JobRunner {
	return &JobRunner{
		items:   items,
		health:  health,
		config:  cfg,
		timeout: time.Minute,
		log:     logger.WithComponent("jobs"),
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			jr.log.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	start := time.Now()
	jr.log.Debug("Starting job", "job", jobName)
	if err := jobFunc(ctx); err != nil {
		jr.log.Error("Job failed", "job", jobName, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	jr.log.Debug("Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// RunOnce runs the named job (or all of them) and returns its error.
func (jr *JobRunner) RunOnce(name string) error {
	switch name {
	case JobReconcileAvailability:
		return jr.ReconcileAvailability()
	case JobHealthCheck:
		return jr.CheckHealth()
	case JobAll:
		if err := jr.ReconcileAvailability(); err != nil {
			return err
		}
		return jr.CheckHealth()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}
