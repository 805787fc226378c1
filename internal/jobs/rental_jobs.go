package jobs

import "context"

// ReconcileAvailability re-derives item availability from rental state. It
// repairs flags left behind by a crash between commit and a later write, or
// by manual edits to the database.
func (jr *JobRunner) ReconcileAvailability() error {
	return jr.runWithRecovery(JobReconcileAvailability, func(ctx context.Context) error {
		held, released, err := jr.items.ReconcileAvailability(ctx)
		if err != nil {
			return err
		}
		if len(held)+len(released) > 0 {
			jr.log.Warn("Repaired item availability", "held", held, "released", released)
		}
		return nil
	})
}

// CheckHealth refreshes the database health status.
func (jr *JobRunner) CheckHealth() error {
	if jr.health == nil {
		return nil
	}
	return jr.runWithRecovery(JobHealthCheck, jr.health.Check)
}
