package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentloop-backend/internal/config"
	"rentloop-backend/internal/jobs"
	"rentloop-backend/internal/repository/memory"
)

func TestNewScheduler(t *testing.T) {
	store := memory.NewStore()

	t.Run("RegistersJobs", func(t *testing.T) {
		cfg := &config.Config{Scheduler: config.SchedulerConfig{
			ReconcileAvailability: "0 */15 * * * *",
			HealthCheck:           "*/30 * * * * *",
		}}
		s, err := NewScheduler(jobs.NewJobRunner(store.ItemRepository, nil, cfg))
		require.NoError(t, err)
		assert.Equal(t, 2, s.Entries())
		s.Start()
		s.Stop()
	})

	t.Run("RejectsBadSpec", func(t *testing.T) {
		cfg := &config.Config{Scheduler: config.SchedulerConfig{
			ReconcileAvailability: "every fifteen minutes",
			HealthCheck:           "*/30 * * * * *",
		}}
		_, err := NewScheduler(jobs.NewJobRunner(store.ItemRepository, nil, cfg))
		assert.Error(t, err)
	})
}
