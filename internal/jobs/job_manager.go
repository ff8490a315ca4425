package jobs

import (
	"fmt"
	"log/slog"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	statusQueryJob    *StatusQueryJob
	pendingMonitorJob *PendingMonitorJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	querier StatusQuerier,
	statusSchedule string,
	pending PendingCounter,
	pendingThreshold int,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		statusQueryJob:    NewStatusQueryJob(querier, statusSchedule, logger),
		pendingMonitorJob: NewPendingMonitorJob(pending, pendingThreshold, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.pendingMonitorJob.Start(); err != nil {
		return fmt.Errorf("failed to start pending monitor job: %w", err)
	}

	if err := jm.statusQueryJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.pendingMonitorJob.Stop()
		return fmt.Errorf("failed to start status query job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs and waits for running sweeps to finish.
func (jm *JobManager) StopAll() {
	jm.statusQueryJob.Stop()
	jm.pendingMonitorJob.Stop()
}
