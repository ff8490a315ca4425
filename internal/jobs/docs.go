// Package jobs provides scheduled background tasks for the fulfillment coordinator.
//
// Jobs are cron-based, using github.com/robfig/cron/v3 with the seconds field
// enabled, so both six-field expressions and descriptors such as "@every 30s" work.
//
// # Available Jobs
//
// 1. StatusQueryJob - asks World for the status of every in-flight package (default "@every 30s")
// 2. PendingMonitorJob - warns when unacknowledged commands exceed a threshold (every 10 seconds)
//
// # Usage
//
//	jobManager := jobs.NewJobManager(service, "@every 30s", engine, 100, logger)
//	if err := jobManager.StartAll(); err != nil {
//		return err
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - The status sweep skips packages that completed between listing and querying
// - Other query failures are logged and the sweep continues
// - Failed job starts will stop any already running jobs
package jobs
