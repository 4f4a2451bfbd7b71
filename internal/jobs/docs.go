// Package jobs provides scheduled background tasks for the dispatch engine.
//
// Jobs are cron-based (github.com/robfig/cron/v3, seconds-resolution schedules).
//
// # Available Jobs
//
// 1. PresenceSweepJob - Every 30 seconds by default, takes partners offline whose last
// location report or duty change is older than the presence timeout. An order in progress
// is never touched; the partner picks it up again on reconnect.
//
// # Usage
//
//	sweep := jobs.NewPresenceSweepJob(registry, presenceHandler, 2*time.Minute, "", cronMetrics, logger)
//	jobManager := jobs.NewJobManager(sweep)
//
//	if err := jobManager.StartAll(); err != nil {
//		return err
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - A partner that fails to go offline is logged and retried on the next run
// - Failed job starts stop the jobs already running
package jobs
