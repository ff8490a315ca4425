package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

const (
	DefaultPendingMonitorSchedule = "@every 10s"
	DefaultPendingThreshold       = 100
)

// PendingCounter reports the number of unacknowledged commands.
type PendingCounter interface {
	Pending() int
}

// PendingMonitorJob warns when unacknowledged commands pile up, which usually
// means a peer stopped acknowledging.
type PendingMonitorJob struct {
	counter   PendingCounter
	threshold int
	cron      *cron.Cron
	logger    *slog.Logger
}

func NewPendingMonitorJob(counter PendingCounter, threshold int, logger *slog.Logger) *PendingMonitorJob {
	if threshold <= 0 {
		threshold = DefaultPendingThreshold
	}
	return &PendingMonitorJob{
		counter:   counter,
		threshold: threshold,
		cron:      cron.New(cron.WithSeconds()),
		logger:    logger.With("component", "pending_monitor_job"),
	}
}

func (j *PendingMonitorJob) Start() error {
	_, err := j.cron.AddFunc(DefaultPendingMonitorSchedule, func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Pending monitor job started", "threshold", j.threshold)
	return nil
}

// Run checks the pending count once and reports whether it reached the threshold.
func (j *PendingMonitorJob) Run(ctx context.Context) bool {
	pending := j.counter.Pending()
	if pending < j.threshold {
		return false
	}

	j.logger.WarnContext(ctx, "Unacknowledged commands piling up", "pending", pending, "threshold", j.threshold)
	return true
}

func (j *PendingMonitorJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Pending monitor job stopped")
}
