package jobs

import (
	"context"
	"errors"
	"log/slog"

	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

// DefaultStatusQuerySchedule is the sweep schedule used when none is configured.
const DefaultStatusQuerySchedule = "@every 30s"

// StatusQuerier lists the packages World holds and asks World for their status.
type StatusQuerier interface {
	InFlight() []*parcel.Package
	QueryStatus(ctx context.Context, packageID int64) error
}

// StatusQueryJob periodically asks World for the status of every in-flight
// package. Answers arrive asynchronously as status reports.
type StatusQueryJob struct {
	querier  StatusQuerier
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewStatusQueryJob(querier StatusQuerier, schedule string, logger *slog.Logger) *StatusQueryJob {
	if schedule == "" {
		schedule = DefaultStatusQuerySchedule
	}
	return &StatusQueryJob{
		querier:  querier,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With("component", "status_query_job"),
	}
}

// Start schedules the sweep.
func (j *StatusQueryJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Status query job started", "schedule", j.schedule)
	return nil
}

// Run queries every in-flight package once and returns how many queries were sent.
func (j *StatusQueryJob) Run(ctx context.Context) int {
	sent := 0
	for _, p := range j.querier.InFlight() {
		if err := j.querier.QueryStatus(ctx, p.ID()); err != nil {
			// The package may have completed between the listing and the query.
			if !errors.Is(err, errs.ErrObjectNotFound) {
				j.logger.ErrorContext(ctx, "Status query failed", "package_id", p.ID(), "error", err)
			}
			continue
		}
		sent++
	}

	if sent > 0 {
		j.logger.DebugContext(ctx, "Status queries sent", "count", sent)
	}
	return sent
}

func (j *StatusQueryJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Status query job stopped")
}
