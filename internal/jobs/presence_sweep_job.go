package jobs

import (
	"context"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/logging"
	"dispatch/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const presenceSweepJobName = "presence_sweep"

// DefaultPresenceSweepSchedule runs the sweep every 30 seconds.
const DefaultPresenceSweepSchedule = "*/30 * * * * *"

// StalePartners lists online partners not seen since a cutoff.
type StalePartners interface {
	Stale(cutoff time.Time) []ports.Presence
}

// PresenceHandler takes a partner offline.
type PresenceHandler interface {
	Handle(ctx context.Context, command commands.PartnerPresenceCommand) (ports.Presence, error)
}

// PresenceSweepJob marks partners offline when they have been silent longer than the
// timeout, even if their connection never closed cleanly.
type PresenceSweepJob struct {
	registry StalePartners
	handler  PresenceHandler
	timeout  time.Duration
	schedule string
	cron     *cron.Cron
	metrics  *metrics.CronJobMetrics
	logger   zerolog.Logger
}

// NewPresenceSweepJob creates the job. An empty schedule selects DefaultPresenceSweepSchedule.
func NewPresenceSweepJob(
	registry StalePartners,
	handler PresenceHandler,
	timeout time.Duration,
	schedule string,
	cronMetrics *metrics.CronJobMetrics,
	logger zerolog.Logger,
) *PresenceSweepJob {
	if schedule == "" {
		schedule = DefaultPresenceSweepSchedule
	}
	return &PresenceSweepJob{
		registry: registry,
		handler:  handler,
		timeout:  timeout,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
		metrics:  cronMetrics,
		logger:   logging.Component(logger, "presence_sweep_job"),
	}
}

// Start schedules the sweep.
func (j *PresenceSweepJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.Sweep(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info().Str("schedule", j.schedule).Dur("timeout", j.timeout).Msg("presence sweep job started")
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish.
func (j *PresenceSweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("presence sweep job stopped")
}

// Sweep takes every stale partner offline and returns how many were swept. The handle
// observed in the registry is passed along, so a partner that reconnected in between
// keeps its new connection.
func (j *PresenceSweepJob) Sweep(ctx context.Context) int {
	started := time.Now()
	defer func() {
		j.metrics.ObserveDuration(presenceSweepJobName, time.Since(started))
	}()

	swept, failed := 0, 0
	for _, presence := range j.registry.Stale(started.Add(-j.timeout)) {
		command, err := commands.NewPartnerPresenceCommand(presence.PartnerID, presence.Handle, false)
		if err == nil {
			_, err = j.handler.Handle(ctx, command)
		}
		if err != nil {
			failed++
			j.logger.Error().Err(err).Str("partner", presence.PartnerID.String()).Msg("sweep partner offline")
			continue
		}
		swept++
	}

	if failed > 0 {
		j.metrics.IncFailure(presenceSweepJobName)
	} else {
		j.metrics.IncSuccess(presenceSweepJobName)
	}
	if swept > 0 {
		j.logger.Info().Int("swept", swept).Msg("stale partners marked offline")
	}
	return swept
}
