// Package worker runs the daily refresh on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/go-remind/internal/config"
)

// Job is the unit of work run on every tick.
type Job func(ctx context.Context) error

// Worker triggers a Job on a cron spec. Runs never overlap: a tick that
// arrives while the previous run is still going is skipped.
type Worker struct {
	cron *cron.Cron
	spec string
	job  Job
	log  *slog.Logger
}

// New validates spec (standard 5-field syntax) and prepares the worker.
// Times are interpreted in loc.
func New(spec string, loc *time.Location, job Job) (*Worker, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCronSpec, err)
	}

	log := slog.With(config.LogKeyComponent, config.CompWorker)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	w := &Worker{cron: c, spec: spec, job: job, log: log}

	if _, err := c.AddFunc(spec, w.tick); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCronSpec, err)
	}
	return w, nil
}

// Start begins scheduling in the background.
func (w *Worker) Start() {
	w.cron.Start()
	w.log.Info(config.MsgWorkerStart,
		config.LogKeySpec, w.spec,
		config.LogKeyNext, w.Next(),
	)
}

// Stop prevents further runs and waits for a running job to finish, or for
// ctx to expire.
func (w *Worker) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	w.log.Info(config.MsgWorkerStop)
}

// Next reports the next scheduled run.
func (w *Worker) Next() time.Time {
	entries := w.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow executes the job synchronously, outside the schedule.
func (w *Worker) RunNow(ctx context.Context) error {
	return w.run(ctx)
}

func (w *Worker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), config.RefreshTimeout)
	defer cancel()
	if err := w.run(ctx); err != nil {
		w.log.Error(config.ErrRefreshFailed, config.LogKeyError, err)
	}
}

func (w *Worker) run(ctx context.Context) error {
	start := time.Now()
	w.log.Debug(config.MsgRefreshRun)
	if err := w.job(ctx); err != nil {
		return err
	}
	w.log.Info(config.MsgRefreshDone, config.LogKeyDuration, time.Since(start).Milliseconds())
	return nil
}
