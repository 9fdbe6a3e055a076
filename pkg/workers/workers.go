package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	releasesworker "mymediarelease-backend/pkg/workers/releases"
)

// minInterval applies when a job asks to run again immediately.
const minInterval = time.Second

type workerFunc = func(ctx context.Context) (interval time.Duration, err error)

type job struct {
	name string
	run  workerFunc
}

type worker struct {
	jobs   []job
	logger *slog.Logger
}

type Workers interface {
	Start(ctx context.Context) (err error)
}

// Start launches every job in its own loop. Loops stop when ctx is done.
func (w *worker) Start(ctx context.Context) (err error) {
	for _, j := range w.jobs {
		go w.loop(ctx, j)
	}

	return nil
}

func (w *worker) loop(ctx context.Context, j job) {
	logger := w.logger.With(slog.String("run_worker", j.name))

	for {
		if ctx.Err() != nil {
			return
		}

		interval, err := w.runOnce(ctx, j)
		if err != nil {
			logger.Error(err.Error())
		}
		if interval <= 0 {
			interval = minInterval
		}
		logger.Debug("next run scheduled", slog.Duration("in", interval))

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (w *worker) runOnce(ctx context.Context, j job) (interval time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %s panicked: %v", j.name, r)
			interval = 0
		}
	}()

	return j.run(ctx)
}

func NewWorkers(
	releases releasesworker.Worker,
	logger *slog.Logger,
) Workers {
	return &worker{
		jobs: []job{
			{name: "ReconcileIndexed", run: releases.ReconcileIndexed},
			{name: "RemoveOldPublishes", run: releases.RemoveOldPublishes},
		},
		logger: logger,
	}
}
