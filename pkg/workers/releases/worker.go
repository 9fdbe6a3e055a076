package releasesworker

import (
	"context"
	"log/slog"
	"time"

	"mymediarelease-backend/pkg/clients/subgraph"
	"mymediarelease-backend/pkg/models/db"
)

type publishesDb interface {
	GetAwaitingIndex(ctx context.Context, limit int) ([]db.Publish, error)
	MarkIndexed(ctx context.Context, ids []string) (int64, error)
	MarkChecked(ctx context.Context, ids []string) (int64, error)
	MarkNotIndexed(ctx context.Context, ids []string, reason string) (int64, error)
	RemoveOld(ctx context.Context, olderThan time.Duration) (int64, error)
}

type index interface {
	FetchRelease(ctx context.Context, id string) (*subgraph.Release, error)
}

type dismisser interface {
	Dismiss(id string)
}

type releasesWorker struct {
	publishes       publishesDb
	index           index
	notifications   dismisser
	batchSize       int
	indexTimeout    time.Duration
	historyLifetime time.Duration
	logger          *slog.Logger
}

type Worker interface {
	ReconcileIndexed(ctx context.Context) (interval time.Duration, err error)
	RemoveOldPublishes(ctx context.Context) (interval time.Duration, err error)
}

// ReconcileIndexed checks deployed releases against the index. Once a release
// is visible there its "preparing" notification is dismissed and the publish
// is marked as indexed. Releases still missing after indexTimeout since deploy
// are marked as failed. Every other checked release goes to the back of the
// queue, so a batch of never indexed releases cannot hide newer ones.
func (w *releasesWorker) ReconcileIndexed(ctx context.Context) (interval time.Duration, err error) {
	const (
		failureInterval = 5 * time.Second
		idleInterval    = 30 * time.Second
		busyInterval    = 2 * time.Second
	)

	log := w.logger.With("worker", "ReconcileIndexed")

	interval = failureInterval

	awaiting, err := w.publishes.GetAwaitingIndex(ctx, w.batchSize)
	if err != nil {
		return
	}

	if len(awaiting) == 0 {
		interval = idleInterval
		return
	}

	deadline := time.Now().Add(-w.indexTimeout).Unix()

	indexed := make([]string, 0, len(awaiting))
	var expired, checked []string
	for _, p := range awaiting {
		release, fErr := w.index.FetchRelease(ctx, p.ContractAddress)
		if fErr != nil {
			log.Warn("failed to query index", slog.String("publish_id", p.ID), slog.String("error", fErr.Error()))
		}

		switch {
		case release != nil:
			indexed = append(indexed, p.ID)
		case w.indexTimeout > 0 && p.UpdatedAt < deadline:
			expired = append(expired, p.ID)
		default:
			checked = append(checked, p.ID)
			continue
		}

		if p.NotificationID != "" {
			w.notifications.Dismiss(p.NotificationID)
		}
	}

	if len(indexed) > 0 {
		cnt, mErr := w.publishes.MarkIndexed(ctx, indexed)
		if mErr != nil {
			err = mErr
			return
		}
		log.Info("releases indexed", "count", cnt)
	}

	if len(expired) > 0 {
		reason := "release was not indexed within " + w.indexTimeout.String()
		cnt, mErr := w.publishes.MarkNotIndexed(ctx, expired, reason)
		if mErr != nil {
			err = mErr
			return
		}
		log.Warn("releases never indexed", "count", cnt)
	}

	if len(checked) > 0 {
		if _, mErr := w.publishes.MarkChecked(ctx, checked); mErr != nil {
			err = mErr
			return
		}
	}

	interval = busyInterval
	return
}

func (w *releasesWorker) RemoveOldPublishes(ctx context.Context) (interval time.Duration, err error) {
	const (
		failureInterval = 5 * time.Second
		successInterval = 1 * time.Hour
	)

	log := w.logger.With("worker", "RemoveOldPublishes")

	interval = failureInterval

	removed, err := w.publishes.RemoveOld(ctx, w.historyLifetime)
	if err != nil {
		return
	}

	if removed > 0 {
		log.Info("removed old publishes", "count", removed)
	}

	interval = successInterval
	return
}

func NewWorker(
	publishes publishesDb,
	index index,
	notifications dismisser,
	batchSize int,
	indexTimeout time.Duration,
	historyLifetime time.Duration,
	logger *slog.Logger,
) Worker {
	if batchSize <= 0 {
		batchSize = 50
	}

	return &releasesWorker{
		publishes:       publishes,
		index:           index,
		notifications:   notifications,
		batchSize:       batchSize,
		indexTimeout:    indexTimeout,
		historyLifetime: historyLifetime,
		logger:          logger,
	}
}
