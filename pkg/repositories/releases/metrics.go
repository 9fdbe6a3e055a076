package releases

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mymediarelease-backend/pkg/models/db"
)

type metricsMiddleware struct {
	reqCount    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	repo        Repository
}

func (m *metricsMiddleware) observe(method string, s time.Time, err error) {
	labels := []string{
		method, strconv.FormatBool(err != nil),
	}
	m.reqCount.WithLabelValues(labels...).Add(1)
	m.reqDuration.WithLabelValues(labels...).Observe(time.Since(s).Seconds())
}

func (m *metricsMiddleware) CreatePublish(ctx context.Context, p db.Publish) (err error) {
	defer func(s time.Time) { m.observe("CreatePublish", s, err) }(time.Now())
	return m.repo.CreatePublish(ctx, p)
}

func (m *metricsMiddleware) MarkSubmitted(ctx context.Context, id, metadataURL, txHash string) (err error) {
	defer func(s time.Time) { m.observe("MarkSubmitted", s, err) }(time.Now())
	return m.repo.MarkSubmitted(ctx, id, metadataURL, txHash)
}

func (m *metricsMiddleware) MarkDeployed(ctx context.Context, id, contractAddress, notificationID string) (err error) {
	defer func(s time.Time) { m.observe("MarkDeployed", s, err) }(time.Now())
	return m.repo.MarkDeployed(ctx, id, contractAddress, notificationID)
}

func (m *metricsMiddleware) MarkFailed(ctx context.Context, id, reason string) (err error) {
	defer func(s time.Time) { m.observe("MarkFailed", s, err) }(time.Now())
	return m.repo.MarkFailed(ctx, id, reason)
}

func (m *metricsMiddleware) GetPublish(ctx context.Context, id string) (p *db.Publish, err error) {
	defer func(s time.Time) { m.observe("GetPublish", s, err) }(time.Now())
	return m.repo.GetPublish(ctx, id)
}

func (m *metricsMiddleware) GetCreatorPublishes(ctx context.Context, creator string, limit int) (resp []db.Publish, err error) {
	defer func(s time.Time) { m.observe("GetCreatorPublishes", s, err) }(time.Now())
	return m.repo.GetCreatorPublishes(ctx, creator, limit)
}

func (m *metricsMiddleware) GetAwaitingIndex(ctx context.Context, limit int) (resp []db.Publish, err error) {
	defer func(s time.Time) { m.observe("GetAwaitingIndex", s, err) }(time.Now())
	return m.repo.GetAwaitingIndex(ctx, limit)
}

func (m *metricsMiddleware) MarkIndexed(ctx context.Context, ids []string) (cnt int64, err error) {
	defer func(s time.Time) { m.observe("MarkIndexed", s, err) }(time.Now())
	return m.repo.MarkIndexed(ctx, ids)
}

func (m *metricsMiddleware) MarkChecked(ctx context.Context, ids []string) (cnt int64, err error) {
	defer func(s time.Time) { m.observe("MarkChecked", s, err) }(time.Now())
	return m.repo.MarkChecked(ctx, ids)
}

func (m *metricsMiddleware) MarkNotIndexed(ctx context.Context, ids []string, reason string) (cnt int64, err error) {
	defer func(s time.Time) { m.observe("MarkNotIndexed", s, err) }(time.Now())
	return m.repo.MarkNotIndexed(ctx, ids, reason)
}

func (m *metricsMiddleware) RemoveOld(ctx context.Context, olderThan time.Duration) (cnt int64, err error) {
	defer func(s time.Time) { m.observe("RemoveOld", s, err) }(time.Now())
	return m.repo.RemoveOld(ctx, olderThan)
}

func NewMetrics(reqCount *prometheus.CounterVec, reqDuration *prometheus.HistogramVec, repo Repository) Repository {
	return &metricsMiddleware{
		reqCount:    reqCount,
		reqDuration: reqDuration,
		repo:        repo,
	}
}
