package releases

import (
	"context"
	"iter"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"

	"mymediarelease-backend/pkg/clients/subgraph"
	"mymediarelease-backend/pkg/metadata"
	"mymediarelease-backend/pkg/models/db"
	"mymediarelease-backend/pkg/session"
)

type metricsMiddleware struct {
	reqCount    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	svc         Releases
}

func (m *metricsMiddleware) observe(method string, s time.Time, err error) {
	labels := []string{
		method, strconv.FormatBool(err != nil),
	}
	m.reqCount.WithLabelValues(labels...).Add(1)
	m.reqDuration.WithLabelValues(labels...).Observe(time.Since(s).Seconds())
}

func (m *metricsMiddleware) Publish(ctx context.Context, sess *session.Session, bundle metadata.AssetBundle, params ContractParams) (res *PublishResult, err error) {
	defer func(s time.Time) { m.observe("Publish", s, err) }(time.Now())
	return m.svc.Publish(ctx, sess, bundle, params)
}

func (m *metricsMiddleware) Invoke(ctx context.Context, sess *session.Session, contract common.Address, method string, args ...any) (receipt *types.Receipt, err error) {
	defer func(s time.Time) { m.observe("Invoke", s, err) }(time.Now())
	return m.svc.Invoke(ctx, sess, contract, method, args...)
}

func (m *metricsMiddleware) ReleaseFunds(ctx context.Context, sess *session.Session, contract, payee common.Address) (receipt *types.Receipt, err error) {
	defer func(s time.Time) { m.observe("ReleaseFunds", s, err) }(time.Now())
	return m.svc.ReleaseFunds(ctx, sess, contract, payee)
}

func (m *metricsMiddleware) GetRelease(ctx context.Context, id string) (view *subgraph.ReleaseView, err error) {
	defer func(s time.Time) { m.observe("GetRelease", s, err) }(time.Now())
	return m.svc.GetRelease(ctx, id)
}

func (m *metricsMiddleware) WatchRelease(ctx context.Context, id string) iter.Seq2[*subgraph.ReleaseView, error] {
	return m.svc.WatchRelease(ctx, id)
}

func (m *metricsMiddleware) CreatorReleases(ctx context.Context, creator string) (views []subgraph.ReleaseView, err error) {
	defer func(s time.Time) { m.observe("CreatorReleases", s, err) }(time.Now())
	return m.svc.CreatorReleases(ctx, creator)
}

func (m *metricsMiddleware) GetMetadata(ctx context.Context, uri string) (stored *metadata.Stored, err error) {
	defer func(s time.Time) { m.observe("GetMetadata", s, err) }(time.Now())
	return m.svc.GetMetadata(ctx, uri)
}

func (m *metricsMiddleware) GetPublish(ctx context.Context, id string) (p *db.Publish, err error) {
	defer func(s time.Time) { m.observe("GetPublish", s, err) }(time.Now())
	return m.svc.GetPublish(ctx, id)
}

func (m *metricsMiddleware) PublishHistory(ctx context.Context, creator string) (list []db.Publish, err error) {
	defer func(s time.Time) { m.observe("PublishHistory", s, err) }(time.Now())
	return m.svc.PublishHistory(ctx, creator)
}

func NewMetrics(reqCount *prometheus.CounterVec, reqDuration *prometheus.HistogramVec, svc Releases) Releases {
	return &metricsMiddleware{
		reqCount:    reqCount,
		reqDuration: reqDuration,
		svc:         svc,
	}
}
