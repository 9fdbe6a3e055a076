package releasesworker

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metricsMiddleware struct {
	reqCount    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	worker      Worker
}

func (m *metricsMiddleware) ReconcileIndexed(ctx context.Context) (interval time.Duration, err error) {
	defer func(s time.Time) {
		labels := []string{
			"ReconcileIndexed", strconv.FormatBool(err != nil),
		}
		m.reqCount.WithLabelValues(labels...).Add(1)
		m.reqDuration.WithLabelValues(labels...).Observe(time.Since(s).Seconds())
	}(time.Now())
	return m.worker.ReconcileIndexed(ctx)
}

func (m *metricsMiddleware) RemoveOldPublishes(ctx context.Context) (interval time.Duration, err error) {
	defer func(s time.Time) {
		labels := []string{
			"RemoveOldPublishes", strconv.FormatBool(err != nil),
		}
		m.reqCount.WithLabelValues(labels...).Add(1)
		m.reqDuration.WithLabelValues(labels...).Observe(time.Since(s).Seconds())
	}(time.Now())
	return m.worker.RemoveOldPublishes(ctx)
}

func NewMetrics(reqCount *prometheus.CounterVec, reqDuration *prometheus.HistogramVec, worker Worker) Worker {
	return &metricsMiddleware{
		reqCount:    reqCount,
		reqDuration: reqDuration,
		worker:      worker,
	}
}
