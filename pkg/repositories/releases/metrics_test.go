package releases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mymediarelease-backend/pkg/models/db"
)

type stubRepository struct {
	Repository
	err error
}

func (s *stubRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return s.err
}

func (s *stubRepository) GetAwaitingIndex(ctx context.Context, limit int) ([]db.Publish, error) {
	return []db.Publish{{ID: "p1", Status: db.PublishStatusDeployed}}, s.err
}

func (s *stubRepository) RemoveOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, s.err
}

func TestMetricsMiddleware(t *testing.T) {
	count := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_repo_requests_total"}, []string{"method", "error"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_repo_duration_seconds"}, []string{"method", "error"})

	stub := &stubRepository{}
	repo := NewMetrics(count, duration, stub)

	got, err := repo.GetAwaitingIndex(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	stub.err = errors.New("boom")
	assert.Error(t, repo.MarkFailed(context.Background(), "p1", "storage"))
	_, err = repo.RemoveOld(context.Background(), time.Hour)
	assert.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(count.WithLabelValues("GetAwaitingIndex", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(count.WithLabelValues("MarkFailed", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(count.WithLabelValues("RemoveOld", "true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(count.WithLabelValues("MarkFailed", "false")))
}
