package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	s.RecordMetric(ctx, "index", "c1", 1500*time.Millisecond, map[string]any{"chunks_added": 42})
	s.RecordMetric(ctx, "index", "c1", 500*time.Millisecond, nil)
	s.RecordMetric(ctx, "search", "c1", 20*time.Millisecond, nil)

	recent, err := s.RecentMetrics(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "search", recent[0].Operation)
	assert.Equal(t, "index", recent[1].Operation)
	assert.Equal(t, 500*time.Millisecond, recent[1].Elapsed)

	all, err := s.RecentMetrics(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.EqualValues(t, 42, all[2].Meta["chunks_added"])

	summary, err := s.MetricsSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "index", summary[0].Operation)
	assert.Equal(t, 2, summary[0].Total)
	assert.Equal(t, time.Second, summary[0].Avg)
	assert.Equal(t, 500*time.Millisecond, summary[0].Min)
	assert.Equal(t, 1500*time.Millisecond, summary[0].Max)
	assert.False(t, summary[0].LastAt.IsZero())
}

func TestRecordMetricNeverFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := newTestStore(t)
	cancel()

	assert.NotPanics(t, func() {
		s.RecordMetric(ctx, "index", "", time.Second, map[string]any{"bad": func() {}})
	})
}
