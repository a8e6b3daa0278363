package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const defaultMetricsLimit = 50

// RecordMetric stores the duration of one operation. Failures are logged
// and never returned so metrics cannot interrupt the measured operation.
func (s *Store) RecordMetric(ctx context.Context, operation, courseID string, elapsed time.Duration, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"encode_error":%q}`, err.Error()))
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operation_metrics (operation, course_id, elapsed_ms, meta_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		operation, courseID, float64(elapsed)/float64(time.Millisecond), string(raw), s.timestamp())
	if err != nil {
		s.logger.Warn("metric not recorded", "operation", operation, "err", err)
	}
}

// RecentMetrics returns up to limit metrics, newest first
func (s *Store) RecentMetrics(ctx context.Context, limit int) ([]Metric, error) {
	if limit <= 0 {
		limit = defaultMetricsLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, COALESCE(course_id, ''), elapsed_ms, meta_json, created_at
		FROM operation_metrics ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, wrapError("recent metrics", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var (
			m       Metric
			ms      float64
			meta    string
			created string
		)
		if err := rows.Scan(&m.ID, &m.Operation, &m.CourseID, &ms, &meta, &created); err != nil {
			return nil, wrapError("recent metrics", err)
		}
		m.Elapsed = msToDuration(ms)
		if json.Unmarshal([]byte(meta), &m.Meta) != nil {
			m.Meta = map[string]any{}
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, wrapError("recent metrics", rows.Err())
}

// MetricsSummary aggregates metrics per operation, busiest first
func (s *Store) MetricsSummary(ctx context.Context) ([]MetricSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT operation, COUNT(*), AVG(elapsed_ms), MIN(elapsed_ms), MAX(elapsed_ms), MAX(created_at)
		FROM operation_metrics
		GROUP BY operation
		ORDER BY COUNT(*) DESC, operation ASC`)
	if err != nil {
		return nil, wrapError("metrics summary", err)
	}
	defer rows.Close()

	var out []MetricSummary
	for rows.Next() {
		var (
			m           MetricSummary
			avg, lo, hi float64
			last        string
		)
		if err := rows.Scan(&m.Operation, &m.Total, &avg, &lo, &hi, &last); err != nil {
			return nil, wrapError("metrics summary", err)
		}
		m.Avg, m.Min, m.Max = msToDuration(avg), msToDuration(lo), msToDuration(hi)
		m.LastAt = parseTime(last)
		out = append(out, m)
	}
	return out, wrapError("metrics summary", rows.Err())
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
