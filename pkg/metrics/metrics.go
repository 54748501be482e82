package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"command"},
	)

	// 慢查询耗时（秒）
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		},
	)

	// 权限判定计数
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by entity, operation and outcome",
		},
		[]string{"entity", "operation", "outcome"}, // outcome: allow, deny
	)

	// 通知生成计数
	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "Total number of notifications written by the event pipeline",
		},
		[]string{"action"},
	)

	// 时间线事件计数
	TimelineEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_events_emitted_total",
			Help: "Total number of timeline events written by the event pipeline",
		},
		[]string{"action"},
	)

	// 事件管道失败计数
	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_failures_total",
			Help: "Event pipeline failures",
		},
		[]string{"mode"}, // mode: atomic, best_effort
	)

	// 逾期扫描运行计数
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Overdue sweep runs by status",
		},
		[]string{"status"}, // status: success, failed, skipped
	)

	// 最近一次扫描命中的项目数
	SweepProjects = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sweep_projects",
			Help: "Projects found by the last overdue sweep",
		},
		[]string{"state"}, // state: due, overdue
	)

	// Outbox 发布计数
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Outbox events relayed to the message broker",
		},
		[]string{"status"}, // status: sent, failed
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(command string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(command).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// RecordAuthzDecision 记录权限判定结果
func RecordAuthzDecision(entity, operation string, allowed bool) {
	outcome := "allow"
	if !allowed {
		outcome = "deny"
	}
	AuthzDecisions.WithLabelValues(entity, operation, outcome).Inc()
}

// AddNotifications 增加通知计数
func AddNotifications(action string, n int) {
	NotificationsEmitted.WithLabelValues(action).Add(float64(n))
}

// AddTimelineEvents 增加时间线事件计数
func AddTimelineEvents(action string, n int) {
	TimelineEventsEmitted.WithLabelValues(action).Add(float64(n))
}

// IncrementPipelineFailure 增加事件管道失败计数
func IncrementPipelineFailure(mode string) {
	PipelineFailures.WithLabelValues(mode).Inc()
}

// RecordSweep 记录一次扫描结果
func RecordSweep(status string, due, overdue int) {
	SweepRuns.WithLabelValues(status).Inc()
	if status == "success" {
		SweepProjects.WithLabelValues("due").Set(float64(due))
		SweepProjects.WithLabelValues("overdue").Set(float64(overdue))
	}
}

// IncrementOutboxPublished 增加 outbox 发布计数
func IncrementOutboxPublished(status string) {
	OutboxPublished.WithLabelValues(status).Inc()
}
