package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 推理接口调用延迟（毫秒）
	InferenceCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_call_latency_ms",
			Help:    "Hosted inference endpoint call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"status"},
	)

	// 推理 fallback 次数
	InferenceFallbackCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_fallback_total",
			Help: "Total number of AI generations answered by a canned fallback",
		},
		[]string{"reason"}, // reason: missing_key, network, status, decode, empty, circuit_open
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	// 慢查询耗时（秒）
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Item 创建计数
	ItemCreatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "item_created_total",
			Help: "Total number of items created",
		},
		[]string{"category", "ai"},
	)

	// 线索阶段移动计数
	PipelineMoveCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_move_total",
			Help: "Total number of lead stage transitions",
		},
		[]string{"from", "to"},
	)

	// 乐观更新结果计数
	MutationOutcomeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimistic_mutation_total",
			Help: "Optimistic mutations by kind and final state",
		},
		[]string{"kind", "state"}, // state: confirmed, failed
	)

	// 表单提交计数
	SubmissionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submission_total",
			Help: "Total number of public form submissions",
		},
		[]string{"status"}, // status: stored, duplicate, failed
	)

	// 事件消费结果计数
	EventConsumedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_event_consumed_total",
			Help: "Domain events consumed by outcome",
		},
		[]string{"routing_key", "outcome"}, // outcome: ok, retry, dead_lettered
	)
)

// RecordInferenceCallLatency 记录推理调用延迟
func RecordInferenceCallLatency(status string, duration time.Duration) {
	InferenceCallLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// IncrementInferenceFallback 增加 fallback 计数
func IncrementInferenceFallback(reason string) {
	InferenceFallbackCount.WithLabelValues(reason).Inc()
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementItemCreated(category string, withAI bool) {
	ai := "false"
	if withAI {
		ai = "true"
	}
	ItemCreatedCount.WithLabelValues(category, ai).Inc()
}

func IncrementPipelineMove(from, to string) {
	PipelineMoveCount.WithLabelValues(from, to).Inc()
}

func IncrementMutationOutcome(kind, state string) {
	MutationOutcomeCount.WithLabelValues(kind, state).Inc()
}

func IncrementSubmission(status string) {
	SubmissionCount.WithLabelValues(status).Inc()
}

func IncrementEventConsumed(routingKey, outcome string) {
	EventConsumedCount.WithLabelValues(routingKey, outcome).Inc()
}
