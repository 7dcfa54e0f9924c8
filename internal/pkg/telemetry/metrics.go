package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Search health
	MetricSearchDuration = "anonymise.search_duration"
	MetricJobQueueAge    = "anonymise.job_queue_age_seconds"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricJobsCompleted = "business.jobs_completed"
	MetricJobsFailed    = "business.jobs_failed"
)
