package observability

// Metric name prefixes
const (
	MetricPrefix = "megamillions"
)

// Metric names
const (
	// Fetch metrics
	FetchesTotal  = MetricPrefix + ".fetch.requests_total"
	FetchDuration = MetricPrefix + ".fetch.duration"

	// Ingestion metrics
	IngestRunsTotal     = MetricPrefix + ".ingest.runs_total"
	SnapshotRowsTotal   = MetricPrefix + ".snapshot.rows_replaced_total"
	RejectedRowsTotal   = MetricPrefix + ".snapshot.rows_rejected_total"
	SnapshotReplaceTime = MetricPrefix + ".snapshot.replace_duration"

	// HTTP metrics
	HTTPRequestsTotal   = MetricPrefix + ".http.requests_total"
	HTTPRequestDuration = MetricPrefix + ".http.request_duration"
)

// Label keys
const (
	LabelOutcome = "outcome"
	LabelTable   = "table"
	LabelStatus  = "status"
	LabelRoute   = "route"
	LabelMethod  = "method"
)

// Outcome values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)
