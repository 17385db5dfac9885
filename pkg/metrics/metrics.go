package metrics

import (
	gometrics "github.com/rcrowley/go-metrics"
)

// Pipeline instruments. Read-only observability; nothing in the pipeline
// branches on these values.
var (
	FilesProcessed = gometrics.NewRegisteredCounter("ingest.files_processed", nil)
	RowsInserted   = gometrics.NewRegisteredCounter("ingest.rows_inserted", nil)
	RowsSkipped    = gometrics.NewRegisteredCounter("ingest.rows_skipped", nil)
	DLQEntries     = gometrics.NewRegisteredCounter("ingest.dlq_entries", nil)
	ActiveDBOps    = gometrics.NewRegisteredCounter("ingest.active_db_ops", nil)

	BatchSize      = gometrics.NewRegisteredHistogram("ingest.batch_size", nil, gometrics.NewUniformSample(1024))
	ProcessingTime = gometrics.NewRegisteredTimer("ingest.processing_time", nil)
)

// Snapshot flattens the default registry for the operator API.
func Snapshot() map[string]interface{} {
	out := make(map[string]interface{})
	gometrics.DefaultRegistry.Each(func(name string, m interface{}) {
		switch v := m.(type) {
		case gometrics.Counter:
			out[name] = v.Count()
		case gometrics.Histogram:
			h := v.Snapshot()
			out[name] = map[string]interface{}{
				"count": h.Count(),
				"mean":  h.Mean(),
				"p95":   h.Percentile(0.95),
				"max":   h.Max(),
			}
		case gometrics.Timer:
			t := v.Snapshot()
			out[name] = map[string]interface{}{
				"count":   t.Count(),
				"mean_ms": t.Mean() / 1e6,
				"p95_ms":  t.Percentile(0.95) / 1e6,
			}
		}
	})
	return out
}
