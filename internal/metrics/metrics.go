package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync driver metrics
	syncRound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "appindexor_sync_round",
			Help: "The last round fully processed and persisted",
		},
	)

	roundsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appindexor_rounds_processed_total",
			Help: "Total number of rounds processed",
		},
	)

	blockFetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appindexor_block_fetch_retries_total",
			Help: "Total number of block fetch retries",
		},
	)

	roundProcessingTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "appindexor_round_processing_duration_seconds",
			Help:    "Time taken to process one round",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Classification and apply metrics
	occurrencesSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appindexor_occurrences_total",
			Help: "Total number of application-call occurrences extracted",
		},
	)

	classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appindexor_classifications_total",
			Help: "Total number of classifications by family",
		},
		[]string{"family"},
	)

	eventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appindexor_events_applied_total",
			Help: "Total number of decoded events applied by family",
		},
		[]string{"family"},
	)

	contractSyncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appindexor_contract_sync_failures_total",
			Help: "Total number of abandoned per-contract syncs by family",
		},
		[]string{"family"},
	)

	// System metrics
	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "appindexor_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "appindexor_goroutines",
			Help: "Number of active goroutines",
		},
	)

	memoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "appindexor_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func SyncRoundSet(round uint64) {
	syncRound.Set(float64(round))
}

func RoundProcessed(duration time.Duration) {
	roundsProcessed.Inc()
	roundProcessingTime.Observe(duration.Seconds())
}

func BlockFetchRetryInc() {
	blockFetchRetries.Inc()
}

func OccurrencesSeen(count int) {
	occurrencesSeen.Add(float64(count))
}

func ClassificationInc(family string) {
	classifications.WithLabelValues(family).Inc()
}

func EventsApplied(family string, count int) {
	eventsApplied.WithLabelValues(family).Add(float64(count))
}

func ContractSyncFailureInc(family string) {
	contractSyncFailures.WithLabelValues(family).Inc()
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	uptime.Set(time.Since(startTime).Seconds())
	goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	memoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	memoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	memoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
