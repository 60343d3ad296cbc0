package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Search
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinerary_searches_total",
			Help: "Total number of itinerary searches by trip type and outcome.",
		},
		[]string{"trip", "outcome"}, // outcome: found, empty, invalid, error
	)
	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itinerary_search_duration_seconds",
			Help:    "Time spent in the path search and projection (seconds).",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"trip"},
	)
	searchItineraries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "itinerary_search_results",
			Help:    "Number of itineraries returned per search.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000, 10000},
		},
	)
	searchExpansions = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "itinerary_search_expansions",
			Help:    "Partial itineraries enqueued per search.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
	searchPruned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinerary_search_pruned_total",
			Help: "Candidate flights rejected during search, by check.",
		},
		[]string{"check"},
	)
	timetableFlights = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "timetable_flights",
			Help: "Number of flights in the timetable.",
		},
	)
	timetableLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_loads_total",
			Help: "Timetable snapshot loads by source.",
		},
		[]string{"source"}, // cache, db
	)

	// Kafka
	kafkaMessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_messages_sent_total",
			Help: "Total number of Kafka messages successfully sent.",
		},
	)
	kafkaMessagesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_messages_processed_total",
			Help: "Total number of Kafka messages successfully processed.",
		},
	)
	kafkaErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_errors_total",
			Help: "Total number of Kafka-related errors.",
		},
		[]string{"component", "operation"},
	)
	kafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (high watermark - current offset - 1).",
		},
		[]string{"topic", "partition"},
	)

	// Ingestion
	flightsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timetable_flights_ingested_total",
			Help: "Total number of flights written to the timetable.",
		},
	)
	flightImportStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flight_imports_status_count",
			Help: "Current count of flight_imports rows by status.",
		},
		[]string{"status"},
	)

	// Outbox
	outboxMessagesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outbox_messages_count",
			Help: "Current count of outbox messages by status.",
		},
		[]string{"status"},
	)
	outboxMessagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_messages_sent_total",
			Help: "Total number of outbox messages marked as sent.",
		},
	)
	outboxMessagesFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_messages_failed_total",
			Help: "Total number of outbox messages marked as failed.",
		},
	)
	outboxProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_processing_duration_seconds",
			Help:    "Time spent sending a single outbox message (seconds).",
			Buckets: prometheus.DefBuckets,
		},
	)
	outboxRetryCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_retries_total",
			Help: "Total number of outbox send retries (failed attempts).",
		},
	)
	outboxLagSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_lag_seconds",
			Help:    "Lag between outbox message creation and send attempt (seconds).",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)
	outboxPendingCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_count",
			Help: "Current number of pending outbox messages.",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			searchesTotal,
			searchDuration,
			searchItineraries,
			searchExpansions,
			searchPruned,
			timetableFlights,
			timetableLoads,

			kafkaMessagesSent,
			kafkaMessagesProcessed,
			kafkaErrors,
			kafkaConsumerLag,

			flightsIngested,
			flightImportStatus,

			outboxMessagesTotal,
			outboxMessagesSentTotal,
			outboxMessagesFailedTotal,
			outboxProcessingDuration,
			outboxRetryCount,
			outboxLagSeconds,
			outboxPendingCount,
		)
		prometheus.MustRegister(httpCollectors()...)
		prometheus.MustRegister(cacheCollectors()...)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- Search ---
func IncSearch(trip, outcome string) { searchesTotal.WithLabelValues(trip, outcome).Inc() }
func ObserveSearch(trip string, d time.Duration, results, enqueued int) {
	searchDuration.WithLabelValues(trip).Observe(d.Seconds())
	searchItineraries.Observe(float64(max0(results)))
	searchExpansions.Observe(float64(max0(enqueued)))
}
func AddPruned(check string, n int) {
	if n <= 0 {
		return
	}
	searchPruned.WithLabelValues(check).Add(float64(n))
}
func SetTimetableFlights(n int)      { timetableFlights.Set(float64(max0(n))) }
func IncTimetableLoad(source string) { timetableLoads.WithLabelValues(source).Inc() }

// --- Kafka ---
func IncKafkaSent()      { kafkaMessagesSent.Inc() }
func IncKafkaProcessed() { kafkaMessagesProcessed.Inc() }
func IncKafkaError(component, operation string) {
	kafkaErrors.WithLabelValues(component, operation).Inc()
}
func SetKafkaConsumerLag(topic string, partition int32, lag int64) {
	if lag < 0 {
		lag = 0
	}
	kafkaConsumerLag.WithLabelValues(topic, strconv.FormatInt(int64(partition), 10)).Set(float64(lag))
}

// --- Ingestion ---
func IncFlightsIngested() { flightsIngested.Inc() }

// --- Outbox ---
func IncOutboxSent()                          { outboxMessagesSentTotal.Inc() }
func IncOutboxFailed()                        { outboxMessagesFailedTotal.Inc() }
func ObserveOutboxProcessing(d time.Duration) { outboxProcessingDuration.Observe(d.Seconds()) }
func IncOutboxRetry()                         { outboxRetryCount.Inc() }
func ObserveOutboxLagSeconds(sec float64) {
	if sec < 0 {
		sec = 0
	}
	outboxLagSeconds.Observe(sec)
}

// --- Gauges (DB collectors) ---
func SetFlightImportStatusCount(status string, count int64) {
	if count < 0 {
		count = 0
	}
	flightImportStatus.WithLabelValues(status).Set(float64(count))
}
func SetOutboxStatusCount(status string, count int64) {
	if count < 0 {
		count = 0
	}
	outboxMessagesTotal.WithLabelValues(status).Set(float64(count))
}
func SetOutboxPendingCount(count int64) {
	if count < 0 {
		count = 0
	}
	outboxPendingCount.Set(float64(count))
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
