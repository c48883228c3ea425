package copc

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.viam.com/copc/hierarchy"
)

// metrics holds the Prometheus collectors shared by every Reader of the process.
type metrics struct {
	PagesLoaded   prometheus.Counter
	PageEntries   prometheus.Counter
	PageHits      prometheus.Counter
	ChunksFetched prometheus.Counter
	BytesFetched  prometheus.Counter
	PointsDecoded prometheus.Counter
	QueryDuration *prometheus.HistogramVec
	OpenReaders   prometheus.Gauge
}

var (
	metricsOnce   sync.Once
	globalMetrics *metrics
)

// readerMetrics creates and registers the collectors on first use.
func readerMetrics() *metrics {
	metricsOnce.Do(func() {
		m := &metrics{}

		// hierarchy metrics
		m.PagesLoaded = promauto.NewCounter(prometheus.CounterOpts{
			Name: "copc_hierarchy_pages_loaded_total",
			Help: "Total number of hierarchy pages fetched and decoded",
		})
		m.PageEntries = promauto.NewCounter(prometheus.CounterOpts{
			Name: "copc_hierarchy_entries_loaded_total",
			Help: "Total number of hierarchy entries decoded",
		})
		m.PageHits = promauto.NewCounter(prometheus.CounterOpts{
			Name: "copc_hierarchy_page_cache_hits_total",
			Help: "Total number of hierarchy page lookups served from cache",
		})

		// point data metrics
		m.ChunksFetched = promauto.NewCounter(prometheus.CounterOpts{
			Name: "copc_point_chunks_fetched_total",
			Help: "Total number of point chunks fetched",
		})
		m.BytesFetched = promauto.NewCounter(prometheus.CounterOpts{
			Name: "copc_point_bytes_fetched_total",
			Help: "Total number of compressed point bytes fetched",
		})
		m.PointsDecoded = promauto.NewCounter(prometheus.CounterOpts{
			Name: "copc_points_decoded_total",
			Help: "Total number of point records decoded",
		})

		// query metrics
		m.QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "copc_query_duration_seconds",
			Help:    "Duration of reader queries in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"query"})
		m.OpenReaders = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "copc_open_readers",
			Help: "Number of open readers",
		})
		globalMetrics = m
	})
	return globalMetrics
}

// observe records the duration of the query started at start.
func (m *metrics) observe(query string, start time.Time) {
	m.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// pageObserver forwards page store events to the metrics.
type pageObserver struct {
	m *metrics
}

func (o pageObserver) PageLoaded(_ hierarchy.PageLocation, entries int) {
	o.m.PagesLoaded.Inc()
	o.m.PageEntries.Add(float64(entries))
}

func (o pageObserver) PageHit(hierarchy.PageLocation) {
	o.m.PageHits.Inc()
}
