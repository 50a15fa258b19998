// Package metrics exposes Prometheus collectors fed by instrumentation events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
)

const namespace = "inkgraph"

// Metrics holds the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	operations    *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	loaderBatches *prometheus.CounterVec
	loaderKeys    *prometheus.HistogramVec
	storeQueries  *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
}

// New registers the collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operations_total",
			Help: "GraphQL operations by type and outcome.",
		}, []string{"type", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operation_duration_seconds",
			Help: "GraphQL operation latency.", Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		loaderBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "dataloader", Name: "batches_total",
			Help: "Batch fetches by loader and outcome.",
		}, []string{"loader", "outcome"}),
		loaderKeys: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "dataloader", Name: "batch_keys",
			Help: "Keys per batch fetch.", Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"loader"}),
		storeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "queries_total",
			Help: "Store queries by backend, collection, operation and outcome.",
		}, []string{"backend", "collection", "op", "outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "store", Name: "query_duration_seconds",
			Help: "Store query latency.", Buckets: prometheus.DefBuckets,
		}, []string{"backend", "op"}),
	}
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.operations, m.opDuration,
		m.loaderBatches, m.loaderKeys,
		m.storeQueries, m.storeDuration,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}

// Subscribe records the events published on bus.
func (m *Metrics) Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	offs := []func(){
		eventbus.SubscribeTo(bus, func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			m.httpDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.SubscribeTo(bus, func(_ context.Context, e events.GraphQLFinish) {
			m.operations.WithLabelValues(e.OperationType, outcome(len(e.Errors) > 0)).Inc()
			m.opDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.SubscribeTo(bus, func(_ context.Context, e events.LoaderBatch) {
			m.loaderBatches.WithLabelValues(e.Loader, outcome(e.Err != nil)).Inc()
			m.loaderKeys.WithLabelValues(e.Loader).Observe(float64(e.Keys))
		}),
		eventbus.SubscribeTo(bus, func(_ context.Context, e events.StoreQuery) {
			m.storeQueries.WithLabelValues(e.Backend, e.Collection, e.Op, outcome(e.Err != nil)).Inc()
			m.storeDuration.WithLabelValues(e.Backend, e.Op).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
