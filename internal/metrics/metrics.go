package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	ExpensesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expenses_created_total",
			Help: "Expenses created, by split type",
		},
		[]string{"split_type"}, // equal|percentage|fixed
	)
	SettlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Splits marked settled",
		},
	)
	SplitErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "split_errors_total",
			Help: "Rejected split computations",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(ExpensesCreated)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(SplitErrors)
	prometheus.MustRegister(WorkerQueueDepth)
}
