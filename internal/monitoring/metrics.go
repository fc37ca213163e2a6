package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairplay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	BetsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairplay_bets_settled_total",
			Help: "Bets committed to the ledger",
		},
		[]string{"game", "mode", "result"},
	)

	SettlementRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairplay_settlement_retries_total",
			Help: "Settlement attempts repeated after a concurrent modification",
		},
		[]string{"game"},
	)

	SettlementFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairplay_settlement_failures_total",
			Help: "Bets rejected, by error kind",
		},
		[]string{"game", "kind"},
	)

	SeedRotations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fairplay_seed_rotations_total",
			Help: "Seed pairs retired by rotation",
		},
	)
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(HttpRequests)
		prometheus.MustRegister(BetsSettled)
		prometheus.MustRegister(SettlementRetries)
		prometheus.MustRegister(SettlementFailures)
		prometheus.MustRegister(SeedRotations)
	})
}
