package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "queueless"

// Результаты Reserve для reservations_total
const (
	ResultReserved        = "reserved"
	ResultSlotUnavailable = "slot_unavailable"
	ResultCompensated     = "compensated"
	ResultDuplicate       = "duplicate"
	ResultRejectedDay     = "rejected_day"
)

var (
	once sync.Once

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reserve attempts by outcome.",
		},
		[]string{"result"},
	)

	releases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Released appointments by effect on the slot.",
		},
		[]string{"slot"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Administrator status decisions over appointments.",
		},
		[]string{"status"},
	)

	compensationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensation_failures_total",
			Help:      "Reserve compensations whose delete failed and left an orphan appointment.",
		},
	)

	reconcileAnomalies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_anomalies",
			Help:      "Slot/appointment inconsistencies found by the last reconciliation run.",
		},
	)
)

// Register регистрирует метрики, повторный вызов ничего не делает
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservations, releases, statusChanges, compensationFailures, reconcileAnomalies)
	})
}

func IncReservation(result string) {
	reservations.WithLabelValues(result).Inc()
}

func IncRelease(freed bool) {
	if freed {
		releases.WithLabelValues("freed").Inc()
		return
	}
	releases.WithLabelValues("noop").Inc()
}

func IncStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

func IncCompensationFailure() {
	compensationFailures.Inc()
}

func SetReconcileAnomalies(n int) {
	reconcileAnomalies.Set(float64(n))
}
