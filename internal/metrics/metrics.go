package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters the clinic API cares about. Registered on the default
// registry; Handler serves them on /metrics.
var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinic_login_attempts_total",
		Help: "Login attempts by outcome (success, failure, blocked).",
	}, []string{"outcome"})

	SlotConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_appointment_slot_conflicts_total",
		Help: "Appointment creations rejected because the hour slot was taken.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
