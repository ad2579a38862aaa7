package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	appointmentCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberia",
			Name:      "appointment_created_total",
			Help:      "Count of appointment submissions by status.",
		},
		[]string{"status"},
	)

	phoneVerification = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberia",
			Name:      "phone_verification_total",
			Help:      "Count of phone verifications by result.",
		},
		[]string{"result"},
	)

	availabilityFetch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberia",
			Name:      "availability_fetch_total",
			Help:      "Count of slot availability fetches by outcome.",
		},
		[]string{"outcome"},
	)

	adminLogin = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberia",
			Name:      "admin_login_total",
			Help:      "Count of admin login attempts by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(appointmentCreated, phoneVerification, availabilityFetch, adminLogin)
	})
}

func IncAppointmentCreated(status string) {
	appointmentCreated.WithLabelValues(status).Inc()
}

func IncPhoneVerification(result string) {
	phoneVerification.WithLabelValues(result).Inc()
}

func IncAvailabilityFetch(outcome string) {
	availabilityFetch.WithLabelValues(outcome).Inc()
}

func IncAdminLogin(result string) {
	adminLogin.WithLabelValues(result).Inc()
}
