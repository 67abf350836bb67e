package identity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

const (
	resultSuccess  = "success"
	resultConflict = "conflict"
	resultInvalid  = "invalid_credentials"
	resultError    = "error"
)

var (
	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "registrations_total",
			Help:      "Registration attempts by result",
		},
		[]string{"result"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "logins_total",
			Help:      "Login attempts by result",
		},
		[]string{"result"},
	)
)

func recordRegistration(result string) {
	registrationsTotal.WithLabelValues(result).Inc()
}

func recordLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}
