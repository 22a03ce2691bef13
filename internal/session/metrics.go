package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hospi",
			Subsystem: "scanner",
			Name:      "scans_total",
			Help:      "Scanned payloads by outcome.",
		},
		[]string{"outcome"},
	)

	verificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hospi",
			Subsystem: "scanner",
			Name:      "pin_verifications_total",
			Help:      "PIN verification attempts by result.",
		},
		[]string{"result"},
	)

	sessionErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hospi",
			Subsystem: "scanner",
			Name:      "errors_total",
			Help:      "Errors reported by the session controller.",
		},
	)
)

func init() {
	prometheus.MustRegister(scansTotal, verificationsTotal, sessionErrorsTotal)
}

// MetricsRecorder is an Observer counting scan outcomes and verifications
type MetricsRecorder struct{}

func (MetricsRecorder) Observe(s Snapshot) {
	switch s.Event {
	case EventDisplayed:
		scansTotal.WithLabelValues("displayed").Inc()
	case EventVerificationRequired:
		scansTotal.WithLabelValues("verification_required").Inc()
	case EventRejected:
		scansTotal.WithLabelValues("rejected").Inc()
	case EventVerified:
		verificationsTotal.WithLabelValues("success").Inc()
	case EventPinMismatch:
		verificationsTotal.WithLabelValues("mismatch").Inc()
	case EventFailed:
		sessionErrorsTotal.Inc()
	}
}
