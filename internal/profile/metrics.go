package profile

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts derived profiles by experience level and tolerance.
type Metrics struct {
	derivations *prometheus.CounterVec
	clears      prometheus.Counter
}

// MustNewMetrics registers the profile collectors with reg, panicking on
// duplicate registration. Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		derivations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mykana",
				Subsystem: "profile",
				Name:      "derivations_total",
				Help:      "Patient profiles derived from completed questionnaires.",
			},
			[]string{"level", "tolerance"},
		),
		clears: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mykana",
				Subsystem: "profile",
				Name:      "clears_total",
				Help:      "Stored patient profiles explicitly cleared.",
			},
		),
	}
	reg.MustRegister(m.derivations, m.clears)
	return m
}

func (m *Metrics) observeDerivation(p *PatientProfile) {
	if m == nil || p == nil {
		return
	}
	m.derivations.WithLabelValues(string(p.ExperienceLevel.Level), string(p.Sensitivity.Tolerance)).Inc()
}

func (m *Metrics) observeClear() {
	if m == nil {
		return
	}
	m.clears.Inc()
}
