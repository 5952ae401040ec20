package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Credential label values for identity resolution
const (
	CredentialBearer = "bearer"
	CredentialAPIKey = "api_key"
)

// HashBuckets covers bcrypt costs from test (4) to production (12+)
var HashBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2}

// Metrics groups the auth collectors. A nil *Metrics records nothing.
type Metrics struct {
	RegisterTotal       *prometheus.CounterVec
	LoginTotal          *prometheus.CounterVec
	IdentityResolutions *prometheus.CounterVec
	PasswordHashSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RegisterTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_register_total",
				Help: "Registration attempts",
			},
			[]string{"outcome"},
		),
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Login attempts",
			},
			[]string{"outcome"},
		),
		IdentityResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_identity_resolutions_total",
				Help: "Identity resolutions by credential",
			},
			[]string{"credential", "outcome"},
		),
		PasswordHashSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "auth_password_hash_seconds",
				Help:    "Password hash duration",
				Buckets: HashBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.RegisterTotal,
			m.LoginTotal,
			m.IdentityResolutions,
			m.PasswordHashSeconds,
		)
	}

	return m
}

func (m *Metrics) observeHash(d time.Duration) {
	if m == nil {
		return
	}
	m.PasswordHashSeconds.Observe(d.Seconds())
}

func (m *Metrics) recordRegister(err error) {
	if m == nil {
		return
	}
	m.RegisterTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) recordLogin(err error) {
	if m == nil {
		return
	}
	m.LoginTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) recordResolution(credential string, err error) {
	if m == nil {
		return
	}
	m.IdentityResolutions.WithLabelValues(credential, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// MetricsHandler serves the prometheus exposition of g
func MetricsHandler(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
