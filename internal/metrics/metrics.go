// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the recording interface used by handlers and the session
// monitor. Production code records into Prometheus; tests use Nop.
type Collector interface {
	RecordAdminOp(op string, status int)
	RecordLogin(provider string)
	RecordTokenRefresh(success bool)
	RecordSessionExpired(provider string)
	RecordEmailSent(kind string, success bool)
}

// PromCollector records gateway metrics into a Prometheus registry.
type PromCollector struct {
	adminOps       *prometheus.CounterVec
	logins         *prometheus.CounterVec
	tokenRefreshes *prometheus.CounterVec
	sessionExpired *prometheus.CounterVec
	emailsSent     *prometheus.CounterVec
}

var _ Collector = (*PromCollector)(nil)

// NewCollector creates a PromCollector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *PromCollector {
	c := &PromCollector{
		adminOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_admin_ops_total",
			Help: "Administrative operations by operation and response status.",
		}, []string{"op", "status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_logins_total",
			Help: "Successful sign-ins by provider.",
		}, []string{"provider"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_token_refreshes_total",
			Help: "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		sessionExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_sessions_expired_total",
			Help: "Sessions terminated by the expiration sweep, by provider.",
		}, []string{"provider"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_emails_sent_total",
			Help: "Transactional emails by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(c.adminOps, c.logins, c.tokenRefreshes, c.sessionExpired, c.emailsSent)
	return c
}

func (c *PromCollector) RecordAdminOp(op string, status int) {
	c.adminOps.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

func (c *PromCollector) RecordLogin(provider string) {
	c.logins.WithLabelValues(provider).Inc()
}

func (c *PromCollector) RecordTokenRefresh(success bool) {
	c.tokenRefreshes.WithLabelValues(outcome(success)).Inc()
}

func (c *PromCollector) RecordSessionExpired(provider string) {
	c.sessionExpired.WithLabelValues(provider).Inc()
}

func (c *PromCollector) RecordEmailSent(kind string, success bool) {
	c.emailsSent.WithLabelValues(kind, outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler exposes reg over HTTP in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Nop discards all recordings.
type Nop struct{}

var _ Collector = Nop{}

func (Nop) RecordAdminOp(string, int)    {}
func (Nop) RecordLogin(string)           {}
func (Nop) RecordTokenRefresh(bool)      {}
func (Nop) RecordSessionExpired(string)  {}
func (Nop) RecordEmailSent(string, bool) {}
