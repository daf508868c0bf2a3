// Package metrics defines the Prometheus instruments exposed on the
// monitoring server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the responder.
type Metrics struct {
	// Binder metrics
	ListenersBound *prometheus.GaugeVec
	BindFailures   *prometheus.CounterVec

	// Transport loop metrics
	ConnectionsAccepted *prometheus.CounterVec
	PacketsReceived     *prometheus.CounterVec
	RepliesSent         *prometheus.CounterVec
	ReceiveErrors       *prometheus.CounterVec
	SendErrors          *prometheus.CounterVec
	LoopsTerminated     *prometheus.CounterVec
}

// New creates all metrics and registers them on the given registerer.
// Tests pass their own registry so instances never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ListenersBound: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "whereyoufrom_listeners_bound",
			Help: "Number of live bound listeners/sockets per transport",
		}, []string{"transport"}),
		BindFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whereyoufrom_bind_failures_total",
			Help: "Total number of addresses that failed to bind",
		}, []string{"transport"}),

		ConnectionsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whereyoufrom_connections_accepted_total",
			Help: "Total number of TCP connections accepted",
		}, []string{"listener"}),
		PacketsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whereyoufrom_packets_received_total",
			Help: "Total number of UDP datagrams received",
		}, []string{"socket"}),
		RepliesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whereyoufrom_replies_sent_total",
			Help: "Total number of successful replies per transport",
		}, []string{"transport"}),
		ReceiveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whereyoufrom_receive_errors_total",
			Help: "Total number of failed accept/receive operations",
		}, []string{"transport"}),
		SendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whereyoufrom_send_errors_total",
			Help: "Total number of failed reply writes/sends",
		}, []string{"transport"}),
		LoopsTerminated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whereyoufrom_loops_terminated_total",
			Help: "Total number of transport loops torn down by the error threshold",
		}, []string{"transport"}),
	}
}

// RecordBindFailure increments the bind failure counter for a transport.
func (m *Metrics) RecordBindFailure(transport string) {
	m.BindFailures.WithLabelValues(transport).Inc()
}

// RecordConnectionAccepted increments the accepted connections counter.
func (m *Metrics) RecordConnectionAccepted(listener string) {
	m.ConnectionsAccepted.WithLabelValues(listener).Inc()
}

// RecordPacketReceived increments the received datagrams counter.
func (m *Metrics) RecordPacketReceived(socket string) {
	m.PacketsReceived.WithLabelValues(socket).Inc()
}

// RecordReplySent increments the successful replies counter for a transport.
func (m *Metrics) RecordReplySent(transport string) {
	m.RepliesSent.WithLabelValues(transport).Inc()
}

// RecordReceiveError increments the accept/receive error counter.
func (m *Metrics) RecordReceiveError(transport string) {
	m.ReceiveErrors.WithLabelValues(transport).Inc()
}

// RecordSendError increments the reply failure counter.
func (m *Metrics) RecordSendError(transport string) {
	m.SendErrors.WithLabelValues(transport).Inc()
}

// RecordLoopTerminated increments the torn-down loop counter.
func (m *Metrics) RecordLoopTerminated(transport string) {
	m.LoopsTerminated.WithLabelValues(transport).Inc()
}
