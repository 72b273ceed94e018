// Package metrics exports the transport's operational counters as
// Prometheus metrics: packets sent/received/dropped, jitter and loss from
// RTCP bookkeeping, and pending-queue depth.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every metric this engine exports. All operations are
// thread-safe, matching the teacher's MetricsCollector pattern.
type Collector struct {
	packetsSent     *prometheus.CounterVec
	packetsReceived *prometheus.CounterVec
	packetsDropped  *prometheus.CounterVec
	bytesSent       *prometheus.CounterVec
	bytesReceived   *prometheus.CounterVec

	jitter       *prometheus.GaugeVec
	fractionLost *prometheus.GaugeVec

	pendingQueueDepth *prometheus.GaugeVec

	reorderDrains  *prometheus.CounterVec
	timeoutsTotal  *prometheus.CounterVec
}

// Config selects the Prometheus namespace/subsystem and registerer.
type Config struct {
	Namespace  string
	Subsystem  string
	Registerer prometheus.Registerer
}

// NewCollector constructs and registers every metric against cfg.Registerer
// (or the default registry when nil).
func NewCollector(cfg Config) *Collector {
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "packets_sent_total",
			Help:      "Total number of RTP packets sent, by media kind.",
		}, []string{"kind"}),
		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "packets_received_total",
			Help:      "Total number of RTP packets received, by media kind.",
		}, []string{"kind"}),
		packetsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "packets_dropped_total",
			Help:      "Total number of RTP packets dropped, by error kind.",
		}, []string{"error_kind"}),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "bytes_sent_total",
			Help:      "Total number of RTP payload bytes sent, by media kind.",
		}, []string{"kind"}),
		bytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "bytes_received_total",
			Help:      "Total number of RTP payload bytes received, by media kind.",
		}, []string{"kind"}),
		jitter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "jitter_timestamp_units",
			Help:      "RFC 3550 Appendix A.8 interarrival jitter estimate, per remote SSRC.",
		}, []string{"ssrc"}),
		fractionLost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fraction_lost",
			Help:      "Most recent RTCP fraction-lost value (0-255 scale), per remote SSRC.",
		}, []string{"ssrc"}),
		pendingQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pending_queue_depth",
			Help:      "Current depth of the pre-keying pending-packet queue, per stream index.",
		}, []string{"stream"}),
		reorderDrains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "reorder_forced_drains_total",
			Help:      "Total number of reorder-buffer head-of-line packets force-drained past the drop timeout.",
		}, []string{"stream"}),
		timeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "no_rtp_timeouts_total",
			Help:      "Total number of no-activity RTP timeouts observed.",
		}, []string{"stream"}),
	}

	for _, collector := range []prometheus.Collector{
		c.packetsSent, c.packetsReceived, c.packetsDropped,
		c.bytesSent, c.bytesReceived,
		c.jitter, c.fractionLost,
		c.pendingQueueDepth, c.reorderDrains, c.timeoutsTotal,
	} {
		reg.MustRegister(collector)
	}

	return c
}

// RecordSend increments the sent counters for one outbound packet.
func (c *Collector) RecordSend(kind string, payloadBytes int) {
	c.packetsSent.WithLabelValues(kind).Inc()
	c.bytesSent.WithLabelValues(kind).Add(float64(payloadBytes))
}

// RecordReceive increments the received counters for one inbound packet.
func (c *Collector) RecordReceive(kind string, payloadBytes int) {
	c.packetsReceived.WithLabelValues(kind).Inc()
	c.bytesReceived.WithLabelValues(kind).Add(float64(payloadBytes))
}

// RecordDrop increments the dropped counter for the given error kind.
func (c *Collector) RecordDrop(errorKind string) {
	c.packetsDropped.WithLabelValues(errorKind).Inc()
}

// SetJitter records the latest jitter estimate for an SSRC.
func (c *Collector) SetJitter(ssrc string, jitter float64) {
	c.jitter.WithLabelValues(ssrc).Set(jitter)
}

// SetFractionLost records the latest fraction-lost value for an SSRC.
func (c *Collector) SetFractionLost(ssrc string, fraction uint8) {
	c.fractionLost.WithLabelValues(ssrc).Set(float64(fraction))
}

// SetPendingQueueDepth records the current pending-queue depth for a stream.
func (c *Collector) SetPendingQueueDepth(stream string, depth int) {
	c.pendingQueueDepth.WithLabelValues(stream).Set(float64(depth))
}

// RecordReorderDrain increments the forced-drain counter for a stream.
func (c *Collector) RecordReorderDrain(stream string) {
	c.reorderDrains.WithLabelValues(stream).Inc()
}

// RecordTimeout increments the no-activity timeout counter for a stream.
func (c *Collector) RecordTimeout(stream string) {
	c.timeoutsTotal.WithLabelValues(stream).Inc()
}
