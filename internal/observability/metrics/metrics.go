package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "pharmastic"

// MessagingMetrics exposes counters/histograms for the WhatsApp gateway.
type MessagingMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "whatsapp",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhook payloads by kind and outcome",
		}, []string{"kind", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "whatsapp",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "whatsapp",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *MessagingMetrics) ObserveInbound(kind, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, status).Inc()
}

// ObserveOutbound counts a send; msgType is "text" or "interactive".
func (m *MessagingMetrics) ObserveOutbound(msgType string, ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.outboundTotal.WithLabelValues(msgType, status).Inc()
}

func (m *MessagingMetrics) ObserveWebhookLatency(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(kind).Observe(seconds)
}

// ConversationMetrics covers the ordering state machine and its adapters.
type ConversationMetrics struct {
	turnsTotal       *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
	adapterFallbacks *prometheus.CounterVec
	ordersConfirmed  prometheus.Counter
	orderValue       prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Conversation turns by starting step and outcome",
		}, []string{"step", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "End to end latency of a conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		adapterFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "adapter_fallbacks_total",
			Help:      "Extraction or translation calls that degraded to their fallback",
		}, []string{"adapter", "reason"}),
		ordersConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "confirmed_total",
			Help:      "Orders persisted after customer confirmation",
		}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "value_inr",
			Help:      "Total value of confirmed orders in rupees",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.adapterFallbacks, m.ordersConfirmed, m.orderValue)
	return m
}

func (m *ConversationMetrics) ObserveTurn(step, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(step, outcome).Inc()
	m.turnLatency.WithLabelValues(step).Observe(seconds)
}

func (m *ConversationMetrics) ObserveFallback(adapter, reason string) {
	if m == nil {
		return
	}
	m.adapterFallbacks.WithLabelValues(adapter, reason).Inc()
}

func (m *ConversationMetrics) ObserveOrderConfirmed(total int64) {
	if m == nil {
		return
	}
	m.ordersConfirmed.Inc()
	m.orderValue.Observe(float64(total))
}
