package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestMessagingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMessagingMetrics(reg)
	m.ObserveInbound("text", "accepted")
	m.ObserveInbound("text", "accepted")
	m.ObserveOutbound("interactive", false)
	m.ObserveWebhookLatency("text", 0.5)

	mf := findFamily(t, reg, "pharmastic_whatsapp_inbound_webhook_total")
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 inbound, got %v", got)
	}
	out := findFamily(t, reg, "pharmastic_whatsapp_outbound_total")
	labels := map[string]string{}
	for _, lp := range out.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["status"] != "failed" || labels["type"] != "interactive" {
		t.Fatalf("unexpected outbound labels %v", labels)
	}
}

func TestConversationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	m.ObserveTurn("main_menu", "ok", 0.2)
	m.ObserveFallback("extraction", "timeout")
	m.ObserveOrderConfirmed(240)

	if got := findFamily(t, reg, "pharmastic_orders_confirmed_total").GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 confirmed order, got %v", got)
	}
	hist := findFamily(t, reg, "pharmastic_orders_value_inr").GetMetric()[0].GetHistogram()
	if hist.GetSampleSum() != 240 {
		t.Fatalf("expected order value 240, got %v", hist.GetSampleSum())
	}
	if got := findFamily(t, reg, "pharmastic_conversation_turns_total").GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 turn, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *MessagingMetrics
	m.ObserveInbound("event", "status")
	m.ObserveOutbound("text", true)
	m.ObserveWebhookLatency("event", 0.1)

	var c *ConversationMetrics
	c.ObserveTurn("main_menu", "ok", 0.1)
	c.ObserveFallback("translation", "error")
	c.ObserveOrderConfirmed(100)
}
