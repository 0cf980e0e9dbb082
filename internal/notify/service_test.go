package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func sampleOrder() orders.Order {
	return orders.Order{
		ID:         "ORD-01J00000000000000000000000",
		CustomerID: "919876543210",
		Items: []orders.LineItem{{
			Medicine: "Dolo 650", Quantity: 2, Unit: "strips", UnitPrice: 120,
			DosageFrequency: "twice a day", PrescriptionRequired: "no",
		}},
		Total:     240,
		Status:    orders.StatusConfirmed,
		Currency:  orders.CurrencyINR,
		CreatedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestNotifyOrderConfirmedSendsToEveryRecipient(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "pharmacist@example.com, ops@example.com", nil)

	err := svc.NotifyOrderConfirmed(context.Background(), sampleOrder(), &customers.Profile{Name: "Asha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "pharmacist@example.com" || !strings.Contains(msg.Subject, "Asha") {
		t.Errorf("unexpected message %+v", msg)
	}
	for _, want := range []string{"Dolo 650 × 2 strips @ ₹120", "(twice a day)", "Total: ₹240", "919876543210"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if !strings.Contains(msg.HTML, "₹240") {
		t.Errorf("html missing subtotal: %s", msg.HTML)
	}
	if msg.OrderID != "ORD-01J00000000000000000000000" || msg.Urgent {
		t.Errorf("unexpected routing fields %+v", msg)
	}
	if len(msg.Categories) != 1 || msg.Categories[0] != categoryOrderConfirmed {
		t.Errorf("unexpected categories %v", msg.Categories)
	}
}

func TestNotifyOrderConfirmedFlagsPrescriptionOrders(t *testing.T) {
	sender := &recordingSender{}
	order := sampleOrder()
	order.Items[0].PrescriptionRequired = "Yes"

	if err := NewService(sender, "pharmacist@example.com", nil).NotifyOrderConfirmed(context.Background(), order, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := sender.sent[0]
	if !strings.Contains(msg.Body, "[Rx required]") {
		t.Errorf("expected rx marker in body:\n%s", msg.Body)
	}
	if !msg.Urgent || !strings.HasPrefix(msg.Subject, "[Rx] ") {
		t.Errorf("expected urgent rx email, got %+v", msg)
	}
	if len(msg.Categories) != 2 || msg.Categories[1] != categoryRxRequired {
		t.Errorf("expected rx category, got %v", msg.Categories)
	}
	if !strings.Contains(msg.Subject, "A customer") {
		t.Errorf("expected anonymous customer name, got %q", msg.Subject)
	}
}

func TestNotifyOrderConfirmedDisabled(t *testing.T) {
	sender := &recordingSender{}
	if err := NewService(sender, "  ", nil).NotifyOrderConfirmed(context.Background(), sampleOrder(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("expected no email without recipients")
	}
	if NewService(nil, "a@example.com", nil).Enabled() {
		t.Fatal("expected disabled without sender")
	}
}

func TestNotifyOrderConfirmedReportsFailures(t *testing.T) {
	boom := errors.New("smtp down")
	svc := NewService(&recordingSender{err: boom}, "a@example.com", nil)
	err := svc.NotifyOrderConfirmed(context.Background(), sampleOrder(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
