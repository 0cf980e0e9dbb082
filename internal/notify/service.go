package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

const defaultFromName = "Pharmastic"

// Service emails the pharmacy about confirmed orders.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewService creates a notification service. recipients is a comma separated
// list; an empty list or nil sender turns notifications off.
func NewService(email EmailSender, recipients string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	var to []string
	for _, r := range strings.Split(recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	return &Service{email: email, recipients: to, logger: logger}
}

// Enabled reports whether notifications will actually be sent.
func (s *Service) Enabled() bool {
	return s != nil && s.email != nil && len(s.recipients) > 0
}

// NotifyOrderConfirmed sends the pharmacist an order summary.
func (s *Service) NotifyOrderConfirmed(ctx context.Context, order orders.Order, profile *customers.Profile) error {
	if !s.Enabled() {
		s.logger.Debug("notify: order notifications disabled", "order_id", order.ID)
		return nil
	}

	customerName := "A customer"
	if profile != nil && strings.TrimSpace(profile.Name) != "" {
		customerName = profile.Name
	}

	rx := needsPrescription(order)
	subject := fmt.Sprintf("💊 New order %s - %s", order.ID, customerName)
	categories := []string{categoryOrderConfirmed}
	if rx {
		subject = "[Rx] " + subject
		categories = append(categories, categoryRxRequired)
	}
	body := orderText(order, customerName)
	htmlBody := orderHTML(order, customerName)

	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{
			To:         recipient,
			Subject:    subject,
			Body:       body,
			HTML:       htmlBody,
			OrderID:    order.ID,
			Categories: categories,
			Urgent:     rx,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send email", "error", err, "to", recipient, "order_id", order.ID)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("notify: order email sent", "to", recipient, "order_id", order.ID)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func needsPrescription(order orders.Order) bool {
	for _, item := range order.Items {
		if strings.EqualFold(strings.TrimSpace(item.PrescriptionRequired), "yes") {
			return true
		}
	}
	return false
}

func orderText(order orders.Order, customerName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s placed order %s.\n\n", customerName, order.ID)
	fmt.Fprintf(&b, "Phone: %s\n", order.CustomerID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s × %d %s @ ₹%d", item.Medicine, item.Quantity, item.Unit, item.UnitPrice)
		if item.DosageFrequency != "" {
			fmt.Fprintf(&b, " (%s)", item.DosageFrequency)
		}
		if strings.EqualFold(strings.TrimSpace(item.PrescriptionRequired), "yes") {
			b.WriteString(" [Rx required]")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTotal: ₹%d\nPlaced: %s\n\n— Pharmastic AI", order.Total, order.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	return b.String()
}

func orderHTML(order orders.Order, customerName string) string {
	var rows strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rows, `<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%d %s</td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">₹%d</td></tr>`,
			html.EscapeString(item.Medicine), item.Quantity, html.EscapeString(item.Unit), item.Subtotal())
	}
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #10b981;">💊 New order %s</h2>
<p><strong>%s</strong> (<a href="tel:+%s">+%s</a>) confirmed an order.</p>
<table style="border-collapse: collapse; margin: 20px 0;">%s</table>
<p><strong>Total:</strong> ₹%d</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— Pharmastic AI</p>
</div>`,
		html.EscapeString(order.ID), html.EscapeString(customerName), order.CustomerID, order.CustomerID, rows.String(), order.Total)
}
