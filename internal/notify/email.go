package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

const (
	categoryOrderConfirmed = "order-confirmed"
	categoryRxRequired     = "rx-required"
)

// EmailSender sends one email. SendGrid and SES implement it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one pharmacy notification.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // Plain text body
	HTML    string // Optional HTML body

	// OrderID is attached to the provider's delivery events so bounces can be
	// traced back to the order.
	OrderID    string
	Categories []string
	// Urgent flags orders the pharmacist must check against a prescription.
	Urgent bool
}

// SendGridSender sends pharmacy notifications through SendGrid.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	message := buildSendGridMail(mail.NewEmail(s.fromName, s.fromEmail), msg)
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To, "order_id", msg.OrderID)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To, "order_id", msg.OrderID)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent via sendgrid", "to", msg.To, "order_id", msg.OrderID, "status", response.StatusCode)
	return nil
}

// buildSendGridMail keeps text/plain first, as the v3 API requires.
func buildSendGridMail(from *mail.Email, msg EmailMessage) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(from)
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	if msg.OrderID != "" {
		p.SetCustomArg("order_id", msg.OrderID)
	}
	m.AddPersonalizations(p)

	plain := msg.Body
	if plain == "" {
		plain = msg.Subject
	}
	m.AddContent(mail.NewContent("text/plain", plain))
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	if len(msg.Categories) > 0 {
		m.AddCategories(msg.Categories...)
	}
	if msg.Urgent {
		m.SetHeader("X-Priority", "1")
		m.SetHeader("Importance", "high")
	}
	return m
}

// StubEmailSender logs notifications instead of sending them.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send order email",
		"to", msg.To,
		"subject", msg.Subject,
		"order_id", msg.OrderID,
		"urgent", msg.Urgent,
	)
	return nil
}
