package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Pharmastic" {
		t.Errorf("expected default from name 'Pharmastic', got %q", sender.fromName)
	}
}

func TestNewSendGridSender_CustomFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "Custom Name",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Custom Name" {
		t.Errorf("expected from name 'Custom Name', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{
		client: nil,
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})

	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{}
	sender := NewSESSender(fake, SESConfig{FromEmail: "orders@pharmastic.in"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "pharmacist@example.com",
		Subject: "New order",
		Body:    "text",
		HTML:    "<p>html</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(fake.input.FromEmailAddress); got != "Pharmastic <orders@pharmastic.in>" {
		t.Errorf("unexpected from %q", got)
	}
	if fake.input.Destination.ToAddresses[0] != "pharmacist@example.com" {
		t.Errorf("unexpected destination %+v", fake.input.Destination)
	}
	body := fake.input.Content.Simple.Body
	if aws.ToString(body.Text.Data) != "text" || aws.ToString(body.Html.Data) != "<p>html</p>" {
		t.Errorf("unexpected body %+v", body)
	}
	if len(fake.input.EmailTags) != 0 {
		t.Errorf("expected no tags for an untagged message, got %+v", fake.input.EmailTags)
	}
}

func TestSESSender_TagsOrder(t *testing.T) {
	fake := &fakeSES{}
	sender := NewSESSender(fake, SESConfig{FromEmail: "orders@pharmastic.in"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:         "pharmacist@example.com",
		Subject:    "[Rx] New order",
		Body:       "text",
		OrderID:    "ORD-1",
		Categories: []string{categoryOrderConfirmed, categoryRxRequired},
		Urgent:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := map[string]string{}
	for _, tag := range fake.input.EmailTags {
		got[aws.ToString(tag.Name)] = aws.ToString(tag.Value)
	}
	if got["order_id"] != "ORD-1" || got[categoryOrderConfirmed] != "true" || got[categoryRxRequired] != "true" {
		t.Errorf("unexpected tags %v", got)
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "orders@pharmastic.in"}, nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "a@example.com"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewSESSender_NilClient(t *testing.T) {
	if NewSESSender(nil, SESConfig{}, nil) != nil {
		t.Fatal("expected nil sender without client")
	}
}

func TestBuildSendGridMail(t *testing.T) {
	m := buildSendGridMail(mail.NewEmail("Pharmastic", "orders@pharmastic.in"), EmailMessage{
		To:         "pharmacist@example.com",
		ToName:     "Pharmacist",
		Subject:    "[Rx] New order ORD-1",
		Body:       "plain",
		HTML:       "<p>html</p>",
		OrderID:    "ORD-1",
		Categories: []string{categoryOrderConfirmed, categoryRxRequired},
		Urgent:     true,
	})

	if m.From.Address != "orders@pharmastic.in" || m.Subject != "[Rx] New order ORD-1" {
		t.Fatalf("unexpected envelope %+v", m)
	}
	if len(m.Personalizations) != 1 || m.Personalizations[0].To[0].Address != "pharmacist@example.com" {
		t.Fatalf("unexpected personalizations %+v", m.Personalizations)
	}
	if m.Personalizations[0].CustomArgs["order_id"] != "ORD-1" {
		t.Fatalf("expected order id custom arg, got %v", m.Personalizations[0].CustomArgs)
	}
	if len(m.Content) != 2 || m.Content[0].Type != "text/plain" || m.Content[1].Type != "text/html" {
		t.Fatalf("expected plain then html content, got %+v", m.Content)
	}
	if len(m.Categories) != 2 || m.Categories[1] != categoryRxRequired {
		t.Fatalf("unexpected categories %v", m.Categories)
	}
	if m.Headers["X-Priority"] != "1" {
		t.Fatalf("expected urgent header, got %v", m.Headers)
	}
}

func TestBuildSendGridMail_RoutineOrder(t *testing.T) {
	m := buildSendGridMail(mail.NewEmail("Pharmastic", "orders@pharmastic.in"), EmailMessage{
		To:      "pharmacist@example.com",
		Subject: "New order ORD-2",
	})

	if len(m.Content) != 1 || m.Content[0].Value != "New order ORD-2" {
		t.Fatalf("expected subject as plain fallback, got %+v", m.Content)
	}
	if len(m.Headers) != 0 || len(m.Categories) != 0 {
		t.Fatalf("routine order should carry no priority or categories, got %v %v", m.Headers, m.Categories)
	}
	if len(m.Personalizations[0].CustomArgs) != 0 {
		t.Fatalf("expected no custom args, got %v", m.Personalizations[0].CustomArgs)
	}
}
