package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/internal/notify"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// BuildOrderNotifier returns the pharmacist email notifier, or nil when no
// recipient or provider is configured.
func BuildOrderNotifier(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) conversation.OrderNotifier {
	if cfg == nil || cfg.PharmacyNotifyEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	var sender notify.EmailSender
	switch cfg.NotifyEmailProvider {
	case "ses":
		if awsCfg != nil {
			if ses := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.SendGridFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger); ses != nil {
				sender = ses
			}
		}
	case "stub":
		sender = notify.NewStubEmailSender(logger)
	default:
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			sender = sg
		}
	}
	if sender == nil {
		logger.Warn("order notifications disabled: email provider not configured", "provider", cfg.NotifyEmailProvider)
		return nil
	}

	svc := notify.NewService(sender, cfg.PharmacyNotifyEmail, logger)
	if !svc.Enabled() {
		return nil
	}
	logger.Info("order notifications enabled", "provider", cfg.NotifyEmailProvider)
	return svc
}
