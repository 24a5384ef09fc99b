package services

import (
	"fmt"

	"github.com/pawarp19/Esignnew/internal/config"
	"github.com/pawarp19/Esignnew/pkg/metrics"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// Notifier sends a single transactional email.
type Notifier interface {
	Notify(toEmail, subject, body string) error
}

// MailService relays notifications over SMTP.
type MailService struct {
	dialer  *gomail.Dialer
	from    string
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
}

func NewMailService(cfg config.MailConfig, logger *zap.Logger, metrics *metrics.MetricsCollector) *MailService {
	return &MailService{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		logger:  logger.With(zap.String("service", "mail_service")),
		metrics: metrics,
	}
}

func (ms *MailService) Notify(toEmail, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", ms.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := ms.dialer.DialAndSend(m); err != nil {
		ms.metrics.IncrementCounter("mails_failed", nil)
		return fmt.Errorf("failed to send mail to %s: %w", toEmail, err)
	}

	ms.metrics.IncrementCounter("mails_sent", nil)
	ms.logger.Info("Notification sent", zap.String("to", toEmail), zap.String("subject", subject))
	return nil
}
