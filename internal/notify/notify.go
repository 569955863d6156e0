// Package notify delivers transactional e-mail.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"

	"stitchdesk/internal/broker"
	"stitchdesk/internal/config"
	"stitchdesk/internal/logger"
)

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (e Email) Validate() error {
	if strings.TrimSpace(e.To) == "" || !strings.Contains(e.To, "@") {
		return fmt.Errorf("invalid recipient %q", e.To)
	}
	if e.Subject == "" {
		return fmt.Errorf("empty subject")
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, e Email) error
}

// OTPEmail is the message carrying a one-time code.
func OTPEmail(to, purpose, code string) Email {
	subject := "Your StitchDesk verification code"
	if purpose == "reset" {
		subject = "Reset your StitchDesk password"
	}
	body := fmt.Sprintf("Your one-time code is %s.\n\nIt expires in 10 minutes. If you did not request it, ignore this e-mail.\n", code)
	return Email{To: to, Subject: subject, Body: body}
}

// SMTPSender talks to a mail relay directly. STARTTLS is used when the
// relay offers it.
type SMTPSender struct {
	cfg  config.SMTP
	send func(ctx context.Context, m *mail.Msg) error
}

func NewSMTPSender(cfg config.SMTP) *SMTPSender {
	s := &SMTPSender{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m, err := s.message(e)
	if err != nil {
		return err
	}
	return s.send(ctx, m)
}

func (s *SMTPSender) message(e Email) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, errors.Wrap(err, "smtp from")
	}
	if err := m.To(e.To); err != nil {
		return nil, errors.Wrap(err, "smtp to")
	}
	m.Subject(e.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, e.Body)
	return m, nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return errors.Wrap(err, "smtp client")
	}
	return errors.Wrap(c.DialAndSendWithContext(ctx, m), "smtp send")
}

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte) error
}

// QueueSender hands the e-mail to cmd/notifier through the broker.
type QueueSender struct {
	pub Publisher
}

func NewQueueSender(pub Publisher) *QueueSender { return &QueueSender{pub: pub} }

func (s *QueueSender) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, broker.NotificationsExchange, broker.EmailRoutingKey, body)
}

// LogSender writes the e-mail to the log; used when nothing else is set up.
type LogSender struct {
	Log *logger.Logger
}

func (s LogSender) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.Log.Ctx(ctx).Info("email_logged", map[string]any{"to": e.To, "subject": e.Subject, "body": e.Body})
	return nil
}
