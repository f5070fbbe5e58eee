package mailer

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds a whole SMTP session when the caller's context has no
	// earlier deadline.
	Timeout time.Duration
}

// SMTPSender delivers plain-text notification emails.
type SMTPSender struct {
	cfg Config
}

func NewSMTPSender(cfg Config) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(recipient, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return errors.New("email header contains a line break")
	}

	msg, err := s.message(recipient, subject, body)
	if err != nil {
		return err
	}
	timeout := s.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return context.DeadlineExceeded
		}
		// go-mail re-arms the connection deadline with this value before each send.
		if left < timeout {
			timeout = left
		}
	}
	client, err := mail.NewClient(s.cfg.Host, s.options(timeout)...)
	if err != nil {
		return errors.Wrap(err, "failed to create smtp client")
	}
	err = client.DialAndSendWithContext(ctx, msg)
	return errors.Wrapf(err, "failed to send email to %s", recipient)
}

func (s *SMTPSender) options(timeout time.Duration) []mail.Option {
	opts := []mail.Option{
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(s.dial),
	}
	if s.cfg.Port != 0 {
		opts = append(opts, mail.WithPort(s.cfg.Port))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// dial pins a deadline on the connection so a server that stalls mid-session
// cannot hold the sender past the context deadline.
func (s *SMTPSender) dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.cfg.Timeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// message builds the email. Header values are RFC 2047 encoded by go-mail.
func (s *SMTPSender) message(recipient, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, errors.Wrapf(err, "invalid sender address %q", s.cfg.From)
	}
	if err := msg.To(recipient); err != nil {
		return nil, errors.Wrapf(err, "invalid recipient address %q", recipient)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// LogSender only logs outgoing mail. Used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, recipient, subject, _ string) error {
	log.WithFields(log.Fields{"to": recipient, "subject": subject}).Info("email not sent: smtp is not configured")
	return nil
}
