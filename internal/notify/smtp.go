package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/go-gomail/gomail"
)

const implicitTLSPort = 465

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers notifications through an SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	from string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@church.local"
	}
	return &SMTPSender{cfg: cfg, from: from}
}

// Send delivers one message. The whole exchange is bound to ctx, so a relay
// that stalls mid-session is reported as a send failure and nothing is
// delivered after Send returns.
func (s *SMTPSender) Send(ctx context.Context, n Notification) error {
	if err := s.deliver(ctx, buildMessage(s.from, n)); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailure, err)
	}
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, m *gomail.Message) error {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return err
	}
	defer raw.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := raw.SetDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = raw.Close() })
	defer stop()

	tlsConfig := &tls.Config{ServerName: s.cfg.Host}
	conn := raw
	if s.cfg.Port == implicitTLSPort {
		conn = tls.Client(raw, tlsConfig)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok && s.cfg.Port != implicitTLSPort {
		if err := c.StartTLS(tlsConfig); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
				return err
			}
		}
	}

	if err := gomail.Send(gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		if err := c.Mail(from); err != nil {
			return err
		}
		for _, addr := range to {
			if err := c.Rcpt(addr); err != nil {
				return err
			}
		}
		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := msg.WriteTo(w); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	}), m); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from string, n Notification) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", n.Body)

	for _, a := range n.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		m.Attach(a.Name, settings...)
	}
	return m
}
