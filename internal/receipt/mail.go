package receipt

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Name        string
	ContentType string
	Body        []byte
}

// Message is one outgoing email.
type Message struct {
	To         string
	Subject    string
	Text       string
	Attachment *Attachment
}

// Mailer is the external mail collaborator.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer delivers mail through an SMTP relay.  STARTTLS is used when
// the relay offers it; port 465 connects with implicit TLS.
type SMTPMailer struct {
	Addr     string // host:port
	Username string
	Password string
	From     string

	// send dials the relay outside tests.
	send func(ctx context.Context, m *mail.Msg) error
}

// NewSMTPMailer returns a mailer for the relay at addr.
func NewSMTPMailer(addr, username, password, from string) *SMTPMailer {
	m := &SMTPMailer{Addr: addr, Username: username, Password: password, From: from}
	m.send = m.dial
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.send(ctx, out); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.From); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", m.From, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetBodyString(mail.TypeTextPlain, msg.Text)

	if a := msg.Attachment; a != nil {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := out.AttachReader(a.Name, bytes.NewReader(a.Body), mail.WithFileContentType(mail.ContentType(ct))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return out, nil
}

func (m *SMTPMailer) dial(ctx context.Context, out *mail.Msg) error {
	host, portStr, err := net.SplitHostPort(m.Addr)
	if err != nil {
		return fmt.Errorf("smtp addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("smtp port %q: %w", portStr, err)
	}
	opts := []mail.Option{mail.WithPort(port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if m.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.Username),
			mail.WithPassword(m.Password))
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, out)
}

// LogMailer only logs outgoing mail.  It stands in when no relay is set.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	fields := []zap.Field{zap.String("to", msg.To), zap.String("subject", msg.Subject)}
	if msg.Attachment != nil {
		fields = append(fields, zap.String("attachment", msg.Attachment.Name), zap.Int("bytes", len(msg.Attachment.Body)))
	}
	m.Logger.Info("mail not sent, no smtp relay configured", fields...)
	return nil
}
