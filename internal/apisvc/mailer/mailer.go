package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

type Config struct {
	Host        string
	Port        string
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// SMTPMailer sends transactional mail through an SMTP relay, upgrading to
// STARTTLS when the server offers it (implicit TLS on port 465).
type SMTPMailer struct {
	cfg  Config
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

var resetTemplate = template.Must(template.New("reset").Parse(`<h1>Password Reset Request</h1>
<p>You requested to reset your password. Click the link below to reset your password:</p>
<a href="{{.URL}}">Reset Password</a>
<p>If you did not request this, please ignore this email.</p>
`))

// ResetURL is the frontend page that consumes a reset token.
func (m *SMTPMailer) ResetURL(token string) string {
	return strings.TrimRight(m.cfg.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.buildResetMessage(email, token)
	if err != nil {
		return err
	}

	if err := m.send(ctx, msg); err != nil {
		log.Errorf("Error sending email %v", err)
		return fmt.Errorf("error sending email: %w", err)
	}

	log.Infof("password reset email sent via %s:%s", m.cfg.Host, m.cfg.Port)
	return nil
}

func (m *SMTPMailer) buildResetMessage(to, token string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject("Reset Your Password")

	body, err := renderResetBody(m.ResetURL(token))
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func renderResetBody(resetURL string) (string, error) {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ URL string }{resetURL}); err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return body.String(), nil
}

func (m *SMTPMailer) clientOptions() ([]mail.Option, error) {
	port, err := strconv.Atoi(m.cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP port %q: %w", m.cfg.Port, err)
	}

	opts := []mail.Option{mail.WithPort(port)}
	if port == 465 {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts, nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts, err := m.clientOptions()
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
