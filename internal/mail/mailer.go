// Package mail delivers the account emails over SMTP. Delivery is
// synchronous and unretried; callers decide what a failed send means for
// the request that triggered it.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"dokuai.org/internal/obs"
)

// Config holds the SMTP relay settings and the frontend base URL that
// emailed links point at.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// SMTPMailer implements the auth service's Mailer over a plain SMTP relay.
type SMTPMailer struct {
	client      *gomail.Client
	from        string
	frontendURL string
}

// NewSMTPMailer builds the shared mail client. The connection is dialed per
// send; SMTP relays are cheap to reconnect and this keeps no idle sockets.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	return &SMTPMailer{
		client:      client,
		from:        cfg.From,
		frontendURL: cfg.FrontendURL,
	}, nil
}

// SendVerification mails the email-verification link for a fresh or rotated
// token.
func (m *SMTPMailer) SendVerification(ctx context.Context, to, token string) error {
	link := m.frontendURL + "/verify-email?token=" + token
	body, err := renderVerification(link)
	if err != nil {
		return err
	}
	return m.send(ctx, "verification", to, "Verify your DokuAI account", body)
}

// SendPasswordReset mails the reset link produced by the forgot-password
// flow.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	body, err := renderReset(link)
	if err != nil {
		return err
	}
	return m.send(ctx, "password_reset", to, "Reset your DokuAI password", body)
}

// SendPasswordChanged notifies the account after a successful password
// change.
func (m *SMTPMailer) SendPasswordChanged(ctx context.Context, to string) error {
	body, err := renderPasswordChanged()
	if err != nil {
		return err
	}
	return m.send(ctx, "password_changed", to, "Your DokuAI password has been changed", body)
}

func (m *SMTPMailer) send(ctx context.Context, kind, to, subject, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat("DokuAI", m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	err := m.client.DialAndSendWithContext(ctx, msg)
	obs.ObserveMailSend(kind, err)
	if err != nil {
		obs.LogEvent("error", "mail send failed", map[string]any{
			"kind": kind,
			"to":   to,
			"err":  err.Error(),
		})
		return fmt.Errorf("send %s mail: %w", kind, err)
	}
	return nil
}
