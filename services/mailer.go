package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/kendall-kelly/service-marketplace-api/config"
	"github.com/kendall-kelly/service-marketplace-api/metrics"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Email is an outbound HTML message
type Email struct {
	Template string // metrics label, e.g. "welcome"
	To       string
	Subject  string
	Body     string
}

// Mailer delivers emails
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewMailer returns an SMTP mailer when SMTP_HOST is set, otherwise a
// mailer that only logs.
func NewMailer(cfg *config.Config) Mailer {
	if !cfg.MailEnabled() {
		return LogMailer{}
	}
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:     cfg.MailFrom,
		fromName: cfg.MailFromName,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/html", email.Body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send %s email: %w", email.Template, err)
	}
	return nil
}

// LogMailer writes emails to the log instead of sending them
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, email Email) error {
	log.Info().
		Str("template", email.Template).
		Str("to", email.To).
		Str("subject", email.Subject).
		Msg("Mail delivery disabled, email not sent")
	return nil
}

// SendAsync delivers email on a background goroutine. Failures are logged
// and counted but never reach the caller.
func SendAsync(mailer Mailer, email Email) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := mailer.Send(ctx, email); err != nil {
			metrics.EmailsSent.WithLabelValues(email.Template, "error").Inc()
			log.Error().Err(err).Str("template", email.Template).Str("to", email.To).Msg("Failed to send email")
			return
		}
		metrics.EmailsSent.WithLabelValues(email.Template, "ok").Inc()
	}()
}

var (
	welcomeTemplate = template.Must(template.New("welcome").Parse(
		`<p>Hi {{.Name}},</p><p>Welcome to the On-Demand Service Marketplace.</p>` +
			`<p>Please <a href="{{.Link}}">verify your email address</a>. The link expires soon.</p>`))
	resetPasswordTemplate = template.Must(template.New("forgot_password").Parse(
		`<p>Reset your password: <a href="{{.Link}}">{{.Token}}</a></p>`))
)

type emailData struct {
	Name  string
	Link  string
	Token string
}

func render(tmpl *template.Template, data emailData) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("Failed to render email")
		return ""
	}
	return buf.String()
}

// WelcomeEmail greets a new user and links to email verification. name is
// user supplied and is HTML escaped.
func WelcomeEmail(to, name, baseURL, verifyToken string) Email {
	return Email{
		Template: "welcome",
		To:       to,
		Subject:  "Welcome to the On-Demand Service Marketplace",
		Body: render(welcomeTemplate, emailData{
			Name: name,
			Link: baseURL + "/verify-email/" + url.PathEscape(verifyToken),
		}),
	}
}

// ResetPasswordEmail carries a password reset link
func ResetPasswordEmail(to, baseURL, resetToken string) Email {
	return Email{
		Template: "forgot_password",
		To:       to,
		Subject:  "Reset your password",
		Body: render(resetPasswordTemplate, emailData{
			Link:  baseURL + "/reset-password/" + url.PathEscape(resetToken),
			Token: resetToken,
		}),
	}
}
