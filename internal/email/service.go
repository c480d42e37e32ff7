package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	templateWelcome       = "welcome"
	templatePasswordReset = "passwordReset"

	subjectWelcome       = "Welcome to the Natours Family!"
	subjectPasswordReset = "Your password reset token (valid for only 10 minutes)"
)

// SendFunc delivers a raw message. smtp.SendMail satisfies it.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service renders the account emails and delivers them over SMTP.
type Service struct {
	cfg       config.EmailConfig
	from      *mail.Address
	templates map[string]*template.Template
	send      SendFunc
}

func NewService(cfg config.EmailConfig) (*Service, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_FROM %q: %w", cfg.From, err)
	}

	templates := make(map[string]*template.Template)
	for _, name := range []string{templateWelcome, templatePasswordReset} {
		t, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		templates[name] = t
	}

	return &Service{cfg: cfg, from: from, templates: templates, send: smtp.SendMail}, nil
}

// SendWelcome greets a newly signed up user.
func (s *Service) SendWelcome(ctx context.Context, u *user.User, url string) error {
	return s.deliver(ctx, u, templateWelcome, subjectWelcome, url)
}

// SendPasswordReset mails the reset link.
func (s *Service) SendPasswordReset(ctx context.Context, u *user.User, url string) error {
	return s.deliver(ctx, u, templatePasswordReset, subjectPasswordReset, url)
}

func (s *Service) deliver(ctx context.Context, u *user.User, name, subject, url string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := s.render(name, subject, firstName(u.Name), url)
	if err != nil {
		logger.Error("failed to render email template", "template", name, "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(u.Email, subject, body); err != nil {
		logger.Error("failed to send email", "template", name, "email", u.Email, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("email sent", "template", name, "email", u.Email)
	return nil
}

func (s *Service) render(name, subject, first, url string) (string, error) {
	data := struct {
		Subject   string
		FirstName string
		URL       string
	}{subject, first, url}

	var buf bytes.Buffer
	if err := s.templates[name].ExecuteTemplate(&buf, "base", data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"Date: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.from.String(), to, mimeHeader(subject), time.Now().Format(time.RFC1123Z), body,
	))

	addr := net.JoinHostPort(s.cfg.SMTPHost, s.cfg.SMTPPort)
	return s.send(addr, auth, s.from.Address, []string{to}, msg)
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}

func mimeHeader(v string) string {
	return mime.QEncoding.Encode("utf-8", v)
}
